package archive

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testConversationID = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"

const stream = `{"type":"checkpoint","checkpoint_id":"c1"}` + "\n" +
	`{"type":"response_chunk","text":"hello","checkpoint_id":"c1"}` + "\n" +
	`{"type":"done","checkpoint_id":"c1"}` + "\n"

func record(t *testing.T, dir string, compress bool, id string) string {
	t.Helper()
	rec := NewRecorder(dir, compress)
	c, err := rec.Record(io.NopCloser(strings.NewReader(stream)))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := io.ReadAll(c)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != stream {
		t.Errorf("pass-through = %q, want %q", got, stream)
	}
	c.Name(id)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return c.Path()
}

func readCapture(t *testing.T, path string) string {
	t.Helper()
	rc, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return string(data)
}

func TestRecordCompressed(t *testing.T) {
	dir := t.TempDir()
	path := record(t, dir, true, testConversationID)

	if want := filepath.Join(dir, testConversationID+CompressedExt); path != want {
		t.Errorf("Path = %q, want %q", path, want)
	}
	if got := readCapture(t, path); got != stream {
		t.Errorf("capture = %q, want %q", got, stream)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dir has %d files, want 1 (temp file left behind?)", len(entries))
	}
}

func TestRecordPlainAndSequence(t *testing.T) {
	dir := t.TempDir()
	first := record(t, dir, false, "c1")
	second := record(t, dir, false, "c1")

	if filepath.Base(first) != "c1.ndjson" {
		t.Errorf("first = %q", first)
	}
	if filepath.Base(second) != "c1.2.ndjson" {
		t.Errorf("second = %q", second)
	}
	if got := readCapture(t, second); got != stream {
		t.Errorf("capture = %q", got)
	}
}

func TestRecordUnnamed(t *testing.T) {
	path := record(t, t.TempDir(), true, "")
	name := strings.TrimSuffix(filepath.Base(path), CompressedExt)
	if len(name) != 36 {
		t.Errorf("generated name = %q, want a uuid", name)
	}
}

func TestCompress(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, testConversationID+PlainExt)
	if err := os.WriteFile(src, []byte(stream), 0o644); err != nil {
		t.Fatal(err)
	}

	dest, err := Compress(src)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if dest != filepath.Join(dir, testConversationID+CompressedExt) {
		t.Errorf("dest = %q", dest)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source not removed")
	}
	if got := readCapture(t, dest); got != stream {
		t.Errorf("capture = %q", got)
	}

	if _, err := Compress(dest); err == nil {
		t.Error("Compress of .zst succeeded, want error")
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.ndjson")); err == nil {
		t.Error("Open missing file succeeded")
	}
}
