// Package archive records raw NDJSON streams to disk and reads them back.
//
// Captures are named after the conversation's checkpoint id:
// {dir}/{id}.ndjson, or {dir}/{id}.ndjson.zst when compressed. Later turns
// of the same conversation get a sequence suffix: {id}.2.ndjson.zst.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const (
	PlainExt      = ".ndjson"
	CompressedExt = ".ndjson.zst"
)

// Compress compresses the plain capture at srcPath into a sibling
// .ndjson.zst file and removes the source. Returns the archive path.
func Compress(srcPath string) (string, error) {
	if !strings.HasSuffix(srcPath, PlainExt) {
		return "", fmt.Errorf("not a plain capture: %s", srcPath)
	}
	destPath := strings.TrimSuffix(srcPath, PlainExt) + CompressedExt

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer dest.Close()

	encoder, err := zstd.NewWriter(dest)
	if err != nil {
		return "", fmt.Errorf("create zstd encoder: %w", err)
	}

	if _, err := io.Copy(encoder, src); err != nil {
		encoder.Close()
		return "", fmt.Errorf("compress: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("finalize compression: %w", err)
	}

	src.Close()
	if err := os.Remove(srcPath); err != nil {
		return "", fmt.Errorf("remove source: %w", err)
	}
	return destPath, nil
}

// Open returns a reader over a .ndjson or .ndjson.zst capture.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}

	decoder, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &zstdFile{Decoder: decoder, file: f}, nil
}

type zstdFile struct {
	*zstd.Decoder
	file *os.File
}

func (z *zstdFile) Close() error {
	z.Decoder.Close()
	return z.file.Close()
}

// CapturePath returns the first unused capture path for id in dir.
func CapturePath(dir, id string, compress bool) string {
	ext := PlainExt
	if compress {
		ext = CompressedExt
	}
	path := filepath.Join(dir, id+ext)
	for n := 2; exists(path); n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s.%d%s", id, n, ext))
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
