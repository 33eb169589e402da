// Package discover finds recorded stream captures on disk.
package discover

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var capturePattern = regexp.MustCompile(`^([^./][^.]*)(?:\.(\d+))?\.ndjson(\.zst)?$`)

// CaptureFile represents a discovered capture on disk.
type CaptureFile struct {
	Path           string
	ConversationID string // checkpoint id from the filename
	Sequence       int    // 1 for the first capture of a conversation
	Compressed     bool
	Size           int64
	ModTime        int64 // unix timestamp for sorting
}

// Captures lists the captures in dir, sorted by modification time (oldest
// first). A missing directory yields no captures.
func Captures(dir string) ([]CaptureFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var results []CaptureFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := capturePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed since ReadDir
		}

		seq := 1
		if m[2] != "" {
			seq, _ = strconv.Atoi(m[2])
		}
		results = append(results, CaptureFile{
			Path:           filepath.Join(dir, e.Name()),
			ConversationID: m[1],
			Sequence:       seq,
			Compressed:     m[3] != "",
			Size:           info.Size(),
			ModTime:        info.ModTime().Unix(),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].ModTime != results[j].ModTime {
			return results[i].ModTime < results[j].ModTime
		}
		if results[i].ConversationID != results[j].ConversationID {
			return results[i].ConversationID < results[j].ConversationID
		}
		return results[i].Sequence < results[j].Sequence
	})

	return results, nil
}

// FindByConversation returns the captures recorded for conversationID in
// turn order.
func FindByConversation(dir, conversationID string) ([]CaptureFile, error) {
	all, err := Captures(dir)
	if err != nil {
		return nil, err
	}
	var out []CaptureFile
	for _, c := range all {
		if c.ConversationID == conversationID {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, os.ErrNotExist
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}
