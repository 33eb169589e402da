// Package watch follows a growing stream file, such as a capture being
// written by another process.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
)

// ErrStop may be returned by a ChunkFunc to end Follow without error.
var ErrStop = errors.New("stop following")

// ChunkFunc receives raw bytes in file order. The slice is reused after
// the call returns.
type ChunkFunc func(chunk []byte) error

// ResetFunc is called when the file was truncated, before its new contents
// are delivered. Anything built from the earlier bytes is stale.
type ResetFunc func()

// Option configures Follow.
type Option func(*tail)

// WithReset registers fn to run whenever Follow starts over from offset 0.
func WithReset(fn ResetFunc) Option {
	return func(t *tail) { t.reset = fn }
}

const readSize = 32 << 10

// Follow delivers the current contents of path to fn, then every byte
// appended until ctx is cancelled, the file is removed or renamed, or fn
// returns an error. A file truncated in place is read again from the start
// after the reset callback runs. A rewrite that is at least as long as
// what was already read is indistinguishable from an append.
func Follow(ctx context.Context, path string, fn ChunkFunc, opts ...Option) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	t := &tail{f: f, fn: fn, buf: make([]byte, readSize)}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.drain(); err != nil {
		return stopped(err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			switch {
			case ev.Has(fsnotify.Write):
				if err := t.rewindIfTruncated(); err != nil {
					return err
				}
				if err := t.drain(); err != nil {
					return stopped(err)
				}
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				return stopped(t.drain())
			case ev.Has(fsnotify.Chmod):
				// Linux reports an unlink of a file we hold open as Chmod.
				if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
					return stopped(t.drain())
				}
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
}

type tail struct {
	f      *os.File
	fn     ChunkFunc
	reset  ResetFunc
	buf    []byte
	offset int64
}

func (t *tail) drain() error {
	for {
		n, err := t.f.Read(t.buf)
		if n > 0 {
			t.offset += int64(n)
			if ferr := t.fn(t.buf[:n]); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
	}
}

func (t *tail) rewindIfTruncated() error {
	info, err := t.f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if info.Size() >= t.offset {
		return nil
	}
	if _, err := t.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	t.offset = 0
	if t.reset != nil {
		t.reset()
	}
	return nil
}

func stopped(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}
