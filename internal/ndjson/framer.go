// Package ndjson splits a newline-delimited byte stream into complete lines.
package ndjson

import (
	"bytes"
	"errors"
	"io"
	"iter"
)

// Framer buffers partial input until a newline completes a line.
// The zero value is ready to use.
type Framer struct {
	buf []byte
}

// Feed appends chunk to the pending buffer and returns every line it
// completes, with the trailing newline stripped. Chunk boundaries may fall
// anywhere, including in the middle of a multi-byte character.
func (f *Framer) Feed(chunk []byte) []string {
	f.buf = append(f.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(f.buf[:i]))
		f.buf = f.buf[i+1:]
	}

	// Reclaim the consumed prefix so long streams don't pin old arrays.
	if len(f.buf) == 0 {
		f.buf = nil
	} else if cap(f.buf) > 4*len(f.buf) && cap(f.buf) > 64*1024 {
		f.buf = append([]byte(nil), f.buf...)
	}
	return lines
}

// Flush returns any trailing content left when the stream ended without a
// final newline. It reports false when nothing non-empty remains.
func (f *Framer) Flush() (string, bool) {
	rest := f.buf
	f.buf = nil
	if len(rest) == 0 {
		return "", false
	}
	return string(rest), true
}

// Pending reports how many bytes are buffered waiting for a newline.
func (f *Framer) Pending() int {
	return len(f.buf)
}

const readSize = 32 * 1024

// Lines reads r until EOF and yields each complete line in order, followed
// by the flushed tail if the stream did not end with a newline. A read
// error other than io.EOF is yielded once as the final element.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var f Framer
		buf := make([]byte, readSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, line := range f.Feed(buf[:n]) {
					if !yield(line, nil) {
						return
					}
				}
			}
			if err != nil {
				if tail, ok := f.Flush(); ok {
					if !yield(tail, nil) {
						return
					}
				}
				if !errors.Is(err, io.EOF) {
					yield("", err)
				}
				return
			}
		}
	}
}
