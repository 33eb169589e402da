package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Recorder creates captures in one directory.
type Recorder struct {
	dir      string
	compress bool
}

// NewRecorder returns a Recorder writing to dir.
func NewRecorder(dir string, compress bool) *Recorder {
	return &Recorder{dir: dir, compress: compress}
}

// Record wraps body so every byte read from it is also written to a new
// capture. The capture is named when Close is called; see Capture.Name.
func (r *Recorder) Record(body io.ReadCloser) (*Capture, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}
	tmp, err := os.CreateTemp(r.dir, ".capture-*")
	if err != nil {
		return nil, fmt.Errorf("create capture: %w", err)
	}

	c := &Capture{src: body, file: tmp, rec: r, w: tmp}
	if r.compress {
		enc, err := zstd.NewWriter(tmp)
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		c.enc = enc
		c.w = enc
	}
	return c, nil
}

// Capture is a recording stream body. Reads pass through unchanged; a
// failed capture write never fails the read.
type Capture struct {
	src  io.ReadCloser
	file *os.File
	enc  *zstd.Encoder
	w    io.Writer
	rec  *Recorder

	mu       sync.Mutex
	id       string
	path     string
	writeErr error
	closed   bool
}

func (c *Capture) Read(p []byte) (int, error) {
	n, err := c.src.Read(p)
	if n > 0 && c.writeErr == nil {
		if _, werr := c.w.Write(p[:n]); werr != nil {
			c.writeErr = werr
		}
	}
	return n, err
}

// Name sets the conversation id the capture file is named after. Without
// one a random id is used.
func (c *Capture) Name(id string) {
	c.mu.Lock()
	c.id = id
	c.mu.Unlock()
}

// Path returns the final capture path once Close has returned.
func (c *Capture) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// Close closes the body and moves the capture into place.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	errs := []error{c.src.Close()}
	if c.enc != nil {
		errs = append(errs, c.enc.Close())
	}
	errs = append(errs, c.file.Close())
	if c.writeErr != nil {
		errs = append(errs, fmt.Errorf("write capture: %w", c.writeErr))
	}

	id := c.id
	if id == "" {
		id = uuid.NewString()
	}
	c.path = CapturePath(c.rec.dir, id, c.rec.compress)
	if err := os.Rename(c.file.Name(), c.path); err != nil {
		os.Remove(c.file.Name())
		c.path = ""
		errs = append(errs, fmt.Errorf("finalize capture: %w", err))
	}
	return errors.Join(errs...)
}
