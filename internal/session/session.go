// Package session drives one conversation turn from raw stream bytes to a
// reduced transcript.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/suykerbuyk/atlas-chat/internal/event"
	"github.com/suykerbuyk/atlas-chat/internal/ndjson"
	"github.com/suykerbuyk/atlas-chat/internal/reducer"
)

// Stats counts what a session has read so far.
type Stats struct {
	Lines   int // non-blank lines seen
	Events  int // lines applied to the reducer
	Skipped int // lines that failed to parse
	Done    bool
}

// Session feeds decoded events into a reducer. A Session is used by a
// single goroutine.
type Session struct {
	reducer *reducer.Reducer
	logger  *slog.Logger
	framer  ndjson.Framer
	stats   Stats
}

// New wraps r. A nil logger means slog.Default().
func New(r *reducer.Reducer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{reducer: r, logger: logger}
}

// Reducer returns the reducer the session feeds.
func (s *Session) Reducer() *reducer.Reducer { return s.reducer }

// Stats returns the running counters.
func (s *Session) Stats() Stats { return s.stats }

// Consume reads body to its end. It returns nil on EOF, the read error if
// the transport failed, or ctx.Err() once the context is cancelled. Events
// applied before the failure stay in the transcript.
func (s *Session) Consume(ctx context.Context, body io.Reader) error {
	for line, err := range ndjson.Lines(body) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("read stream: %w", err)
		}
		s.handle(line)
	}
	return ctx.Err()
}

// Feed processes a raw chunk, applying every line it completes.
func (s *Session) Feed(chunk []byte) {
	for _, line := range s.framer.Feed(chunk) {
		s.handle(line)
	}
}

// Finish applies whatever partial line is still buffered.
func (s *Session) Finish() {
	if line, ok := s.framer.Flush(); ok {
		s.handle(line)
	}
}

func (s *Session) handle(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	s.stats.Lines++

	ev, err := event.Parse(line)
	if err != nil {
		s.stats.Skipped++
		s.logger.Warn("skipping stream line", "error", err, "line", s.stats.Lines)
		return
	}

	s.stats.Events++
	if ev.Kind() == event.KindDone {
		s.stats.Done = true
	}
	s.reducer.Apply(ev)
}
