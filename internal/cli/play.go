package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/atlas-chat/internal/archive"
	"github.com/suykerbuyk/atlas-chat/internal/broadcast"
	"github.com/suykerbuyk/atlas-chat/internal/reducer"
	"github.com/suykerbuyk/atlas-chat/internal/render"
	"github.com/suykerbuyk/atlas-chat/internal/session"
	"github.com/suykerbuyk/atlas-chat/internal/transcript"
	"github.com/suykerbuyk/atlas-chat/internal/watch"
)

func newPlayCmd(a *app) *cobra.Command {
	var format string
	var details, live bool

	cmd := &cobra.Command{
		Use:   "play <file.ndjson[.zst]>",
		Short: "Run a recorded stream through the reducer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			return a.play(cmd.Context(), cmd.OutOrStdout(), args[0], format, details, live)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, markdown, json")
	cmd.Flags().BoolVarP(&details, "details", "d", false, "show tool details")
	cmd.Flags().BoolVar(&live, "live", false, "print updates as each event is applied")
	return cmd
}

func (a *app) play(ctx context.Context, out io.Writer, path, format string, details, live bool) error {
	rc, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	opts := a.renderOptions(details)
	r := reducer.New()
	var printer *render.Live
	if live && format == formatText {
		printer = render.NewLive(out, opts)
		r.OnChange = printer.Update
	}

	s := session.New(r, a.logger)
	if err := s.Consume(ctx, rc); err != nil {
		return fmt.Errorf("play %s: %w", path, err)
	}
	if st := s.Stats(); st.Skipped > 0 {
		a.logger.Info("skipped unparseable lines", "count", st.Skipped)
	}

	if printer != nil {
		return printer.Err()
	}
	return writeTranscript(out, format, r.ConversationID(), "", r.Entries(), opts)
}

func newWatchCmd(a *app) *cobra.Command {
	var listen string
	var details bool

	cmd := &cobra.Command{
		Use:   "watch <file.ndjson>",
		Short: "Follow a stream file as it is written",
		Long: "Follow a stream file as it is written, printing the transcript live.\n" +
			"With --listen, transcript snapshots are also served to websocket viewers at /ws.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context(), cmd.OutOrStdout(), args[0], listen, details)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "serve snapshots over websocket on this address, e.g. :8787")
	cmd.Flags().BoolVarP(&details, "details", "d", false, "show tool details")
	return cmd
}

func (a *app) watch(ctx context.Context, out io.Writer, path, listen string, details bool) error {
	var hub *broadcast.Hub
	if listen != "" {
		hub = broadcast.NewHub(a.logger)
		stop, err := serveHub(hub, listen, a)
		if err != nil {
			return err
		}
		defer stop()
	}

	f := newFollower(out, a.renderOptions(details), a.logger, hub)
	err := watch.Follow(ctx, path, f.feed, watch.WithReset(f.reset))
	ferr := f.finish()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ferr
}

// follower feeds a followed file into a session. The session, reducer and
// printer are rebuilt whenever the file starts over, so a rewritten stream
// never lands on the previous turn's entries.
type follower struct {
	out    io.Writer
	opts   render.Options
	logger *slog.Logger
	hub    *broadcast.Hub

	reducer *reducer.Reducer
	session *session.Session
	printer *render.Live
	err     error // first write error of a discarded printer
}

func newFollower(out io.Writer, opts render.Options, logger *slog.Logger, hub *broadcast.Hub) *follower {
	f := &follower{out: out, opts: opts, logger: logger, hub: hub}
	f.start()
	return f
}

func (f *follower) start() {
	r := reducer.New()
	p := render.NewLive(f.out, f.opts)
	r.OnChange = func(entries []transcript.Entry) {
		p.Update(entries)
		if f.hub != nil {
			f.hub.Publish(r.ConversationID(), entries)
		}
	}
	f.reducer, f.session, f.printer = r, session.New(r, f.logger), p
}

func (f *follower) reset() {
	if err := f.printer.Err(); err != nil && f.err == nil {
		f.err = err
	}
	f.logger.Info("stream file truncated, starting over")
	f.start()
	if f.hub != nil {
		f.hub.Publish("", []transcript.Entry{})
	}
}

func (f *follower) feed(chunk []byte) error {
	f.session.Feed(chunk)
	if f.session.Stats().Done && f.hub == nil {
		return watch.ErrStop
	}
	return nil
}

func (f *follower) finish() error {
	f.session.Finish()
	if f.err != nil {
		return f.err
	}
	return f.printer.Err()
}

// serveHub starts an HTTP server for hub and returns a func that shuts it
// down.
func serveHub(hub *broadcast.Hub, addr string, a *app) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	a.logger.Info("serving snapshots", "addr", "ws://"+ln.Addr().String()+"/ws")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("snapshot server", "err", err)
		}
	}()

	return func() {
		hub.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
