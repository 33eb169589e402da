package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/atlas-chat/internal/archive"
	"github.com/suykerbuyk/atlas-chat/internal/history"
	"github.com/suykerbuyk/atlas-chat/internal/index"
	"github.com/suykerbuyk/atlas-chat/internal/reducer"
	"github.com/suykerbuyk/atlas-chat/internal/render"
	"github.com/suykerbuyk/atlas-chat/internal/replay"
	"github.com/suykerbuyk/atlas-chat/internal/session"
	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

func newChatCmd(a *app) *cobra.Command {
	var conversationID string
	var details, noCapture bool

	cmd := &cobra.Command{
		Use:     "chat <message>",
		Aliases: []string{"c"},
		Short:   "Send a message and stream the reply",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return errors.New("message cannot be empty")
			}
			return a.chat(cmd.Context(), cmd.OutOrStdout(), chatRequest{
				message:        message,
				conversationID: conversationID,
				details:        details,
				capture:        a.cfg.Storage.Capture && !noCapture,
			})
		},
	}
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "continue an existing conversation")
	cmd.Flags().BoolVarP(&details, "details", "d", false, "show tool details")
	cmd.Flags().BoolVar(&noCapture, "no-capture", false, "do not record the raw stream")
	return cmd
}

type chatRequest struct {
	message        string
	conversationID string
	details        bool
	capture        bool
}

// chat runs one turn: seed the transcript from history, stream the reply
// through the reducer while printing it, then store the result.
func (a *app) chat(ctx context.Context, out io.Writer, req chatRequest) (err error) {
	dataDir, err := a.dataDir()
	if err != nil {
		return err
	}

	idx, err := index.Load(dataDir)
	if err != nil {
		return err
	}
	store, err := history.OpenStore(a.cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	cl := a.client()
	refresher := index.NewRefresher(idx, index.WithList(cl.Conversations), index.WithLogger(a.logger))
	defer refresher.Close()

	seed, err := a.seed(ctx, store, cl, req.conversationID)
	if err != nil {
		return err
	}

	release, err := session.NewManager(filepath.Join(dataDir, "locks")).Acquire(req.conversationID)
	if err != nil {
		return err
	}
	defer release()

	live := render.NewLive(out, a.renderOptions(req.details))
	live.Mark(seed)

	r := reducer.New(
		reducer.WithEntries(seed),
		reducer.WithConversation(req.conversationID),
		reducer.WithDirectory(refresher),
	)
	r.OnChange = live.Update

	refresher.Title(req.message)
	if err := r.Begin(req.message); err != nil {
		return err
	}

	body, err := cl.Stream(ctx, req.message, req.conversationID)
	if err != nil {
		return err
	}

	var capture *archive.Capture
	if req.capture {
		capture, err = archive.NewRecorder(a.cfg.CapturesDir(), a.cfg.Storage.Compress).Record(body)
		if err != nil {
			a.logger.Warn("stream capture disabled", "err", err)
		} else {
			body = capture
		}
	}

	s := session.New(r, a.logger)
	streamErr := s.Consume(ctx, body)

	if capture != nil {
		capture.Name(r.ConversationID())
	}
	if cerr := body.Close(); cerr != nil {
		a.logger.Warn("close stream", "err", cerr)
	} else if capture != nil {
		a.logger.Debug("stream captured", "path", capture.Path())
	}

	stats := s.Stats()
	a.logger.Debug("stream finished", "events", stats.Events, "skipped", stats.Skipped, "done", stats.Done)

	if err := a.store(ctx, store, idx, r.ConversationID(), r.Entries()); err != nil {
		a.logger.Warn("save history", "err", err)
	}

	if streamErr != nil {
		return fmt.Errorf("stream reply: %w", streamErr)
	}
	return live.Err()
}

// seed returns the transcript so far for conversationID, from the local
// store when it has the conversation and from the backend otherwise.
func (a *app) seed(ctx context.Context, store *history.Store, src history.Source, conversationID string) ([]transcript.Entry, error) {
	if conversationID == "" {
		return nil, nil
	}
	msgs, err := store.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		msgs, err = src.Messages(ctx, conversationID)
		if err != nil {
			a.logger.Warn("load remote history", "conversation", conversationID, "err", err)
			return nil, nil
		}
	}
	return replay.Build(msgs), nil
}

// store persists the transcript as flat messages so the next turn or a
// replay can rebuild it.
func (a *app) store(ctx context.Context, store *history.Store, idx *index.Index, conversationID string, entries []transcript.Entry) error {
	if conversationID == "" || len(entries) == 0 {
		return nil
	}
	title := index.DefaultTitle
	if c, ok := idx.Get(conversationID); ok && c.Title != "" {
		title = c.Title
	} else if msg := firstUserMessage(entries); msg != "" {
		title = index.DeriveTitle(msg)
	}
	return store.Import(ctx, conversationID, title, replay.Flatten(entries))
}

func firstUserMessage(entries []transcript.Entry) string {
	for _, e := range entries {
		if e.Role == transcript.RoleUser && strings.TrimSpace(e.Content) != "" {
			return e.Content
		}
	}
	return ""
}
