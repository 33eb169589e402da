package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/atlas-chat/internal/history"
	"github.com/suykerbuyk/atlas-chat/internal/index"
	"github.com/suykerbuyk/atlas-chat/internal/replay"
)

const (
	sourceDB   = "db"
	sourceAPI  = "api"
	sourceFile = "file"
)

func newReplayCmd(a *app) *cobra.Command {
	var from, format string
	var details bool

	cmd := &cobra.Command{
		Use:     "replay <conversation-id | export.json>",
		Aliases: []string{"r"},
		Short:   "Rebuild a transcript from stored history",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			return a.replay(cmd.Context(), cmd.OutOrStdout(), args[0], from, format, details)
		},
	}
	cmd.Flags().StringVar(&from, "from", sourceDB, "history source: db, api, file")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, markdown, json")
	cmd.Flags().BoolVarP(&details, "details", "d", false, "show tool details")
	return cmd
}

func (a *app) replay(ctx context.Context, out io.Writer, target, from, format string, details bool) error {
	exp, err := a.loadHistory(ctx, target, from)
	if err != nil {
		return err
	}
	entries := replay.Build(exp.Messages)
	return writeTranscript(out, format, exp.ID, exp.Title, entries, a.renderOptions(details))
}

// loadHistory fetches a conversation's flat messages from the chosen source.
func (a *app) loadHistory(ctx context.Context, target, from string) (history.Export, error) {
	switch from {
	case sourceFile:
		return history.LoadFile(target)

	case sourceAPI:
		return a.client().Conversation(ctx, target)

	case sourceDB:
		store, err := history.OpenStore(a.cfg.HistoryPath())
		if err != nil {
			return history.Export{}, err
		}
		defer store.Close()

		msgs, err := store.Messages(ctx, target)
		if err != nil {
			return history.Export{}, err
		}
		if len(msgs) == 0 {
			return history.Export{}, fmt.Errorf("conversation %s: %w", target, history.ErrNoMessages)
		}
		return history.Export{ID: target, Messages: msgs}, nil
	}
	return history.Export{}, fmt.Errorf("unknown source %q (want db, api or file)", from)
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <conversation-id> <export.json>",
		Short: "Load a JSON history export into the local store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.importHistory(cmd.Context(), cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func (a *app) importHistory(ctx context.Context, out io.Writer, conversationID, path string) error {
	exp, err := history.LoadFile(path)
	if err != nil {
		return err
	}

	dataDir, err := a.dataDir()
	if err != nil {
		return err
	}
	idx, err := index.Load(dataDir)
	if err != nil {
		return err
	}

	title := exp.Title
	if title == "" {
		for _, m := range exp.Messages {
			if m.Role == history.RoleUser && m.Content != "" {
				title = index.DeriveTitle(m.Content)
				break
			}
		}
	}
	if title == "" {
		title = index.DefaultTitle
	}

	store, err := history.OpenStore(a.cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Import(ctx, conversationID, title, exp.Messages); err != nil {
		return fmt.Errorf("import %s: %w", conversationID, err)
	}

	idx.Ensure(conversationID, title)
	idx.Touch(conversationID)
	if err := idx.Save(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Imported %d messages into %s (%s)\n", len(exp.Messages), conversationID, title)
	return nil
}
