package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/suykerbuyk/atlas-chat/internal/archive"
	"github.com/suykerbuyk/atlas-chat/internal/discover"
	"github.com/suykerbuyk/atlas-chat/internal/history"
	"github.com/suykerbuyk/atlas-chat/internal/index"
)

func newConversationsCmd(a *app) *cobra.Command {
	var remote, imported bool

	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"ls"},
		Short:   "List known conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if imported {
				return a.listImported(cmd.Context(), cmd.OutOrStdout())
			}
			return a.listConversations(cmd.Context(), cmd.OutOrStdout(), remote)
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "refresh the list from the backend first")
	cmd.Flags().BoolVar(&imported, "imported", false, "list conversations in the local history store")
	return cmd
}

func (a *app) listConversations(ctx context.Context, out io.Writer, remote bool) error {
	dataDir, err := a.dataDir()
	if err != nil {
		return err
	}
	idx, err := index.Load(dataDir)
	if err != nil {
		return err
	}

	if remote {
		convs, err := a.client().Conversations(ctx)
		if err != nil {
			return err
		}
		if n := idx.Merge(convs); n > 0 {
			a.logger.Debug("merged conversations", "added", n)
		}
		if err := idx.Save(); err != nil {
			return err
		}
	}

	convs := idx.List()
	if len(convs) == 0 {
		fmt.Fprintln(out, "No conversations.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUPDATED")
	for _, c := range convs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Title, relative(c.UpdatedAt))
	}
	return tw.Flush()
}

func (a *app) listImported(ctx context.Context, out io.Writer) error {
	store, err := history.OpenStore(a.cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	convs, err := store.Conversations(ctx)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Fprintln(out, "No imported conversations.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tMESSAGES\tIMPORTED")
	for _, c := range convs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Title, humanize.Comma(int64(c.Messages)), relative(c.ImportedAt))
	}
	return tw.Flush()
}

func newCapturesCmd(a *app) *cobra.Command {
	var conversationID string
	var compress bool

	cmd := &cobra.Command{
		Use:   "captures",
		Short: "List recorded streams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.listCaptures(cmd.OutOrStdout(), conversationID, compress)
		},
	}
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "only captures of this conversation")
	cmd.Flags().BoolVar(&compress, "compress", false, "compress plain captures with zstd")
	return cmd
}

func (a *app) listCaptures(out io.Writer, conversationID string, compress bool) error {
	dir := a.cfg.CapturesDir()

	var (
		files []discover.CaptureFile
		err   error
	)
	if conversationID != "" {
		files, err = discover.FindByConversation(dir, conversationID)
	} else {
		files, err = discover.Captures(dir)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No captures.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONVERSATION\tTURN\tSIZE\tRECORDED\tFILE")
	for _, f := range files {
		path := f.Path
		if compress && !f.Compressed {
			dst, err := archive.Compress(f.Path)
			if err != nil {
				return err
			}
			path = dst
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			f.ConversationID, f.Sequence, humanize.Bytes(uint64(f.Size)),
			relative(time.Unix(f.ModTime, 0)), filepath.Base(path))
	}
	return tw.Flush()
}

func relative(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
