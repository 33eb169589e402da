package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/suykerbuyk/atlas-chat/internal/render"
	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

func validFormat(f string) error {
	switch f {
	case formatText, formatMarkdown, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, markdown or json)", f)
}

// writeTranscript prints a finished transcript in the requested format.
func writeTranscript(w io.Writer, format, conversationID, title string, entries []transcript.Entry, opts render.Options) error {
	switch format {
	case formatMarkdown:
		_, err := io.WriteString(w, render.Markdown(render.NoteData{
			ConversationID: conversationID,
			Title:          title,
			Date:           time.Now(),
			Entries:        entries,
		}))
		return err
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []transcript.Entry{}
		}
		return enc.Encode(struct {
			ConversationID string             `json:"conversationId,omitempty"`
			Entries        []transcript.Entry `json:"entries"`
		}{conversationID, entries})
	default:
		term := render.NewTerminal(w, opts)
		if err := term.Render(entries); err != nil {
			return err
		}
		return term.Summary(entries)
	}
}
