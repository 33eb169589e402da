package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNoMessages is returned when an export holds neither a message array
// nor an object with a "messages" field.
var ErrNoMessages = errors.New("no messages in export")

// Export is a conversation as returned by the backend's detail endpoint.
type Export struct {
	ID       string    `json:"id,omitempty"`
	Title    string    `json:"title,omitempty"`
	Messages []Message `json:"messages"`
}

// LoadFile reads a JSON export: either a bare array of messages or a
// conversation object carrying them.
func LoadFile(path string) (Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Export{}, fmt.Errorf("read export: %w", err)
	}
	return Decode(data)
}

// Decode parses the export formats accepted by LoadFile.
func Decode(data []byte) (Export, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Export{}, ErrNoMessages
	}

	if data[0] == '[' {
		var msgs []Message
		if err := json.Unmarshal(data, &msgs); err != nil {
			return Export{}, fmt.Errorf("parse messages: %w", err)
		}
		return Export{Messages: clean(msgs)}, nil
	}

	var exp Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return Export{}, fmt.Errorf("parse export: %w", err)
	}
	if exp.Messages == nil {
		return Export{}, ErrNoMessages
	}
	exp.Messages = clean(exp.Messages)
	return exp, nil
}
