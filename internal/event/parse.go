package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformed marks a line that is not a JSON object of the expected shape.
	ErrMalformed = errors.New("malformed event")
	// ErrUnknownType marks a well-formed object with a missing or unrecognised tag.
	ErrUnknownType = errors.New("unknown event type")
)

// ParseError describes a line that could not be decoded. Callers skip the
// line and keep reading.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse event %q: %v", preview(e.Line), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes a single NDJSON line. It first reads only the discriminator,
// then decodes the full payload into the matching variant.
func Parse(line string) (Event, error) {
	data := []byte(line)

	var tag struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}

	var (
		ev  Event
		err error
	)
	switch tag.Type {
	case KindCheckpoint:
		ev, err = decode[Checkpoint](data)
	case KindResponseChunk:
		ev, err = decode[ResponseChunk](data)
	case KindFinalResponse:
		ev, err = decode[FinalResponse](data)
	case KindToolCall:
		ev, err = decode[ToolCall](data)
	case KindToolResult:
		ev, err = decode[ToolResult](data)
	case KindError:
		ev, err = decode[Error](data)
	case KindDone:
		ev, err = decode[Done](data)
	default:
		return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: %q", ErrUnknownType, tag.Type)}
	}
	if err != nil {
		return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return ev, nil
}

func decode[T Event](data []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Encode renders ev as a single wire line without the trailing newline.
func Encode(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.Kind(), err)
	}
	tag, err := json.Marshal(ev.Kind())
	if err != nil {
		return nil, err
	}
	// Splice the tag in front of the variant's own fields.
	out := make([]byte, 0, len(body)+len(tag)+8)
	out = append(out, `{"type":`...)
	out = append(out, tag...)
	if len(body) > 2 {
		out = append(out, ',')
	}
	out = append(out, body[1:]...)
	return out, nil
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}
