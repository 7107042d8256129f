package flow

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/BaSui01/flowkit/types"
)

// Event is one frame of the newline-delimited streaming wire format.
// Exactly one field is set: Message for an intermediate chunk, Result for
// the final output, Error for a terminal failure.
type Event struct {
	Message json.RawMessage `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *WireError      `json:"error,omitempty"`
}

// WireError is the serialized form of a terminal flow error.
type WireError struct {
	Status  types.Status   `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Err reconstructs a *types.Error from the wire form.
func (w *WireError) Err() error {
	e := types.NewError(w.Status, "%s", w.Message)
	if len(w.Details) > 0 {
		e = e.WithDetails(w.Details)
	}
	return e
}

// EventWriter encodes stream events, one JSON document per line.
type EventWriter struct {
	w io.Writer
}

// NewEventWriter writes events to w. Callers needing flushing per event
// should pass an unbuffered writer or flush themselves.
func NewEventWriter(w io.Writer) *EventWriter {
	return &EventWriter{w: w}
}

func (ew *EventWriter) write(ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode stream event: %w", err)
	}
	b = append(b, '\n')
	_, err = ew.w.Write(b)
	return err
}

// WriteChunk emits an intermediate chunk event.
func (ew *EventWriter) WriteChunk(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode stream chunk: %w", err)
	}
	return ew.write(Event{Message: raw})
}

// WriteResult emits the terminal result event.
func (ew *EventWriter) WriteResult(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode stream result: %w", err)
	}
	return ew.write(Event{Result: raw})
}

// WriteError emits the terminal error event. Unclassified errors are
// reported as INTERNAL.
func (ew *EventWriter) WriteError(err error) error {
	e := types.AsError(err)
	return ew.write(Event{Error: &WireError{
		Status:  e.Status,
		Message: e.Message,
		Details: e.Details,
	}})
}

// EventReader decodes a newline-delimited event stream.
type EventReader struct {
	scanner *bufio.Scanner
}

// NewEventReader reads events from r. Lines up to 10 MiB are accepted.
func NewEventReader(r io.Reader) *EventReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 10*1024*1024)
	return &EventReader{scanner: sc}
}

// Next returns the next event, or io.EOF at end of stream. Blank lines are
// skipped.
func (er *EventReader) Next() (*Event, error) {
	for er.scanner.Scan() {
		line := er.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("decode stream event: %w", err)
		}
		return &ev, nil
	}
	if err := er.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// CopyStream drains a streaming response onto an EventWriter, translating
// chunks, the final result, and errors into wire events. It is the glue a
// transport handler uses to serve a streaming flow invocation.
func CopyStream[O, S any](ctx context.Context, resp *StreamingResponse[O, S], ew *EventWriter) error {
	for chunk, err := range resp.Stream(ctx) {
		if err != nil {
			return ew.WriteError(err)
		}
		if werr := ew.WriteChunk(chunk); werr != nil {
			return werr
		}
	}
	out, err := resp.Output(ctx)
	if err != nil {
		return ew.WriteError(err)
	}
	return ew.WriteResult(out)
}
