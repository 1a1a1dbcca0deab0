package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"invoice-analytics/internal/domain"
)

// EventKind is the decoded kind of a stream event.
type EventKind string

// Event kinds understood by the session state machine.
const (
	EventNarration      EventKind = "narration"
	EventCandidateQuery EventKind = "candidate_query"
	EventResultRows     EventKind = "result_rows"
	EventResultMeta     EventKind = "result_meta"
	EventError          EventKind = "error"
	EventInfo           EventKind = "info"
	EventDone           EventKind = "done"
	EventUnknown        EventKind = "unknown"
)

// wireKinds maps the "type" field sent by the analytics service.
var wireKinds = map[string]EventKind{
	"llm_text":      EventNarration,
	"sql_candidate": EventCandidateQuery,
	"result_rows":   EventResultRows,
	"result_meta":   EventResultMeta,
	"error":         EventError,
	"info":          EventInfo,
	"done":          EventDone,
}

// Event is the typed form of one frame payload.
type Event struct {
	Kind     EventKind
	WireType string

	Text     string
	SQL      string
	Rows     []domain.Row
	Columns  []string
	RowCount *int
}

type wireEvent struct {
	Type     *string         `json:"type"`
	Text     string          `json:"text"`
	SQL      string          `json:"sql"`
	Rows     json.RawMessage `json:"rows"`
	RowCount *json.Number    `json:"row_count"`
}

// DecodeEvent parses one payload. Unrecognized types decode to EventUnknown;
// anything that is not a JSON object with a string "type" is a
// *domain.FrameDecodeError.
func DecodeEvent(payload string) (Event, error) {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "{") {
		return Event{}, &domain.FrameDecodeError{Payload: payload, Reason: "payload is not a JSON object"}
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var w wireEvent
	if err := dec.Decode(&w); err != nil {
		return Event{}, &domain.FrameDecodeError{Payload: payload, Reason: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Event{}, &domain.FrameDecodeError{Payload: payload, Reason: "trailing data after JSON object"}
	}
	if w.Type == nil {
		return Event{}, &domain.FrameDecodeError{Payload: payload, Reason: `missing string field "type"`}
	}

	ev := Event{Kind: EventUnknown, WireType: *w.Type}
	if kind, ok := wireKinds[*w.Type]; ok {
		ev.Kind = kind
	}

	switch ev.Kind {
	case EventNarration, EventInfo, EventDone, EventError:
		ev.Text = w.Text
	case EventCandidateQuery:
		ev.SQL = w.SQL
	case EventResultRows:
		rows, cols, err := decodeRows(w.Rows)
		if err != nil {
			return Event{}, &domain.FrameDecodeError{Payload: payload, Reason: "invalid rows", Err: err}
		}
		ev.Rows, ev.Columns = rows, cols
	case EventResultMeta:
		if w.RowCount != nil {
			count, err := parseRowCount(*w.RowCount)
			if err != nil {
				return Event{}, &domain.FrameDecodeError{Payload: payload, Reason: "invalid row_count", Err: err}
			}
			ev.RowCount = &count
		}
	}
	return ev, nil
}

// maxExactFloatInt is the largest integer a float64 row_count holds exactly.
const maxExactFloatInt = 1 << 53

// parseRowCount accepts a non-negative whole number that fits in an int.
// Whole-valued floats such as 7.0 are allowed.
func parseRowCount(num json.Number) (int, error) {
	if n, err := num.Int64(); err == nil {
		if n < 0 || n > math.MaxInt {
			return 0, fmt.Errorf("%d out of range", n)
		}
		return int(n), nil
	}
	f, err := num.Float64()
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < 0 || f > maxExactFloatInt {
		return 0, fmt.Errorf("%s is not a row count", num)
	}
	return int(f), nil
}

// decodeRows parses an array of objects, preserving the order in which
// column names first appear. A missing or null array yields zero rows.
func decodeRows(raw json.RawMessage) ([]domain.Row, []string, error) {
	rows := []domain.Row{}
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return rows, nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil, fmt.Errorf("rows must be an array: %w", err)
	}

	var columns []string
	seen := make(map[string]struct{})
	for i, item := range items {
		row, keys, err := decodeObject(item)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		for _, k := range keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			columns = append(columns, k)
		}
		rows = append(rows, row)
	}
	return rows, columns, nil
}

func decodeObject(raw json.RawMessage) (domain.Row, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("row is not an object")
	}

	row := domain.Row{}
	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := keyTok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		if _, dup := row[key]; !dup {
			keys = append(keys, key)
		}
		row[key] = value
	}
	return row, keys, nil
}
