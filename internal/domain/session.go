package domain

import (
	"encoding/json"
	"time"
)

// SessionStatus represents the lifecycle state of a chat session.
type SessionStatus string

// Chat session lifecycle statuses. Transitions only move forward:
// idle -> sending -> streaming -> done|failed.
const (
	SessionIdle      SessionStatus = "idle"
	SessionSending   SessionStatus = "sending"
	SessionStreaming SessionStatus = "streaming"
	SessionDone      SessionStatus = "done"
	SessionFailed    SessionStatus = "failed"
)

func (s SessionStatus) rank() int {
	switch s {
	case SessionSending:
		return 1
	case SessionStreaming:
		return 2
	case SessionDone, SessionFailed:
		return 3
	default:
		return 0
	}
}

// Active reports whether a session in this status still owns the controller.
func (s SessionStatus) Active() bool {
	return s == SessionSending || s == SessionStreaming
}

// Terminal reports whether no further events may be applied.
func (s SessionStatus) Terminal() bool {
	return s == SessionDone || s == SessionFailed
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
// sending may jump straight to failed when the remote call is rejected.
func (s SessionStatus) CanAdvanceTo(next SessionStatus) bool {
	if s.Terminal() {
		return false
	}
	return next.rank() > s.rank()
}

// LogKind classifies an entry in the flat conversation log.
type LogKind string

// Conversation log entry kinds, matching what the chat view renders.
const (
	LogInfo      LogKind = "info"
	LogNarration LogKind = "llm_text"
	LogSQL       LogKind = "sql"
	LogError     LogKind = "error"
)

// LogEntry is one displayable line of the conversation log.
type LogEntry struct {
	Kind LogKind `json:"type"`
	Text string  `json:"text,omitempty"`
	SQL  string  `json:"sql,omitempty"`
}

// Row is a single result record keyed by column name.
type Row map[string]any

// Session is the accumulated state of one question/answer interaction with
// the analytics service. Values handed to observers are snapshots; mutating
// them has no effect on the controller.
type Session struct {
	ID     string        `json:"id"`
	Query  string        `json:"query"`
	Status SessionStatus `json:"status"`

	Narration      []string   `json:"narration"`
	Log            []LogEntry `json:"log"`
	CandidateQuery *string    `json:"candidate_query,omitempty"`

	// ResultRows is nil until a rows event arrives; an empty slice means the
	// service reported zero rows. ResultColumns keeps first-seen key order.
	ResultRows     []Row    `json:"result_rows"`
	ResultColumns  []string `json:"result_columns,omitempty"`
	ResultRowCount *int     `json:"result_row_count,omitempty"`

	Error *string `json:"error,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	if s.Narration != nil {
		out.Narration = append([]string(nil), s.Narration...)
	}
	if s.Log != nil {
		out.Log = append([]LogEntry(nil), s.Log...)
	}
	if s.CandidateQuery != nil {
		v := *s.CandidateQuery
		out.CandidateQuery = &v
	}
	if s.ResultRows != nil {
		out.ResultRows = make([]Row, len(s.ResultRows))
		for i, r := range s.ResultRows {
			out.ResultRows[i] = cloneValue(r).(Row)
		}
	}
	if s.ResultColumns != nil {
		out.ResultColumns = append([]string(nil), s.ResultColumns...)
	}
	if s.ResultRowCount != nil {
		v := *s.ResultRowCount
		out.ResultRowCount = &v
	}
	if s.Error != nil {
		v := *s.Error
		out.Error = &v
	}
	if s.FinishedAt != nil {
		v := *s.FinishedAt
		out.FinishedAt = &v
	}
	return out
}

// cloneValue deep-copies JSON-shaped values (maps, slices, scalars).
func cloneValue(v any) any {
	switch t := v.(type) {
	case Row:
		if t == nil {
			return Row(nil)
		}
		m := make(Row, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	case json.RawMessage:
		return append(json.RawMessage(nil), t...)
	default:
		return v
	}
}
