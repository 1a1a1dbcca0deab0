package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStatus_CanAdvanceTo(t *testing.T) {
	tests := []struct {
		from, to SessionStatus
		want     bool
	}{
		{SessionIdle, SessionSending, true},
		{SessionSending, SessionStreaming, true},
		{SessionSending, SessionFailed, true},
		{SessionStreaming, SessionDone, true},
		{SessionStreaming, SessionSending, false},
		{SessionStreaming, SessionStreaming, false},
		{SessionDone, SessionFailed, false},
		{SessionFailed, SessionDone, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanAdvanceTo(tt.to))
		})
	}
}

func TestSessionStatus_ActiveTerminal(t *testing.T) {
	assert.False(t, SessionIdle.Active())
	assert.True(t, SessionSending.Active())
	assert.True(t, SessionStreaming.Active())
	assert.True(t, SessionDone.Terminal())
	assert.True(t, SessionFailed.Terminal())
	assert.False(t, SessionStreaming.Terminal())
}

func TestSession_Clone(t *testing.T) {
	sql := "SELECT 1"
	count := 1
	msg := "boom"
	finished := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	orig := Session{
		ID:             "s1",
		Narration:      []string{"a"},
		Log:            []LogEntry{{Kind: LogInfo, Text: "x"}},
		CandidateQuery: &sql,
		ResultRows: []Row{{
			"vendor": "Acme",
			"tags":   []any{"a", map[string]any{"k": "v"}},
			"raw":    json.RawMessage(`{"n":1}`),
		}},
		ResultColumns:  []string{"vendor", "tags", "raw"},
		ResultRowCount: &count,
		Error:          &msg,
		FinishedAt:     &finished,
	}

	c := orig.Clone()
	require.Equal(t, orig, c)

	c.Narration[0] = "changed"
	c.Log[0].Text = "changed"
	*c.CandidateQuery = "changed"
	c.ResultRows[0]["vendor"] = "changed"
	c.ResultRows[0]["tags"].([]any)[1].(map[string]any)["k"] = "changed"
	c.ResultRows[0]["raw"].(json.RawMessage)[1] = 'x'
	c.ResultColumns[0] = "changed"
	*c.ResultRowCount = 9
	*c.Error = "changed"
	*c.FinishedAt = time.Time{}

	assert.Equal(t, "a", orig.Narration[0])
	assert.Equal(t, "x", orig.Log[0].Text)
	assert.Equal(t, "SELECT 1", *orig.CandidateQuery)
	assert.Equal(t, "Acme", orig.ResultRows[0]["vendor"])
	assert.Equal(t, "v", orig.ResultRows[0]["tags"].([]any)[1].(map[string]any)["k"])
	assert.JSONEq(t, `{"n":1}`, string(orig.ResultRows[0]["raw"].(json.RawMessage)))
	assert.Equal(t, "vendor", orig.ResultColumns[0])
	assert.Equal(t, 1, *orig.ResultRowCount)
	assert.Equal(t, "boom", *orig.Error)
	assert.Equal(t, finished, *orig.FinishedAt)
}

func TestSession_CloneKeepsNilRows(t *testing.T) {
	assert.Nil(t, Session{}.Clone().ResultRows)
	assert.NotNil(t, Session{ResultRows: []Row{}}.Clone().ResultRows)
}

func TestErrorConstructors(t *testing.T) {
	assert.EqualError(t, ErrNotFound("chat %s not found", "x"), "chat x not found")
	assert.EqualError(t, ErrValidation("bad %d", 1), "bad 1")
	assert.EqualError(t, ErrConflict("busy"), "busy")
	assert.EqualError(t, &RemoteRejectionError{StatusCode: 503}, "analytics service returned status 503")
	assert.EqualError(t, &RemoteRejectionError{StatusCode: 400, Body: "no"}, "no")
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestValidID(t *testing.T) {
	id := NewID()
	assert.True(t, ValidID(id))
	assert.False(t, ValidID(strings.ToUpper(id)))
	assert.False(t, ValidID("{"+id+"}"))
	assert.False(t, ValidID("urn:uuid:"+id))
	assert.False(t, ValidID("../etc/passwd"))
	assert.False(t, ValidID(""))
}
