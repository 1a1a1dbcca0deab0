package sse

import "strings"

// DataPrefix marks a payload-carrying line inside a frame.
const DataPrefix = "data:"

// Frame is one blank-line delimited unit of the event stream.
type Frame struct {
	raw string
}

// NewFrame wraps already-delimited frame text. It is mostly useful in tests.
func NewFrame(raw string) Frame {
	return Frame{raw: raw}
}

// Raw returns the frame text as received, without the terminating blank line.
func (f Frame) Raw() string {
	return f.raw
}

// Lines returns the non-blank lines of the frame with line terminators removed.
func (f Frame) Lines() []string {
	parts := strings.Split(f.raw, "\n")
	lines := make([]string, 0, len(parts))
	for _, line := range parts {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Payloads returns the payload of every "data:" line, with the prefix and one
// optional following space removed. Comment and field lines are skipped.
func (f Frame) Payloads() []string {
	var payloads []string
	for _, line := range f.Lines() {
		payload, ok := strings.CutPrefix(line, DataPrefix)
		if !ok {
			continue
		}
		payloads = append(payloads, strings.TrimPrefix(payload, " "))
	}
	return payloads
}

// Empty reports whether the frame has no non-blank lines.
func (f Frame) Empty() bool {
	return strings.TrimSpace(f.raw) == ""
}
