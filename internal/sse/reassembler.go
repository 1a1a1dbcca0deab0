// Package sse reassembles server-sent event frames from an unbounded byte
// stream whose reads are not aligned to frame boundaries.
package sse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"unicode/utf8"
)

const defaultReadSize = 4096

var (
	// ErrMalformedEncoding is returned when a frame is not valid UTF-8.
	// It is fatal for the stream.
	ErrMalformedEncoding = errors.New("sse: malformed utf-8 in stream")

	// ErrFlushed is returned by Feed after end of stream was signalled.
	ErrFlushed = errors.New("sse: reassembler already flushed")

	errNoSource = errors.New("sse: reassembler has no source reader")
)

// Reassembler turns chunks of bytes into complete frames. A frame ends at a
// blank line; partial frames stay buffered until the rest arrives.
//
// The zero value is ready for push-mode use through Feed and Flush.
// NewReassembler adds pull-mode reading through Next and Frames.
// A Reassembler is single-use and not safe for concurrent use.
type Reassembler struct {
	src     io.Reader
	readBuf []byte

	buf  []byte
	scan int // no boundary starts before this offset of buf

	pending []Frame
	flushed bool
	err     error
}

// NewReassembler returns a Reassembler that reads from src on demand.
func NewReassembler(src io.Reader) *Reassembler {
	return &Reassembler{src: src}
}

// Feed appends a chunk and returns every frame completed by it, in order.
// Whitespace-only frames (runs of blank lines) are dropped.
func (r *Reassembler) Feed(chunk []byte) ([]Frame, error) {
	if r.flushed {
		return nil, ErrFlushed
	}
	r.buf = append(r.buf, chunk...)

	var frames []Frame
	for {
		end, next, ok := r.nextBoundary()
		if !ok {
			return frames, nil
		}
		body := r.buf[:end]
		valid := utf8.Valid(body)
		frame := Frame{raw: string(body)}

		n := copy(r.buf, r.buf[next:])
		r.buf = r.buf[:n]
		r.scan = 0

		if !valid {
			return frames, ErrMalformedEncoding
		}
		if frame.Empty() {
			continue
		}
		frames = append(frames, frame)
	}
}

// Flush signals end of stream. A non-blank remainder is returned as the final
// frame; otherwise ok is false. Later calls return nothing.
func (r *Reassembler) Flush() (frame Frame, ok bool, err error) {
	if r.flushed {
		return Frame{}, false, nil
	}
	r.flushed = true
	rest := r.buf
	r.buf = nil
	r.scan = 0

	if len(bytes.TrimSpace(rest)) == 0 {
		return Frame{}, false, nil
	}
	if !utf8.Valid(rest) {
		return Frame{}, false, ErrMalformedEncoding
	}
	return Frame{raw: string(rest)}, true, nil
}

// Buffered returns the number of bytes held for an incomplete frame.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// nextBoundary finds the first blank line in buf. end is where the frame body
// stops and next is where the following frame starts. A terminator that could
// still become a boundary once more bytes arrive leaves ok false and scan
// parked on it.
func (r *Reassembler) nextBoundary() (end, next int, ok bool) {
	buf := r.buf
	for i := r.scan; i < len(buf); i++ {
		if buf[i] != '\n' {
			continue
		}
		if i+1 >= len(buf) {
			r.scan = i
			return 0, 0, false
		}
		switch buf[i+1] {
		case '\n':
			return i, i + 2, true
		case '\r':
			if i+2 >= len(buf) {
				r.scan = i
				return 0, 0, false
			}
			if buf[i+2] == '\n' {
				return i, i + 3, true
			}
		}
	}
	r.scan = len(buf)
	return 0, 0, false
}

// Next returns the next frame, reading from the source as needed. It returns
// io.EOF once the source is exhausted and the remainder has been flushed.
// Any other error is sticky.
func (r *Reassembler) Next() (Frame, error) {
	for {
		if len(r.pending) > 0 {
			f := r.pending[0]
			r.pending = r.pending[1:]
			return f, nil
		}
		if r.err != nil {
			return Frame{}, r.err
		}
		if r.flushed {
			return Frame{}, io.EOF
		}
		if r.src == nil {
			return Frame{}, errNoSource
		}
		r.fill()
	}
}

// fill performs one read from the source and queues the frames it completes.
func (r *Reassembler) fill() {
	if r.readBuf == nil {
		r.readBuf = make([]byte, defaultReadSize)
	}
	n, readErr := r.src.Read(r.readBuf)
	if n > 0 {
		frames, err := r.Feed(r.readBuf[:n])
		r.pending = append(r.pending, frames...)
		if err != nil {
			r.err = err
			return
		}
	}

	switch {
	case readErr == nil:
	case errors.Is(readErr, io.EOF):
		frame, ok, err := r.Flush()
		if err != nil {
			r.err = err
			return
		}
		if ok {
			r.pending = append(r.pending, frame)
		}
	default:
		r.err = fmt.Errorf("sse: read stream: %w", readErr)
	}
}

// Frames yields frames until the stream ends. A terminal error other than
// io.EOF is yielded once as the last element.
func (r *Reassembler) Frames() iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		for {
			f, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Frame{}, err)
				return
			}
			if !yield(f, nil) {
				return
			}
		}
	}
}
