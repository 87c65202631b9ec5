// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/jeranaias/rigchat/internal/telemetry"
)

// =============================================================================
// STREAM REASSEMBLER
// =============================================================================

// maxLineSize bounds one stream record, matching the pull progress scanner.
const maxLineSize = 1024 * 1024

// Reassembler turns a newline-delimited JSON body into stream events.
//
// Chunk boundaries are chosen by the transport, so the bufio.Reader keeps any
// partial line buffered until its newline arrives. A line that still fails to
// parse, or runs past maxLineSize, is skipped; only an explicit "error" field
// ends the stream early.
type Reassembler struct {
	reader *bufio.Reader
	line   []byte
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	events      int
	skipped     int
}

// streamRecord is the subset of a /api/chat stream line we care about.
type streamRecord struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error"`
	Done  bool   `json:"done"`
}

// NewReassembler creates a reassembler reading from r.
func NewReassembler(r io.Reader) *Reassembler {
	return &Reassembler{reader: bufio.NewReader(r)}
}

// Reassemble consumes body, emitting events to sink, and returns the joined
// content. See Reassembler.Run.
func Reassemble(ctx context.Context, body io.Reader, sink Sink) (string, error) {
	return NewReassembler(body).Run(ctx, sink)
}

// Run reads the stream to the end.
//
// Emits content for every record with non-empty message content and done when
// the transport ends cleanly. An "error" record emits one error event and
// returns an ErrTypeApplication error; a read failure emits one error event
// and returns an ErrTypeTransport error. Nothing is emitted after an error.
func (r *Reassembler) Run(ctx context.Context, sink Sink) (string, error) {
	if sink == nil {
		sink = Discard
	}

	for {
		if err := ctx.Err(); err != nil {
			r.emit(sink, ErrorEvent(err.Error()))
			return r.accumulator.String(), err
		}

		line, oversize, readErr := r.readLine()
		if oversize {
			r.skipped++
			slog.Debug("stream_line_skipped", "reason", "line too long", "limit", maxLineSize)
		} else if len(line) > 0 {
			if appErr := r.handleLine(line, sink); appErr != nil {
				return r.accumulator.String(), appErr
			}
		}

		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			r.emit(sink, DoneEvent())
			slog.Debug("stream_complete", "events", r.events, "skipped_lines", r.skipped, "bytes", r.accumulator.Len())
			return r.accumulator.String(), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			readErr = ctxErr
		}
		r.emit(sink, ErrorEvent(readErr.Error()))
		slog.Warn("stream_transport_error", "error", readErr)
		return r.accumulator.String(), &ClientError{Type: ErrTypeTransport, Message: ErrTransport.Message, Cause: readErr}
	}
}

// readLine returns the next line, newline included. A line longer than
// maxLineSize is read to its end and dropped, reported as oversize. The
// returned slice is valid until the next call.
func (r *Reassembler) readLine() ([]byte, bool, error) {
	r.line = r.line[:0]
	oversize := false
	for {
		chunk, err := r.reader.ReadSlice('\n')
		if !oversize {
			if len(r.line)+len(chunk) > maxLineSize {
				oversize = true
				r.line = r.line[:0]
			} else {
				r.line = append(r.line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if oversize {
			return nil, true, err
		}
		return r.line, false, err
	}
}

// handleLine parses one line. It returns a non-nil error only for an
// application-level error record, after emitting the matching event.
func (r *Reassembler) handleLine(line []byte, sink Sink) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var rec streamRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		// Skip malformed lines
		r.skipped++
		slog.Debug("stream_line_skipped", "error", err, "line", truncateForLog(line))
		return nil
	}

	if rec.Error != "" {
		r.emit(sink, ErrorEvent(rec.Error))
		slog.Warn("stream_application_error", "error", rec.Error)
		return &ClientError{Type: ErrTypeApplication, Message: rec.Error}
	}

	if rec.Message != nil && rec.Message.Content != "" {
		r.accumulator.WriteString(rec.Message.Content)
		r.emit(sink, ContentEvent(rec.Message.Content))
	}
	return nil
}

func (r *Reassembler) emit(sink Sink, ev StreamEvent) {
	r.events++
	telemetry.RecordStreamEvent(string(ev.Kind))
	sink.Emit(ev)
}

// GetAccumulated returns all accumulated content.
func (r *Reassembler) GetAccumulated() string {
	return r.accumulator.String()
}

func truncateForLog(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
