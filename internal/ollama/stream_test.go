// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects emitted events.
type recorder struct {
	events []StreamEvent
}

func (r *recorder) Emit(ev StreamEvent) { r.events = append(r.events, ev) }

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

// chunkedReader returns each chunk from a separate Read call, the way a
// network body delivers data as it arrives.
type chunkedReader struct {
	chunks []string
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if c.chunks[0] == "" {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func TestReassemble_TwoRecordsInOneChunk(t *testing.T) {
	rec := &recorder{}
	body := &chunkedReader{chunks: []string{`{"message":{"content":"ab"}}` + "\n" + `{"message":{"content":"cd"}}` + "\n"}}

	got, err := Reassemble(context.Background(), body, rec)

	require.NoError(t, err)
	assert.Equal(t, "abcd", got)
	assert.Equal(t, []StreamEvent{ContentEvent("ab"), ContentEvent("cd"), DoneEvent()}, rec.events)
}

func TestReassemble_RecordSplitAcrossChunks(t *testing.T) {
	rec := &recorder{}
	body := &chunkedReader{chunks: []string{`{"message":{"con`, `tent":"x"}}` + "\n"}}

	got, err := Reassemble(context.Background(), body, rec)

	require.NoError(t, err)
	assert.Equal(t, "x", got)
	assert.Equal(t, []StreamEvent{ContentEvent("x"), DoneEvent()}, rec.events)
}

func TestReassemble_ErrorRecordIsTerminal(t *testing.T) {
	rec := &recorder{}
	body := strings.NewReader(`{"error":"boom"}` + "\n" + `{"message":{"content":"late"}}` + "\n")

	got, err := Reassemble(context.Background(), body, rec)

	require.Error(t, err)
	assert.True(t, IsApplication(err))
	assert.Equal(t, "boom", err.Error())
	assert.Empty(t, got)
	assert.Equal(t, []StreamEvent{ErrorEvent("boom")}, rec.events)
}

func TestReassemble_MalformedLineIsSkipped(t *testing.T) {
	rec := &recorder{}
	body := strings.NewReader("garbage\n" + `{"message":{"content":"ok"}}` + "\n{\"message\":\n")

	got, err := Reassemble(context.Background(), body, rec)

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, []EventKind{EventContent, EventDone}, rec.kinds())
}

func TestReassemble_OversizedLineIsSkipped(t *testing.T) {
	rec := &recorder{}
	huge := `{"message":{"content":"` + strings.Repeat("x", maxLineSize) + `"}}` + "\n"
	body := &chunkedReader{chunks: []string{`{"message":{"content":"a"}}` + "\n", huge, `{"message":{"content":"b"}}` + "\n"}}

	r := NewReassembler(body)
	got, err := r.Run(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, "ab", got)
	assert.Equal(t, []StreamEvent{ContentEvent("a"), ContentEvent("b"), DoneEvent()}, rec.events)
	assert.Equal(t, 1, r.skipped)
}

func TestReassemble_OversizedUnterminatedLine(t *testing.T) {
	rec := &recorder{}
	body := strings.NewReader(`{"message":{"content":"a"}}` + "\n" + strings.Repeat("y", 2*maxLineSize))

	got, err := Reassemble(context.Background(), body, rec)

	require.NoError(t, err)
	assert.Equal(t, "a", got)
	assert.Equal(t, []EventKind{EventContent, EventDone}, rec.kinds())
}

func TestReassemble_EmptyContentAndDoneRecords(t *testing.T) {
	rec := &recorder{}
	body := strings.NewReader(
		`{"message":{"content":""}}` + "\n\n" +
			`{"message":{"content":"hi"},"done":false}` + "\n" +
			`{"message":{"content":""},"done":true,"done_reason":"stop"}` + "\n")

	got, err := Reassemble(context.Background(), body, rec)

	require.NoError(t, err)
	assert.Equal(t, "hi", got)
	assert.Equal(t, []EventKind{EventContent, EventDone}, rec.kinds())
}

func TestReassemble_FinalLineWithoutNewline(t *testing.T) {
	rec := &recorder{}
	got, err := Reassemble(context.Background(), strings.NewReader(`{"message":{"content":"tail"}}`), rec)

	require.NoError(t, err)
	assert.Equal(t, "tail", got)
	assert.Equal(t, []EventKind{EventContent, EventDone}, rec.kinds())
}

func TestReassemble_TransportError(t *testing.T) {
	rec := &recorder{}
	body := io.MultiReader(
		strings.NewReader(`{"message":{"content":"part"}}`+"\n"),
		iotest.ErrReader(errors.New("connection reset by peer")),
	)

	got, err := Reassemble(context.Background(), body, rec)

	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, "part", got)
	require.Len(t, rec.events, 2)
	assert.Equal(t, ContentEvent("part"), rec.events[0])
	assert.Equal(t, ErrorEvent("connection reset by peer"), rec.events[1])
}

func TestReassemble_CancelledContext(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Reassemble(ctx, strings.NewReader(`{"message":{"content":"x"}}`+"\n"), rec)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []EventKind{EventError}, rec.kinds())
}

func TestReassemble_NilSink(t *testing.T) {
	got, err := Reassemble(context.Background(), strings.NewReader(`{"message":{"content":"x"}}`+"\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}

func TestChanSink(t *testing.T) {
	ch := make(chan StreamEvent, 4)
	_, err := Reassemble(context.Background(), strings.NewReader(`{"message":{"content":"a"}}`+"\n"), ChanSink(ch))
	require.NoError(t, err)
	close(ch)

	var got []StreamEvent
	for ev := range ch {
		got = append(got, ev)
	}
	assert.Equal(t, []StreamEvent{ContentEvent("a"), DoneEvent()}, got)
}
