// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/telemetry"
)

// ThinkingPrefix is prepended to the prompt in thinking mode.
const ThinkingPrefix = "Let's approach this step by step:\n\n"

// Backend is the part of the Ollama client a generation needs.
// *ollama.Client implements it.
type Backend interface {
	Available(ctx context.Context) bool
	EnsureWithProgress(ctx context.Context, name string, progress ollama.PullProgressFunc) (bool, error)
	Chat(ctx context.Context, req ollama.ChatRequest) (string, error)
	ChatStream(ctx context.Context, req ollama.ChatRequest, sink ollama.Sink) (string, error)
}

// Request describes one generation.
type Request struct {
	Model   string
	Prompt  string
	History []model.Message

	// Thinking prefixes the prompt sent to the model with ThinkingPrefix.
	Thinking bool

	// Progress receives model pull progress, if a pull is needed.
	Progress ollama.PullProgressFunc

	// OnState observes every state transition.
	OnState func(State)
}

// Orchestrator runs generations against a Backend. It is safe for
// concurrent use, though callers normally serialize generations.
type Orchestrator struct {
	backend Backend

	mu      sync.RWMutex
	options ollama.Options

	seq atomic.Uint64
}

// NewOrchestrator creates an orchestrator using opts as sampling options
// (ollama.DefaultOptions when nil).
func NewOrchestrator(backend Backend, opts *ollama.Options) *Orchestrator {
	if opts == nil {
		opts = ollama.DefaultOptions()
	}
	return &Orchestrator{backend: backend, options: *opts}
}

// SetOptions replaces the sampling options for later generations.
func (o *Orchestrator) SetOptions(opts ollama.Options) {
	o.mu.Lock()
	o.options = opts
	o.mu.Unlock()
}

// Options returns the current sampling options.
func (o *Orchestrator) Options() ollama.Options {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.options
}

// BuildMessages maps history to the wire format, in order, and appends
// prompt as the final user message.
func BuildMessages(history []model.Message, prompt string) []ollama.Message {
	msgs := model.ToOllama(history)
	return append(msgs, ollama.NewUserMessage(prompt))
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate runs a single-shot generation.
func (o *Orchestrator) Generate(ctx context.Context, req Request) Outcome {
	g := o.begin(req, telemetry.ModeSingle)

	if out, ok := o.preflight(ctx, g, req); !ok {
		return o.finish(g, out)
	}

	g.transition(StateDispatching)
	text, err := o.backend.Chat(ctx, o.chatRequest(req))
	if err != nil {
		slog.Warn("generation_failed", "id", g.id, "model", req.Model, "type", ollama.TypeOf(err).String(), "error", err)
		return o.finish(g, Failed(generateFailedPrefix+errMessage(err), req.Model))
	}
	return o.finish(g, Succeeded(text))
}

// GenerateStreaming runs a streaming generation, sending events to sink as
// they arrive. Every failure reaches sink as exactly one error event, and
// the same failure is returned in the Outcome.
func (o *Orchestrator) GenerateStreaming(ctx context.Context, req Request, sink ollama.Sink) Outcome {
	g := o.begin(req, telemetry.ModeStream)
	guard := newTerminalSink(sink)

	if out, ok := o.preflight(ctx, g, req); !ok {
		guard.Emit(ollama.ErrorEvent(out.Error))
		return o.finish(g, out)
	}

	g.transition(StateDispatching)
	text, err := o.backend.ChatStream(ctx, o.chatRequest(req), guard)
	if err != nil {
		slog.Warn("generation_failed", "id", g.id, "model", req.Model, "type", ollama.TypeOf(err).String(), "error", err)
		out := Failed(generateFailedPrefix+errMessage(err), req.Model)
		// Dispatch failures happen before the stream starts, so nothing
		// has told the sink yet.
		if !guard.terminated() {
			guard.Emit(ollama.ErrorEvent(out.Error))
		}
		return o.finish(g, out)
	}
	return o.finish(g, Succeeded(text))
}

// preflight checks the server and the model. It returns ok=false with the
// failed outcome when the generation cannot proceed.
func (o *Orchestrator) preflight(ctx context.Context, g *generation, req Request) (Outcome, bool) {
	if req.Model == "" {
		return Failed("No model selected. Please select a model first.", req.Model), false
	}

	g.transition(StateCheckingAvailability)
	if !o.backend.Available(ctx) {
		slog.Warn("ollama_unavailable", "id", g.id)
		return Failed(MsgNotRunning, req.Model), false
	}

	g.transition(StateEnsuringModel)
	ok, err := o.backend.EnsureWithProgress(ctx, req.Model, req.Progress)
	if err != nil {
		slog.Warn("model_pull_failed", "id", g.id, "model", req.Model, "error", err)
		return Failed(PullFailedMessage(req.Model), req.Model), false
	}
	if !ok {
		return Failed(StillMissingMessage(req.Model), req.Model), false
	}
	return Outcome{}, true
}

func (o *Orchestrator) chatRequest(req Request) ollama.ChatRequest {
	prompt := req.Prompt
	if req.Thinking {
		prompt = ThinkingPrefix + prompt
	}
	opts := o.Options()
	return ollama.ChatRequest{
		Model:    req.Model,
		Messages: BuildMessages(req.History, prompt),
		Options:  &opts,
	}
}

func (o *Orchestrator) begin(req Request, mode string) *generation {
	g := &generation{
		id:      o.seq.Add(1),
		mode:    mode,
		model:   req.Model,
		state:   StateIdle,
		started: time.Now(),
		observe: req.OnState,
	}
	slog.Info("generation_start", "id", g.id, "mode", mode, "model", req.Model, "history", len(req.History))
	return g
}

func (o *Orchestrator) finish(g *generation, out Outcome) Outcome {
	if out.Success {
		g.transition(StateCompleted)
	} else {
		g.transition(StateFailed)
	}
	elapsed := time.Since(g.started)
	telemetry.RecordGeneration(g.mode, out.Success, elapsed)
	slog.Info("generation_end", "id", g.id, "success", out.Success, "elapsed", elapsed)
	return out
}

// errMessage returns the user-facing part of err. Context errors are
// reported plainly; everything else uses its full chain.
func errMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request was cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return err.Error()
	}
}
