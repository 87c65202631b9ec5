// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jeranaias/rigchat/internal/telemetry"
)

// =============================================================================
// MODEL AVAILABILITY
// =============================================================================

// ListModelsUnavailableMessage is shown when the model listing fails.
const ListModelsUnavailableMessage = "Could not connect to Ollama. Please make sure Ollama is running and accessible."

// PullProgressFunc receives progress records while a model is pulled.
type PullProgressFunc func(PullProgress)

// ListModels retrieves all installed models from Ollama.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var result ListModelsResponse
	if err := c.dispatcher.DoJSON(ctx, http.MethodGet, PathTags, nil, &result); err != nil {
		return nil, err
	}
	if result.Models == nil {
		return []ModelInfo{}, nil
	}
	return result.Models, nil
}

// ModelList is ListModels in the boundary shape: failures become
// Success=false with an empty list and an operator-facing message.
func (c *Client) ModelList(ctx context.Context) ModelListResult {
	models, err := c.ListModels(ctx)
	if err != nil {
		slog.Error("list_models_failed", "error", err)
		return ModelListResult{Success: false, Models: []ModelInfo{}, Error: ListModelsUnavailableMessage}
	}
	return ModelListResult{Success: true, Models: models}
}

// Exists reports whether a model with exactly this name is installed.
// A failed listing counts as absent.
func (c *Client) Exists(ctx context.Context, name string) bool {
	models, err := c.ListModels(ctx)
	if err != nil {
		slog.Warn("model_check_failed", "model", name, "error", err)
		return false
	}
	for _, m := range models {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Ensure makes sure name is installed, pulling it when absent.
//
// The check always goes to the server. When the model is missing a single
// pull is issued and the listing is checked once more. The error is non-nil
// only when the pull itself failed; (false, nil) means the pull reported
// success but the model is still not listed.
func (c *Client) Ensure(ctx context.Context, name string) (bool, error) {
	return c.EnsureWithProgress(ctx, name, nil)
}

// EnsureWithProgress is Ensure with a pull progress callback.
func (c *Client) EnsureWithProgress(ctx context.Context, name string, progress PullProgressFunc) (bool, error) {
	if c.Exists(ctx, name) {
		return true, nil
	}

	slog.Info("model_missing", "model", name)
	if err := c.Pull(ctx, name, progress); err != nil {
		return false, err
	}

	if !c.Exists(ctx, name) {
		slog.Warn("model_missing_after_pull", "model", name)
		return false, nil
	}
	return true, nil
}

// Pull asks Ollama to download name and blocks until the progress stream
// ends. A progress record with an "error" field fails the pull.
func (c *Client) Pull(ctx context.Context, name string, progress PullProgressFunc) error {
	body, err := json.Marshal(PullRequest{Name: name})
	if err != nil {
		return &ClientError{Type: ErrTypeModelNotFound, Message: "failed to marshal request", Cause: err}
	}

	slog.Info("model_pull_start", "model", name)
	resp, err := c.dispatcher.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        PathPull,
		Body:        body,
		LongRunning: true,
	})
	if err != nil {
		telemetry.RecordModelPull(false)
		return &ClientError{Type: ErrTypeModelNotFound, Message: "failed to pull model " + name, Cause: err}
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lastStatus := ""
	for scanner.Scan() {
		var p PullProgress
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			continue
		}
		if p.Error != "" {
			telemetry.RecordModelPull(false)
			return &ClientError{Type: ErrTypeModelNotFound, Message: "failed to pull model " + name, Cause: &ClientError{Type: ErrTypeApplication, Message: p.Error}}
		}
		if p.Status != lastStatus {
			slog.Debug("model_pull_progress", "model", name, "status", p.Status)
			lastStatus = p.Status
		}
		if progress != nil {
			progress(p)
		}
	}
	if err := scanner.Err(); err != nil {
		telemetry.RecordModelPull(false)
		return &ClientError{Type: ErrTypeModelNotFound, Message: "failed to pull model " + name, Cause: &ClientError{Type: ErrTypeTransport, Message: ErrTransport.Message, Cause: err}}
	}

	telemetry.RecordModelPull(true)
	slog.Info("model_pull_complete", "model", name)
	return nil
}
