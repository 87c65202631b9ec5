// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/storage"
)

// Exit codes, by error category.
const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
)

// usageError marks bad arguments that cobra did not catch itself.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func newUsageError(msg string) error {
	return &usageError{msg: msg}
}

// generationError reports a failed generation. The remediation text has
// already been printed.
type generationError struct {
	msg string
	// unreachable is set when the server could not be reached at all.
	unreachable bool
}

func (e *generationError) Error() string { return e.msg }

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		usage *usageError
		gen   *generationError
		vErr  config.ValidateErrors
		cErr  *ollama.ClientError
	)
	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &vErr):
		return ExitConfigError
	case errors.As(err, &gen):
		if gen.unreachable {
			return ExitNetworkError
		}
		return ExitGeneralError
	case errors.Is(err, storage.ErrConversationNotFound):
		return ExitNotFoundError
	case errors.As(err, &cErr) && ollama.IsUnreachable(err):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}
