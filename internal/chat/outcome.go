// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
)

// Outcome is the result of a generation as shown to the user.
type Outcome struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`

	// Error is the short failure message.
	Error string `json:"error,omitempty"`
	// Remediation is the longer, category-specific text for display.
	Remediation string `json:"remediation,omitempty"`
}

// Succeeded builds a successful outcome.
func Succeeded(response string) Outcome {
	return Outcome{Success: true, Response: response}
}

// Failed builds a failed outcome for msg. model fills in the pull
// instructions of the remediation text.
func Failed(msg, model string) Outcome {
	return Outcome{Error: msg, Remediation: Remediate(msg, model)}
}

// =============================================================================
// FAILURE MESSAGES
// =============================================================================

const (
	// MsgNotRunning is reported when no candidate address answers.
	MsgNotRunning = `Ollama service is not running. Please start Ollama by running "ollama serve" in a terminal.`

	// generateFailedPrefix is prepended to dispatch and stream failures.
	generateFailedPrefix = "Failed to generate response: "
)

// PullFailedMessage is reported when the model pull fails.
func PullFailedMessage(model string) string {
	return fmt.Sprintf("Could not pull model %s. Please make sure you have an internet connection and try again.", model)
}

// StillMissingMessage is reported when the model is absent after a pull
// that reported success.
func StillMissingMessage(model string) string {
	return fmt.Sprintf("Model %s could not be loaded after pulling. Please try selecting a different model.", model)
}

// =============================================================================
// REMEDIATION
// =============================================================================

const remediationHeader = "An error occurred while generating the response.\n\n"

// Remediate chooses the remediation text for msg by category.
func Remediate(msg, model string) string {
	var body string
	switch {
	case strings.Contains(msg, "not running"):
		body = "Ollama is not running. Please:\n" +
			"1. Open a new terminal\n" +
			"2. Run the command: ollama serve\n" +
			"3. Keep that terminal open\n" +
			"4. Try sending your message again"

	case strings.Contains(msg, "Could not pull model"):
		body = msg + "\n\nPlease try:\n" +
			"1. Checking your internet connection\n" +
			"2. Selecting a different model\n" +
			fmt.Sprintf("3. Running 'ollama pull %s' in a terminal", model)

	case strings.Contains(msg, "Failed to connect"), strings.Contains(msg, "connection refused"):
		body = "Could not connect to Ollama. Please ensure that:\n" +
			"1. Ollama is running (open a new terminal and run: ollama serve)\n" +
			"2. No firewall is blocking port 11434\n" +
			"3. Try restarting the Ollama service"

	default:
		body = msg + "\n\nPlease try:\n" +
			"1. Refreshing the available models\n" +
			"2. Selecting a different model\n" +
			"3. Restarting the application"
	}
	return remediationHeader + body
}
