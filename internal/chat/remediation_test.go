// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemediate_Categories(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"not running", MsgNotRunning, "Ollama is not running. Please:\n1. Open a new terminal"},
		{"pull", PullFailedMessage("phi3"), "Please try:\n1. Checking your internet connection\n2. Selecting a different model\n3. Running 'ollama pull phi3' in a terminal"},
		{"connect", "Failed to generate response: Failed to connect to Ollama: boom", "Could not connect to Ollama. Please ensure that:"},
		{"refused", "dial tcp 127.0.0.1:11434: connect: connection refused", "3. Try restarting the Ollama service"},
		{"other", "Failed to generate response: Invalid response format from Ollama", "1. Refreshing the available models\n2. Selecting a different model\n3. Restarting the application"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Remediate(tt.msg, "phi3")
			assert.True(t, strings.HasPrefix(got, "An error occurred while generating the response.\n\n"))
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestRemediate_MessageIncludedForPullAndOther(t *testing.T) {
	msg := "something odd"
	assert.Contains(t, Remediate(msg, "m"), "\n\nsomething odd\n\nPlease try:")
}

func TestOutcome(t *testing.T) {
	ok := Succeeded("hi")
	assert.True(t, ok.Success)
	assert.Empty(t, ok.Error)

	bad := Failed(MsgNotRunning, "m")
	assert.False(t, bad.Success)
	assert.Equal(t, MsgNotRunning, bad.Error)
	assert.NotEmpty(t, bad.Remediation)
}
