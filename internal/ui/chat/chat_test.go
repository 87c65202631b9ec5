// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/monitor"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/ui/components"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// FAKE SERVICE
// =============================================================================

type fakeService struct {
	mu       sync.Mutex
	convs    map[string]*model.Conversation
	order    []string
	model    string
	thinking bool
	models   ollama.ModelListResult

	// reply is streamed in chunks; fail, when set, is returned instead.
	reply []string
	fail  *core.Outcome
	block chan struct{}
	sends []string
}

func newFakeService() *fakeService {
	return &fakeService{
		convs: make(map[string]*model.Conversation),
		model: "deepseek-coder:6.7b",
		reply: []string{"po", "ng"},
		models: ollama.ModelListResult{
			Success: true,
			Models:  []ollama.ModelInfo{{Name: "deepseek-coder:6.7b"}, {Name: "llama3"}},
		},
	}
}

func (f *fakeService) GetChatHistory() ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Conversation, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.convs[id].Clone())
	}
	return out, nil
}

func (f *fakeService) GetChat(id string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, storage.ErrConversationNotFound
	}
	return c.Clone(), nil
}

func (f *fakeService) NewChat() (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := model.NewConversation()
	f.convs[c.ID] = c
	f.order = append(f.order, c.ID)
	return c.Clone(), nil
}

func (f *fakeService) DeleteChat(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.convs, id)
	for i, o := range f.order {
		if o == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeService) Send(ctx context.Context, id, prompt string, sink ollama.Sink) (core.Outcome, error) {
	f.mu.Lock()
	c, ok := f.convs[id]
	if !ok {
		f.mu.Unlock()
		return core.Outcome{}, storage.ErrConversationNotFound
	}
	c.AppendUser(prompt)
	f.sends = append(f.sends, prompt)
	block, fail, reply := f.block, f.fail, f.reply
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return core.Failed("request was cancelled", f.model), nil
		}
	}
	if fail != nil {
		return *fail, nil
	}

	var text string
	for _, chunk := range reply {
		sink.Emit(ollama.ContentEvent(chunk))
		text += chunk
	}
	sink.Emit(ollama.DoneEvent())

	f.mu.Lock()
	c.AppendAssistant(text)
	f.mu.Unlock()
	return core.Succeeded(text), nil
}

func (f *fakeService) GetAvailableModels(context.Context) ollama.ModelListResult {
	return f.models
}

func (f *fakeService) GetModelName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.model
}

func (f *fakeService) SetModelName(name string) error {
	if name == "" {
		return errors.New("model name is empty")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.model = name
	return nil
}

func (f *fakeService) Thinking() bool     { return f.thinking }
func (f *fakeService) SetThinking(on bool) { f.thinking = on }

func (f *fakeService) SetPullProgress(ollama.PullProgressFunc) {}

// =============================================================================
// HELPERS
// =============================================================================

func newTestModel(t *testing.T, svc *fakeService) Model {
	t.Helper()
	m := New(context.Background(), svc, Options{Theme: styles.NewThemeFor(termenv.Ascii, true)})
	return update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func press(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

// generationResult runs the commands of a submit and returns the
// GenerationDoneMsg among their results.
func generationResult(t *testing.T, cmd tea.Cmd) GenerationDoneMsg {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	require.True(t, ok, "submit returns a batch")
	for _, c := range batch {
		if c == nil {
			continue
		}
		if done, ok := c().(GenerationDoneMsg); ok {
			return done
		}
	}
	t.Fatal("no GenerationDoneMsg in batch")
	return GenerationDoneMsg{}
}

func submit(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	return updateCmd(t, m, press(tea.KeyEnter))
}

// =============================================================================
// GENERATION
// =============================================================================

func TestSubmit_CreatesConversationAndStoresReply(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)
	assert.Contains(t, m.View(), "Chat with a local Ollama model")

	m, cmd := submit(t, m, "  ping  ")
	require.NotNil(t, m.Conversation())
	assert.Equal(t, StateStreaming, m.State())
	assert.Empty(t, m.input.Value())
	require.Len(t, m.Conversation().Messages, 1)
	assert.Equal(t, "ping", m.Conversation().Messages[0].Content)

	done := generationResult(t, cmd)
	require.NoError(t, done.Err)
	assert.True(t, done.Outcome.Success)
	assert.Equal(t, m.Conversation().ID, done.ConversationID)

	m = update(t, m, done)
	assert.Equal(t, StateReady, m.State())
	require.Len(t, m.Conversation().Messages, 2)
	assert.Equal(t, model.RoleAssistant, m.Conversation().Messages[1].Role)
	assert.Equal(t, "pong", m.Conversation().Messages[1].Content)
	assert.Equal(t, []string{"ping"}, svc.sends)
	assert.Contains(t, m.View(), "pong")
}

func TestSubmit_EmptyInputIgnored(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)

	m, cmd := submit(t, m, "   ")
	assert.Nil(t, cmd)
	assert.Nil(t, m.Conversation())
	assert.Equal(t, StateReady, m.State())
}

func TestSubmit_BlockedWhileStreaming(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)

	m, _ = submit(t, m, "first")
	m, cmd := submit(t, m, "second")
	assert.Nil(t, cmd)
	assert.Equal(t, busyNotice, m.Notice())
	assert.Equal(t, "second", m.input.Value())
}

func TestStreamTick_FlushesBuffer(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)
	m, _ = submit(t, m, "ping")

	m.buffer.Write("par")
	m.buffer.Write("tial")
	m, cmd := updateCmd(t, m, StreamTickMsg{})
	assert.NotNil(t, cmd, "ticks continue while streaming")
	assert.Equal(t, "partial", m.streaming)
	assert.Contains(t, m.View(), "partial")

	m.state = StateReady
	_, cmd = updateCmd(t, m, StreamTickMsg{})
	assert.Nil(t, cmd, "ticks stop once the stream is done")
}

func TestGenerationFailure_ShowsRemediation(t *testing.T) {
	svc := newFakeService()
	failed := core.Failed("Ollama service is not running.", svc.model)
	svc.fail = &failed
	m := newTestModel(t, svc)

	m, cmd := submit(t, m, "ping")
	m = update(t, m, generationResult(t, cmd))

	require.NotNil(t, m.failure)
	assert.Equal(t, components.StatusError, m.status.Status)
	view := m.View()
	assert.Contains(t, view, "Ollama service is not running.")
	// The prompt is kept; no reply is stored.
	require.Len(t, m.Conversation().Messages, 1)

	m = update(t, m, press(tea.KeyEsc))
	assert.Nil(t, m.failure)
}

func TestGenerationDone_StaleIgnored(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)
	m, _ = submit(t, m, "ping")

	m = update(t, m, GenerationDoneMsg{ID: m.genID - 1, Outcome: core.Succeeded("old")})
	assert.Equal(t, StateStreaming, m.State())
}

func TestGenerationDone_SendError(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)
	m, _ = submit(t, m, "ping")

	m = update(t, m, GenerationDoneMsg{ID: m.genID, Err: errors.New("disk full")})
	assert.Equal(t, StateReady, m.State())
	assert.Equal(t, "disk full", m.Notice())
	assert.Equal(t, components.StatusError, m.status.Status)
}

func TestCancel_StopsGeneration(t *testing.T) {
	svc := newFakeService()
	svc.block = make(chan struct{})
	m := newTestModel(t, svc)

	m, cmd := submit(t, m, "ping")
	m = update(t, m, press(tea.KeyEsc))
	assert.Equal(t, "Stopping...", m.Notice())

	done := generationResult(t, cmd)
	assert.False(t, done.Outcome.Success)

	m = update(t, m, done)
	assert.Equal(t, StateReady, m.State())
	assert.Equal(t, "Generation stopped.", m.Notice())
	assert.Nil(t, m.failure)
}

// =============================================================================
// KEYS AND VIEWS
// =============================================================================

func TestNewChat(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)
	m, cmd := submit(t, m, "ping")
	m = update(t, m, generationResult(t, cmd))
	require.NotNil(t, m.Conversation())

	m = update(t, m, press(tea.KeyCtrlN))
	assert.Nil(t, m.Conversation())
	assert.Contains(t, m.View(), "New Conversation")
}

func TestThinkingToggle(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)

	m = update(t, m, press(tea.KeyCtrlT))
	assert.True(t, svc.thinking)
	assert.True(t, m.status.Thinking)

	m = update(t, m, press(tea.KeyCtrlT))
	assert.False(t, svc.thinking)
	assert.Equal(t, "Thinking mode off.", m.Notice())
}

func TestModelsPicker_Select(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)

	m, cmd := updateCmd(t, m, press(tea.KeyCtrlK))
	assert.Equal(t, ViewModels, m.CurrentView())
	require.NotNil(t, cmd)
	m = update(t, m, cmd())

	m = update(t, m, press(tea.KeyDown))
	m = update(t, m, press(tea.KeyEnter))
	assert.Equal(t, ViewChat, m.CurrentView())
	assert.Equal(t, "llama3", svc.GetModelName())
	assert.Equal(t, "llama3", m.status.ModelName)
}

func TestModelsPicker_ListFailure(t *testing.T) {
	svc := newFakeService()
	svc.models = ollama.ModelListResult{Error: "Ollama service is not running."}
	m := newTestModel(t, svc)

	m = update(t, m, ModelsMsg{Result: svc.models})
	assert.Equal(t, "Ollama service is not running.", m.Notice())
	assert.Empty(t, m.models.Items())
}

func TestChatsPicker_OpenAndDelete(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)
	m, cmd := submit(t, m, "first question")
	m = update(t, m, generationResult(t, cmd))
	firstID := m.Conversation().ID
	m = update(t, m, press(tea.KeyCtrlN))

	m, cmd = updateCmd(t, m, press(tea.KeyCtrlO))
	assert.Equal(t, ViewChats, m.CurrentView())
	m = update(t, m, cmd())
	require.Len(t, m.chats.Items(), 1)

	m = update(t, m, press(tea.KeyEnter))
	assert.Equal(t, ViewChat, m.CurrentView())
	require.NotNil(t, m.Conversation())
	assert.Equal(t, firstID, m.Conversation().ID)
	assert.Len(t, m.Conversation().Messages, 2)

	m, _ = updateCmd(t, m, press(tea.KeyCtrlO))
	m = update(t, m, ConversationsMsg{Conversations: mustHistory(t, svc)})
	m, cmd = updateCmd(t, m, press(tea.KeyCtrlD))
	assert.Nil(t, m.Conversation(), "deleting the open conversation clears the screen")
	assert.Contains(t, m.Notice(), "Deleted")
	m = update(t, m, cmd())
	assert.Empty(t, m.chats.Items())

	m = update(t, m, press(tea.KeyEsc))
	assert.Equal(t, ViewChat, m.CurrentView())
}

func mustHistory(t *testing.T, svc *fakeService) []model.Conversation {
	t.Helper()
	convs, err := svc.GetChatHistory()
	require.NoError(t, err)
	return convs
}

func TestHelpOverlay(t *testing.T) {
	m := newTestModel(t, newFakeService())

	m = update(t, m, press(tea.KeyF1))
	assert.Contains(t, m.View(), "new chat")
	m = update(t, m, press(tea.KeyRunes))
	assert.False(t, m.showHelp)
}

func TestServerStatusAndPull(t *testing.T) {
	m := newTestModel(t, newFakeService())

	m = update(t, m, ServerStatusMsg{Status: monitor.StatusChange{Available: true, BaseURL: "http://127.0.0.1:11434"}})
	require.NotNil(t, m.status.Online)
	assert.True(t, *m.status.Online)

	m = update(t, m, PullProgressMsg{Progress: ollama.PullProgress{Status: "downloading", Total: 200, Completed: 50}})
	assert.Equal(t, components.StatusPulling, m.status.Status)
	assert.Equal(t, "pull: downloading 25%", m.status.Detail)
	assert.Equal(t, "pull: verifying", pullDetail(PullProgressMsg{Progress: ollama.PullProgress{Status: "verifying"}}))
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, newFakeService())
	_, cmd := updateCmd(t, m, press(tea.KeyCtrlC))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestView_BeforeSize(t *testing.T) {
	m := New(context.Background(), newFakeService(), Options{Theme: styles.NewThemeFor(termenv.Ascii, true)})
	assert.Equal(t, "Initializing...", m.View())
}
