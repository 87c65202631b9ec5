// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	core "github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/ui/components"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// Service is the part of app.Service the chat screen drives.
type Service interface {
	GetChatHistory() ([]model.Conversation, error)
	GetChat(id string) (*model.Conversation, error)
	NewChat() (*model.Conversation, error)
	DeleteChat(id string) error
	Send(ctx context.Context, id, prompt string, sink ollama.Sink) (core.Outcome, error)
	GetAvailableModels(ctx context.Context) ollama.ModelListResult
	GetModelName() string
	SetModelName(name string) error
	Thinking() bool
	SetThinking(on bool)
	SetPullProgress(fn ollama.PullProgressFunc)
}

// Options configure the chat screen.
type Options struct {
	// RenderMarkdown formats replies with glamour. Plain wrapping otherwise.
	RenderMarkdown bool
	// Theme defaults to styles.NewTheme().
	Theme *styles.Theme
}

// View selects what fills the main area.
type View int

const (
	ViewChat View = iota
	ViewChats
	ViewModels
)

// State is the generation state of the screen.
type State int

const (
	StateReady State = iota
	StateStreaming
)

// inputHeight is the number of text rows in the prompt box.
const inputHeight = 3

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx   context.Context
	svc   Service
	opts  Options
	theme *styles.Theme
	keys  KeyMap

	view  View
	state State
	conv  *model.Conversation

	// streaming is the reply text received so far.
	streaming string
	genID     int
	stopped   bool
	buffer    *StreamingBuffer
	cancels   *cancelManager

	// failure is the last failed outcome, shown below the conversation
	// until the next send.
	failure *core.Outcome
	notice  string

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model
	status   *components.StatusBar
	chats    list.Model
	models   list.Model
	showHelp bool

	md    *components.Markdown
	cache renderCache

	width  int
	height int
	ready  bool
}

// renderCache holds the rendered messages of one conversation at one
// width. Streaming text is never cached.
type renderCache struct {
	convID   string
	width    int
	messages int
	content  string
}

func (c renderCache) valid(convID string, width, messages int) bool {
	return c.content != "" && c.convID == convID && c.width == width && c.messages == messages
}

// New creates the chat screen.
func New(ctx context.Context, svc Service, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	ta := textarea.New()
	ta.Placeholder = "Send a message... (enter to send, alt+enter for a new line)"
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	// Enter submits; the newline binding is handled by Update.
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	status := components.NewStatusBar(theme)
	status.ModelName = svc.GetModelName()
	status.Thinking = svc.Thinking()

	h := help.New()
	h.ShowAll = true

	return Model{
		ctx:      ctx,
		svc:      svc,
		opts:     opts,
		theme:    theme,
		keys:     DefaultKeyMap(),
		viewport: viewport.New(80, 20),
		input:    ta,
		spinner:  sp,
		help:     h,
		status:   status,
		chats:    components.NewPicker(theme, "Conversations", 80, 20),
		models:   components.NewPicker(theme, "Models", 80, 20),
		buffer:   NewStreamingBuffer(),
		cancels:  &cancelManager{},
	}
}

// Init starts the cursor blink and loads the model list in the background
// so the picker opens populated.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, loadModelsCmd(m.ctx, m.svc))
}

// Conversation returns the conversation on screen, or nil.
func (m Model) Conversation() *model.Conversation {
	return m.conv
}

// State returns the generation state.
func (m Model) State() State {
	return m.state
}

// CurrentView returns what fills the main area.
func (m Model) CurrentView() View {
	return m.view
}

// Notice returns the one-line message shown above the input.
func (m Model) Notice() string {
	return m.notice
}

// =============================================================================
// COMMANDS
// =============================================================================

func loadConversationsCmd(svc Service) tea.Cmd {
	return func() tea.Msg {
		convs, err := svc.GetChatHistory()
		return ConversationsMsg{Conversations: convs, Err: err}
	}
}

func loadModelsCmd(ctx context.Context, svc Service) tea.Cmd {
	return func() tea.Msg {
		return ModelsMsg{Result: svc.GetAvailableModels(ctx)}
	}
}
