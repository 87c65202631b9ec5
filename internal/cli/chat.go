// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/app"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
)

// replHistoryFile stores REPL input history in the config directory.
const replHistoryFile = "repl_history"

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads prompts from the user.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// linerInput is a lineReader with history and line editing.
type linerInput struct {
	line        *liner.State
	historyFile string
}

func newLinerInput() *linerInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &linerInput{line: line, historyFile: filepath.Join(dir, replHistoryFile)}
	if f, err := os.Open(in.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (in *linerInput) ReadLine(prompt string) (string, error) {
	text, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		in.line.AppendHistory(text)
	}
	return text, nil
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (in *linerInput) Close() error {
	if err := os.MkdirAll(filepath.Dir(in.historyFile), 0o700); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = in.line.WriteHistory(f)
			f.Close()
		}
	}
	return in.line.Close()
}

// scannerInput reads lines from a non-terminal stdin.
type scannerInput struct {
	sc  *bufio.Scanner
	out io.Writer
}

func (in *scannerInput) ReadLine(prompt string) (string, error) {
	fmt.Fprint(in.out, prompt)
	if !in.sc.Scan() {
		if err := in.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return in.sc.Text(), nil
}

func (in *scannerInput) Close() error { return nil }

// =============================================================================
// SESSION
// =============================================================================

// chatSession is the state of one REPL run.
type chatSession struct {
	svc  *app.Service
	conv *model.Conversation
	out  io.Writer
	err  io.Writer

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newChatCommand(g *globalOptions) *cobra.Command {
	var resume string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a line-oriented chat session",
		Long: `Start a line-oriented chat session in the current terminal.

Type a message and press enter. Lines starting with "/" are commands;
/help lists them. Ctrl+C stops a reply in progress, Ctrl+D exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := g.open(logQuiet, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			var in lineReader
			if isTerminal(g.stdin) {
				in = newLinerInput()
			} else {
				in = &scannerInput{sc: bufio.NewScanner(g.stdin), out: cmd.OutOrStdout()}
			}
			defer in.Close()

			s := &chatSession{svc: rt.service, out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()}
			rt.service.SetPullProgress(pullPrinter(s.err))
			if resume != "" {
				conv, err := rt.service.GetChat(resume)
				if err != nil {
					return fmt.Errorf("conversation %s: %w", resume, err)
				}
				s.conv = conv
			}
			return s.run(cmd.Context(), in)
		},
	}
	cmd.Flags().StringVarP(&resume, "resume", "r", "", "continue the conversation with this id")
	return cmd
}

func (s *chatSession) run(ctx context.Context, in lineReader) error {
	s.printBanner()

	// Ctrl+C during a reply stops the reply, not the session.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			if s.stop() {
				fmt.Fprintln(s.err, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		text, err := in.ReadLine(promptStyle.Render("rigchat> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return err
		}

		text = strings.TrimSpace(text)
		switch {
		case text == "":
			continue
		case strings.HasPrefix(text, "/"):
			if quit := s.command(ctx, text); quit {
				return nil
			}
		case strings.EqualFold(text, "exit"), strings.EqualFold(text, "quit"):
			return nil
		default:
			s.send(ctx, text)
		}
	}
}

func (s *chatSession) printBanner() {
	fmt.Fprintln(s.out, titleStyle.Render("rigchat")+" "+dimStyle.Render("model "+s.svc.GetModelName()))
	if s.conv != nil {
		fmt.Fprintln(s.out, dimStyle.Render(fmt.Sprintf("Resuming %q (%d messages)", s.conv.Title, len(s.conv.Messages))))
	}
	fmt.Fprintln(s.out, dimStyle.Render("Type /help for commands, Ctrl+D to exit."))
	fmt.Fprintln(s.out)
}

// send streams one reply to the terminal.
func (s *chatSession) send(ctx context.Context, prompt string) {
	if s.conv == nil {
		conv, err := s.svc.NewChat()
		if err != nil {
			fmt.Fprintln(s.err, errorStyle.Render("Error:")+" "+err.Error())
			return
		}
		s.conv = conv
	}

	genCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer s.stop()

	sink := ollama.SinkFunc(func(ev ollama.StreamEvent) {
		if ev.Kind == ollama.EventContent {
			fmt.Fprint(s.out, ev.Content)
		}
	})
	out, err := s.svc.Send(genCtx, s.conv.ID, prompt, sink)
	fmt.Fprintln(s.out)
	if err != nil {
		fmt.Fprintln(s.err, errorStyle.Render("Error:")+" "+err.Error())
		return
	}
	if !out.Success && genCtx.Err() == nil {
		printFailure(s.err, out)
	}
	fmt.Fprintln(s.out)
}

// stop cancels the reply in progress and reports whether there was one.
func (s *chatSession) stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command runs a slash command and reports whether the session should end.
func (s *chatSession) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/exit", "/quit", "/q":
		return true

	case "/help", "/?":
		s.printHelp()

	case "/new":
		s.conv = nil
		fmt.Fprintln(s.out, dimStyle.Render("Started a new conversation."))

	case "/list":
		convs, err := s.svc.GetChatHistory()
		if err != nil {
			s.fail(err)
			return false
		}
		printConversations(s.out, convs)

	case "/open":
		if len(args) != 1 {
			s.fail(errors.New("usage: /open <id>"))
			return false
		}
		conv, err := s.svc.GetChat(args[0])
		if err != nil {
			s.fail(fmt.Errorf("conversation %s: %w", args[0], err))
			return false
		}
		s.conv = conv
		printConversation(s.out, conv, false)

	case "/models":
		res := s.svc.GetAvailableModels(ctx)
		if !res.Success {
			s.fail(errors.New(res.Error))
			return false
		}
		for _, m := range res.Models {
			mark := "  "
			if m.Name == s.svc.GetModelName() {
				mark = "* "
			}
			fmt.Fprintln(s.out, mark+m.Name)
		}

	case "/model":
		if len(args) == 0 {
			fmt.Fprintln(s.out, s.svc.GetModelName())
			return false
		}
		if err := s.svc.SetModelName(args[0]); err != nil {
			s.fail(err)
			return false
		}
		fmt.Fprintln(s.out, successStyle.Render("Selected")+" "+args[0])

	case "/think":
		on := !s.svc.Thinking()
		s.svc.SetThinking(on)
		state := "off"
		if on {
			state = "on"
		}
		fmt.Fprintln(s.out, dimStyle.Render("Thinking mode "+state+"."))

	default:
		s.fail(fmt.Errorf("unknown command %s (try /help)", name))
	}
	return false
}

func (s *chatSession) fail(err error) {
	fmt.Fprintln(s.err, errorStyle.Render("Error:")+" "+err.Error())
}

func (s *chatSession) printHelp() {
	cmds := [][2]string{
		{"/new", "start a new conversation"},
		{"/list", "list saved conversations"},
		{"/open <id>", "continue a saved conversation"},
		{"/models", "list installed models"},
		{"/model [name]", "show or select the model"},
		{"/think", "toggle thinking mode"},
		{"/help", "show this help"},
		{"/exit", "leave the session"},
	}
	for _, c := range cmds {
		printField(s.out, c[0], c[1])
	}
}
