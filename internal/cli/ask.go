// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/app"
	core "github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/ui/components"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

type askOptions struct {
	chatID   string
	save     bool
	noStream bool
	render   bool
	plain    bool
}

func newAskCommand(g *globalOptions) *cobra.Command {
	o := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Ask one question and print the answer",
		Long: `Ask one question and print the answer as it is generated.

The prompt is taken from the arguments, or from stdin when there are none
(or the only argument is "-"). By default nothing is saved; use --save to
start a new conversation or --chat to continue an existing one.`,
		Example: `  rigchat ask "What is a goroutine?"
  git diff | rigchat ask --save
  rigchat ask --chat 6f1c... "And in Rust?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, g, o, args)
		},
	}
	cmd.Flags().StringVar(&o.chatID, "chat", "", "continue the conversation with this id")
	cmd.Flags().BoolVar(&o.save, "save", false, "save the exchange as a new conversation")
	cmd.Flags().BoolVar(&o.noStream, "no-stream", false, "wait for the full answer before printing")
	cmd.Flags().BoolVar(&o.render, "render", false, "render the answer as markdown (implies --no-stream)")
	cmd.Flags().BoolVar(&o.plain, "plain", false, "never render markdown")
	cmd.MarkFlagsMutuallyExclusive("chat", "save")
	cmd.MarkFlagsMutuallyExclusive("render", "plain")
	return cmd
}

func runAsk(cmd *cobra.Command, g *globalOptions, o *askOptions, args []string) error {
	prompt, err := readPrompt(g, args)
	if err != nil {
		return err
	}

	rt, err := g.open(logQuiet, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	svc := rt.service
	svc.SetPullProgress(pullPrinter(errOut))

	render := o.render || (!o.plain && rt.cfg.UI.RenderMarkdown && isTerminal(out))
	stream := !o.noStream && !o.render && !g.jsonOut

	var sink ollama.Sink
	if stream {
		sink = ollama.SinkFunc(func(ev ollama.StreamEvent) {
			if ev.Kind == ollama.EventContent {
				fmt.Fprint(out, ev.Content)
			}
		})
	}

	chatID := o.chatID
	if o.save {
		conv, err := svc.NewChat()
		if err != nil {
			return err
		}
		chatID = conv.ID
	}

	outcome, err := generate(cmd.Context(), svc, chatID, prompt, sink)
	if err != nil {
		return err
	}

	if g.jsonOut {
		data := askResult{Outcome: outcome, ChatID: chatID, Model: svc.GetModelName()}
		if !outcome.Success {
			if err := NewJSONErrorResponse("ask", outcome.Error, data).Print(out); err != nil {
				return err
			}
			return failedGeneration(outcome)
		}
		return NewJSONResponse("ask", data).Print(out)
	}

	if !outcome.Success {
		if stream {
			fmt.Fprintln(out)
		}
		printFailure(errOut, outcome)
		return failedGeneration(outcome)
	}

	switch {
	case stream:
		fmt.Fprintln(out)
	case render:
		fmt.Fprintln(out, renderMarkdown(outcome.Response, TerminalWidth(out)))
	default:
		fmt.Fprintln(out, outcome.Response)
	}
	if chatID != "" && o.save {
		fmt.Fprintln(errOut, dimStyle.Render("saved as "+chatID))
	}
	return nil
}

type askResult struct {
	core.Outcome
	ChatID string `json:"chat_id,omitempty"`
	Model  string `json:"model"`
}

// generate runs one exchange, stored under chatID when it is set.
func generate(ctx context.Context, svc *app.Service, chatID, prompt string, sink ollama.Sink) (core.Outcome, error) {
	if chatID != "" {
		return svc.Send(ctx, chatID, prompt, sink)
	}
	if sink == nil {
		return svc.GenerateResponse(ctx, prompt, nil), nil
	}
	return svc.GenerateStreamingResponse(ctx, prompt, nil, sink), nil
}

// readPrompt joins args, or reads stdin when there are none or the only
// one is "-".
func readPrompt(g *globalOptions, args []string) (string, error) {
	var prompt string
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		if len(args) == 0 && isTerminal(g.stdin) {
			return "", newUsageError("ask needs a prompt: pass it as arguments or pipe it on stdin")
		}
		data, err := io.ReadAll(g.stdin)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		prompt = string(data)
	} else {
		prompt = strings.Join(args, " ")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", newUsageError("prompt is empty")
	}
	return prompt, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func failedGeneration(out core.Outcome) error {
	return &generationError{
		msg:         out.Error,
		unreachable: strings.Contains(out.Error, "not running"),
	}
}

// printFailure prints the error and the remediation steps.
func printFailure(w io.Writer, out core.Outcome) {
	fmt.Fprintln(w, errorStyle.Render("Error:")+" "+out.Error)
	if r := strings.TrimSpace(out.Remediation); r != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, r)
	}
}

// pullPrinter reports model download progress on w, one line per status.
func pullPrinter(w io.Writer) ollama.PullProgressFunc {
	var last string
	return func(p ollama.PullProgress) {
		if p.Status == last {
			return
		}
		last = p.Status
		fmt.Fprintln(w, dimStyle.Render("pull: "+p.Status))
	}
}

func renderMarkdown(text string, width int) string {
	theme := styles.NewThemeFor(ColorProfile(), lipgloss.HasDarkBackground())
	return components.NewMarkdown(theme, width, true).Render(text)
}
