// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/components"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// listTitleWidth bounds titles in history tables.
const listTitleWidth = 50

func newHistoryCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"h"},
		Short:   "Manage saved conversations",
	}
	cmd.AddCommand(
		newHistoryListCommand(g),
		newHistoryShowCommand(g),
		newHistoryDeleteCommand(g),
		newHistoryExportCommand(g),
		newHistorySearchCommand(g),
	)
	return cmd
}

func newHistoryListCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := g.open(logQuiet, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			convs, err := rt.service.GetChatHistory()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if g.jsonOut {
				return NewJSONResponse("history list", summarize(convs)).Print(out)
			}
			printConversations(out, convs)
			return nil
		},
	}
}

func newHistoryShowCommand(g *globalOptions) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open(logQuiet, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			conv, err := rt.service.GetChat(args[0])
			if err != nil {
				return fmt.Errorf("conversation %s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			if g.jsonOut {
				return NewJSONResponse("history show", conv).Print(out)
			}
			glamour := !plain && rt.cfg.UI.RenderMarkdown && isTerminal(out)
			printConversation(out, conv, glamour)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "skip markdown rendering (code blocks are still highlighted)")
	return cmd
}

func newHistoryDeleteCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete conversations",
		Long:    "Delete conversations. Unknown ids are ignored.",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open(logQuiet, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			for _, id := range args {
				if err := rt.service.DeleteChat(id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
			}
			out := cmd.OutOrStdout()
			if g.jsonOut {
				return NewJSONResponse("history delete", map[string][]string{"deleted": args}).Print(out)
			}
			fmt.Fprintf(out, "%s %d conversation(s)\n", successStyle.Render("Deleted"), len(args))
			return nil
		},
	}
}

func newHistoryExportCommand(g *globalOptions) *cobra.Command {
	var (
		format string
		output string
		theme  string
	)
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a conversation as markdown, HTML or JSON",
		Long: `Export a conversation to a file in the output directory, or to stdout
when --output is "-".`,
		Example: `  rigchat history export 6f1c...
  rigchat history export 6f1c... --format html --output ~/notes
  rigchat history export 6f1c... --format json --output - | jq .`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open(logQuiet, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			conv, err := rt.service.GetChat(args[0])
			if err != nil {
				return fmt.Errorf("conversation %s: %w", args[0], err)
			}

			opts := export.DefaultOptions()
			opts.Model = rt.service.GetModelName()
			opts.Theme = theme
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return newUsageError(err.Error())
			}

			out := cmd.OutOrStdout()
			if output == "-" {
				data, err := exporter.Export(conv)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			opts.OutputDir = output
			path, err := export.ToFile(conv, exporter, opts)
			if err != nil {
				return err
			}
			if g.jsonOut {
				return NewJSONResponse("history export", map[string]string{"path": path}).Print(out)
			}
			fmt.Fprintln(out, successStyle.Render("Exported")+" "+path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatMarkdown, "markdown, html or json")
	cmd.Flags().StringVarP(&output, "output", "o", ".", `output directory, or "-" for stdout`)
	cmd.Flags().StringVar(&theme, "theme", "dark", "HTML theme: light or dark")
	return cmd
}

func newHistorySearchCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find conversations by title or content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open(logQuiet, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			query := strings.Join(args, " ")
			results, err := rt.service.SearchChats(query)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if g.jsonOut {
				hits := make([]searchHit, len(results))
				for i, r := range results {
					hits[i] = searchHit{conversationSummary: summaryOf(r.Conversation), Matches: r.Matches, TitleMatch: r.TitleMatch}
				}
				return NewJSONResponse("history search", hits).Print(out)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, dimStyle.Render("No conversations match "+fmt.Sprintf("%q", query)+"."))
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(out, "%s  %s\n", dimStyle.Render(r.Conversation.ID), titleStyle.Render(listTitle(r.Conversation)))
				for _, i := range r.Matches {
					msg := r.Conversation.Messages[i]
					fmt.Fprintf(out, "    %s %s\n", dimStyle.Render(msg.Role.DisplayName()+":"), snippet(msg.Content, query, 70))
				}
			}
			return nil
		},
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

type conversationSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
	Messages  int    `json:"messages"`
}

type searchHit struct {
	conversationSummary
	Matches    []int `json:"matches"`
	TitleMatch bool  `json:"title_match"`
}

func summaryOf(c model.Conversation) conversationSummary {
	return conversationSummary{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		Messages:  len(c.Messages),
	}
}

func summarize(convs []model.Conversation) []conversationSummary {
	out := make([]conversationSummary, len(convs))
	for i, c := range convs {
		out[i] = summaryOf(c)
	}
	return out
}

func listTitle(c model.Conversation) string {
	return util.TruncateWidth(util.SingleLine(c.Title), listTitleWidth)
}

func printConversations(w io.Writer, convs []model.Conversation) {
	if len(convs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No saved conversations."))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tMESSAGES\tCREATED")
	for _, c := range convs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ID, listTitle(c), len(c.Messages), c.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

// printConversation writes every message. Assistant replies go through
// glamour when glamour is set, and through the chroma fallback otherwise.
func printConversation(w io.Writer, conv *model.Conversation, glamour bool) {
	width := TerminalWidth(w)
	theme := styles.NewThemeFor(ColorProfile(), lipgloss.HasDarkBackground())
	md := components.NewMarkdown(theme, width-4, glamour)

	fmt.Fprintln(w, titleStyle.Render(conv.Title))
	fmt.Fprintln(w, dimStyle.Render(conv.ID+" · "+conv.CreatedAt.Local().Format("2006-01-02 15:04")))
	for _, msg := range conv.Messages {
		view := components.NewMessageView(msg, theme, md)
		view.Width = width
		fmt.Fprintln(w)
		fmt.Fprintln(w, view.View())
	}
}

// snippet returns up to width runes of content around the first match of
// query, on one line.
func snippet(content, query string, width int) string {
	line := util.SingleLine(content)
	idx := strings.Index(strings.ToLower(line), strings.ToLower(query))
	if idx < 0 || len(line) <= width {
		return util.TruncateRunes(line, width)
	}
	start := max(idx-width/3, 0)
	// Step back to a rune boundary.
	for start > 0 && !utf8.RuneStart(line[start]) {
		start--
	}
	out := util.TruncateRunes(line[start:], width)
	if start > 0 {
		out = "..." + out
	}
	return out
}
