// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/ollama"
)

func newModelsCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "models",
		Aliases: []string{"ls"},
		Short:   "List the models installed on the Ollama server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := g.open(logQuiet, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			res := rt.service.GetAvailableModels(cmd.Context())
			selected := rt.service.GetModelName()

			if g.jsonOut {
				if !res.Success {
					_ = NewJSONErrorResponse("models", res.Error, res).Print(out)
					return errors.New(res.Error)
				}
				return NewJSONResponse("models", modelsResult{ModelListResult: res, Selected: selected}).Print(out)
			}
			if !res.Success {
				return errors.New(res.Error)
			}
			printModels(cmd, res.Models, selected)
			return nil
		},
	}
}

type modelsResult struct {
	ollama.ModelListResult
	Selected string `json:"selected"`
}

func printModels(cmd *cobra.Command, models []ollama.ModelInfo, selected string) {
	out := cmd.OutOrStdout()
	if len(models) == 0 {
		fmt.Fprintln(out, dimStyle.Render("No models installed. Pull one with: ollama pull "+selected))
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tSIZE\tMODIFIED")
	for _, m := range models {
		mark := ""
		if m.Name == selected {
			mark = "*"
		}
		modified := ""
		if !m.ModifiedAt.IsZero() {
			modified = m.ModifiedAt.Local().Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, m.Name, formatSize(m.Size), modified)
	}
	tw.Flush()
}

func newModelCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "model [name]",
		Short: "Show or select the model used for new generations",
		Long: `Without an argument, print the selected model. With one, select it.

The selection is stored with the chat history. A model that is not
installed is pulled the first time it is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open(logQuiet, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				if err := rt.service.SetModelName(args[0]); err != nil {
					return newUsageError(err.Error())
				}
			}
			name := rt.service.GetModelName()

			if g.jsonOut {
				return NewJSONResponse("model", map[string]string{"model": name}).Print(out)
			}
			if len(args) == 1 {
				fmt.Fprintln(out, successStyle.Render("Selected")+" "+name)
				return nil
			}
			fmt.Fprintln(out, name)
			return nil
		},
	}
}

func formatSize(n int64) string {
	if n <= 0 {
		return "-"
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
