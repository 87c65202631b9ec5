// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/ui/styles"
)

func newStatusCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the Ollama server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := g.open(logQuiet, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			st := rt.service.Status(cmd.Context())
			out := cmd.OutOrStdout()

			if g.jsonOut {
				if !st.Available {
					_ = NewJSONErrorResponse("status", st.Error, st).Print(out)
					return &generationError{msg: st.Error, unreachable: true}
				}
				return NewJSONResponse("status", st).Print(out)
			}

			fmt.Fprintln(out, titleStyle.Render("rigchat status"))
			if st.Available {
				printField(out, "Server", successStyle.Render(styles.Indicators.Online+" online")+" "+st.BaseURL)
			} else {
				printField(out, "Server", errorStyle.Render(styles.Indicators.Offline+" offline"))
				printField(out, "Tried", strings.Join(rt.cfg.Ollama.Candidates, ", "))
			}
			printField(out, "Model", st.Model)
			thinking := "off"
			if st.Thinking {
				thinking = "on"
			}
			printField(out, "Thinking", thinking)
			printField(out, "Storage", rt.cfg.Storage.Backend)
			printField(out, "Config", rt.configPath)

			if !st.Available {
				fmt.Fprintln(out)
				fmt.Fprintln(out, warningStyle.Render(`Start Ollama with "ollama serve" and try again.`))
				return &generationError{msg: st.Error, unreachable: true}
			}
			return nil
		},
	}
}
