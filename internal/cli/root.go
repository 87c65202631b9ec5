// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool
	jsonOut    bool
	// dataDir overrides storage.dir; used by tests.
	dataDir string

	stdin io.Reader
}

// Execute runs the command tree against os.Args and exits on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		// Generation failures have already printed their remediation.
		var gen *generationError
		if !errors.As(err, &gen) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error:")+" "+err.Error())
		}
		stop()
		os.Exit(ExitCode(err))
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdin)
}

func newRootCommand(stdin io.Reader) *cobra.Command {
	opts := &globalOptions{stdin: stdin}

	root := &cobra.Command{
		Use:   "rigchat",
		Short: "Chat with local Ollama models",
		Long: `rigchat is a terminal chat client for a locally running Ollama server.

Run it without a subcommand for the full-screen chat. Conversations are
saved under ~/.rigchat and can be reopened from the chat screen or
managed with "rigchat history".`,
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.rigchat/config.toml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")
	flags.BoolVar(&opts.jsonOut, "json", false, "print machine-readable JSON")
	flags.StringVar(&opts.dataDir, "data-dir", "", "history directory (overrides storage.dir)")

	root.AddCommand(
		newChatCommand(opts),
		newAskCommand(opts),
		newModelsCommand(opts),
		newModelCommand(opts),
		newHistoryCommand(opts),
		newServeCommand(opts),
		newStatusCommand(opts),
		newConfigCommand(opts),
	)

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newUsageError(err.Error())
	})
	return root
}
