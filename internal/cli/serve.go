// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/rigchat/internal/bridge"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/logging"
)

// shutdownTimeout bounds how long in-flight requests get on exit.
const shutdownTimeout = 10 * time.Second

func newServeCommand(g *globalOptions) *cobra.Command {
	var (
		listen string
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP bridge",
		Long: `Run the HTTP bridge on a loopback address so other local programs can
use the chat history and generations. Streaming replies are sent as
newline-delimited JSON.

Edits to the config file are picked up while running: sampling options,
the log level and the rate limit change without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := g.open(logConfigured, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			if listen == "" {
				listen = rt.cfg.Bridge.Listen
			}
			srv, err := bridge.NewServer(rt.service, rt.monitor, bridge.Options{
				Listen:    listen,
				RateLimit: rt.cfg.Bridge.RateLimit,
				Burst:     rt.cfg.Bridge.Burst,
			})
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", srv.Addr())
			if err != nil {
				return fmt.Errorf("listen %s: %w", srv.Addr(), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Listening")+" on http://"+ln.Addr().String())

			return serve(cmd.Context(), rt, srv, ln, watch)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "loopback address to listen on (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload the config file when it changes")
	return cmd
}

// serve runs the bridge, the availability monitor and the config watcher
// until ctx ends or one of them fails.
func serve(ctx context.Context, rt *env, srv *bridge.Server, ln net.Listener, watch bool) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(ln)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return rt.monitor.Run(ctx)
	})
	if watch && !dirExists(filepath.Dir(rt.configPath)) {
		slog.Warn("config_watch_skipped", "path", rt.configPath, "reason", "config directory does not exist")
		watch = false
	}
	if watch {
		g.Go(func() error {
			return config.Watch(ctx, rt.configPath, func(cfg *config.Config) {
				applyReload(rt, srv, cfg)
			})
		})
	}

	return g.Wait()
}

// applyReload applies the settings that can change while serving.
func applyReload(rt *env, srv *bridge.Server, cfg *config.Config) {
	rt.service.SetSampling(*samplingFrom(cfg))

	if err := logging.SetLevel(cfg.Log.Level); err != nil {
		slog.Warn("config_reload_level", "level", cfg.Log.Level, "error", err)
	}
	srv.SetRateLimit(cfg.Bridge.RateLimit, cfg.Bridge.Burst)

	if cfg.Bridge.Listen != srv.Addr() {
		slog.Warn("config_reload_listen_ignored", "listen", cfg.Bridge.Listen, "current", srv.Addr())
	}
	rt.cfg = cfg
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
