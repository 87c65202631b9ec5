// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jeranaias/rigchat/internal/app"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/monitor"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/storage"
)

// tuiLogFile receives logs while the full-screen chat owns the terminal.
const tuiLogFile = "rigchat.log"

// env is everything a command needs, built from the config.
type env struct {
	cfg        *config.Config
	configPath string
	client     *ollama.Client
	kv         storage.KV
	history    *storage.History
	service    *app.Service
	monitor    *monitor.Monitor

	closers []io.Closer
}

// logMode selects where a command's logs go.
type logMode int

const (
	// logQuiet sends warnings and errors to stderr unless --verbose.
	logQuiet logMode = iota
	// logConfigured honours the [log] section as written.
	logConfigured
	// logToFile writes to the config file path or ~/.rigchat/rigchat.log.
	logToFile
)

// resolveConfigPath returns --config, or the default path.
func (o *globalOptions) resolveConfigPath() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.ConfigPath()
}

// loadConfig reads the config named by --config, or the default path.
func (o *globalOptions) loadConfig() (*config.Config, string, error) {
	path, err := o.resolveConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if o.dataDir != "" {
		cfg.Storage.Dir = o.dataDir
	}
	return cfg, path, nil
}

// open builds the env. stderr receives logs in logQuiet and
// logConfigured modes.
func (o *globalOptions) open(mode logMode, stderr io.Writer) (*env, error) {
	cfg, path, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	rt := &env{cfg: cfg, configPath: path}

	if err := rt.setupLogging(mode, o.verbose, stderr); err != nil {
		return nil, err
	}

	dir, err := cfg.DataDir()
	if err != nil {
		rt.Close()
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		rt.Close()
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	kv, err := storage.Open(cfg.Storage.Backend, dir)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.kv = kv
	rt.closers = append(rt.closers, kv)
	rt.history = storage.NewHistory(kv)

	rt.client = ollama.NewClientWithConfig(&ollama.ClientConfig{
		Candidates:      cfg.Ollama.Candidates,
		HealthTimeout:   cfg.Ollama.HealthTimeout.Duration,
		DispatchTimeout: cfg.Ollama.DispatchTimeout.Duration,
	})

	rt.service, err = app.New(rt.history, rt.client, app.Config{
		DefaultModel: cfg.Ollama.DefaultModel,
		Sampling:     samplingFrom(cfg),
		Thinking:     cfg.UI.Thinking,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.monitor = monitor.New(rt.client, cfg.Monitor.Interval.Duration)
	return rt, nil
}

func (rt *env) setupLogging(mode logMode, verbose bool, stderr io.Writer) error {
	logCfg := rt.cfg.Log
	switch mode {
	case logQuiet:
		if logCfg.File == "" {
			logCfg.Level = "error"
		}
	case logToFile:
		if logCfg.File == "" {
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			logCfg.File = filepath.Join(dir, tuiLogFile)
		}
	}
	if verbose {
		logCfg.Level = "debug"
	}

	closer, err := logging.Setup(logCfg, stderr)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, closer)
	return nil
}

// Close releases the store and the log file.
func (rt *env) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func samplingFrom(cfg *config.Config) *ollama.Options {
	return &ollama.Options{Temperature: cfg.Ollama.Temperature, TopP: cfg.Ollama.TopP}
}
