package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/chatvoice/internal/config"
	gap "github.com/muesli/go-app-paths"
)

// logEnv is read from the environment before flags are parsed.
type logEnv struct {
	Debug bool   `env:"CHATVOICE_DEBUG"`
	File  string `env:"CHATVOICE_LOG_FILE"`
}

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, config.AppName).CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.AppName+".log"), nil
}

// setupLog sends the default logger to a file in the user cache directory.
// The returned func closes it.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	cfg, err := env.ParseAs[logEnv]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	logFile := cfg.File
	if logFile == "" {
		logFile, err = getLogFilePath()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	log.SetReportTimestamp(true)
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	return f.Close, nil
}
