package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const (
	logLevelEnvVar = "LOG_LEVEL"
	logFileEnvVar  = "LOG_FILE"
)

// initLogger configures the process-wide slog logger. Priority: CLI flags,
// then environment, then defaults (info to stderr).
func initLogger(cliLevel, cliFile string) (func(), error) {
	level := cliLevel
	if level == "" {
		level = os.Getenv(logLevelEnvVar)
	}
	if level == "" {
		level = "info"
	}

	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level: %s", level)
	}

	file := cliFile
	if file == "" {
		file = os.Getenv(logFileEnvVar)
	}

	output := os.Stderr
	cleanup := func() {}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", file, err)
		}
		output = f
		cleanup = func() { f.Close() }
	}

	handler := slog.NewTextHandler(output, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}
