package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config selects the level, format and destination of the solver's logs.
// It mirrors the LOG_LEVEL, LOG_FORMAT and LOG_OUTPUT settings.
type Config struct {
	// Level is debug, info, warn (or warning), error or fatal
	Level string
	// Format is json or text (console is accepted for text)
	Format string
	// Output is stdout, stderr, discard or a file path
	Output string
}

// DefaultConfig logs info and above as JSON to stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: "stderr",
	}
}

// NewLogger builds a Logger from cfg. A nil cfg means DefaultConfig. An
// unknown level or format is an error; so is a log file that cannot be
// opened. Parent directories of a log file are created.
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	output, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	return New(level, output).WithFormat(format), nil
}

// ParseLevel converts a LOG_LEVEL value. The empty string means info.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// ParseFormat converts a LOG_FORMAT value. The empty string means JSON.
func ParseFormat(format string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "":
		return FormatJSON, nil
	case "text", "console":
		return FormatText, nil
	}
	return FormatJSON, fmt.Errorf("unknown log format %q", format)
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr", "":
		return os.Stderr, nil
	case "discard":
		return io.Discard, nil
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}
