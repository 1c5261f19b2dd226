package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/wesm/zenhub-mirror/config"
)

// configureLogger installs the default slog logger. The level comes from
// the --log-level flag, then ZHMIRROR_LOG_LEVEL, then the config file. A bad
// flag is an error; a bad env or config value falls back to the default
// with a warning.
func configureLogger(flagLevel, configLevel string) error {
	envLevel := os.Getenv(config.EnvLogLevel)
	raw, source := selectedLogLevel(flagLevel, envLevel, configLevel)

	level, err := parseLogLevel(raw)
	if err != nil {
		if source == "flag" {
			return fmt.Errorf("invalid --log-level %q", flagLevel)
		}
		level = slog.LevelInfo
		defer slog.Warn("invalid log level, defaulting to "+config.DefaultLogLevel, "source", source, "value", raw)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func selectedLogLevel(flagLevel, envLevel, configLevel string) (string, string) {
	if strings.TrimSpace(flagLevel) != "" {
		return flagLevel, "flag"
	}
	if strings.TrimSpace(envLevel) != "" {
		return envLevel, "env"
	}
	if strings.TrimSpace(configLevel) != "" {
		return configLevel, "config"
	}
	return "", "default"
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return slog.LevelInfo, nil
	}
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}
