package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/wesm/zenhub-mirror/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    slog.Level
		wantErr bool
	}{
		{name: "default info", raw: "", want: slog.LevelInfo},
		{name: "debug", raw: "debug", want: slog.LevelDebug},
		{name: "upper", raw: "ERROR", want: slog.LevelError},
		{name: "warning alias", raw: "warning", want: slog.LevelWarn},
		{name: "numeric", raw: "-4", want: slog.LevelDebug},
		{name: "invalid", raw: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse level: %v", err)
			}
			if got != tt.want {
				t.Fatalf("level want %v got %v", tt.want, got)
			}
		})
	}
}

func TestSelectedLogLevel(t *testing.T) {
	tests := []struct {
		flag, env, cfg string
		want, source   string
	}{
		{"debug", "warn", "error", "debug", "flag"},
		{"", "warn", "error", "warn", "env"},
		{"", "", "error", "error", "config"},
		{"", " ", "", "", "default"},
	}
	for _, tt := range tests {
		got, source := selectedLogLevel(tt.flag, tt.env, tt.cfg)
		if got != tt.want || source != tt.source {
			t.Errorf("selectedLogLevel(%q,%q,%q) want %q/%q got %q/%q",
				tt.flag, tt.env, tt.cfg, tt.want, tt.source, got, source)
		}
	}
}

func TestConfigureLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	if err := configureLogger("bogus", ""); err == nil {
		t.Error("invalid flag level must be an error")
	}

	t.Setenv(config.EnvLogLevel, "bogus")
	if err := configureLogger("", ""); err != nil {
		t.Errorf("invalid env level must fall back, got %v", err)
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelInfo) || slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("fallback level must be info")
	}
}
