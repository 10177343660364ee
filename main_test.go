package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
)

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli, kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	if err != nil {
		t.Fatalf("Failed to build parser: %v", err)
	}
	return parser
}

func TestCLI_Structure(t *testing.T) {
	// compile-time check that every command is wired
	var cli CLI
	_ = cli.Train
	_ = cli.Index
	_ = cli.Inspect
	_ = cli.Leakage
}

func TestKongParsing(t *testing.T) {
	var cli CLI
	if parser := newParser(t, &cli); parser == nil {
		t.Error("Kong parser should not be nil")
	}
}

func TestKongParsing_Commands(t *testing.T) {
	root := t.TempDir()
	annotations := t.TempDir()
	checkpoint := filepath.Join(t.TempDir(), "model.ckpt")
	if err := os.WriteFile(checkpoint, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create checkpoint: %v", err)
	}

	testCases := []struct {
		name        string
		args        []string
		command     string
		expectError bool
	}{
		{
			name:    "Train with required paths",
			args:    []string{"train", "-r", root, "-a", annotations},
			command: "train",
		},
		{
			name:    "Train with fast dev run",
			args:    []string{"train", "--dataset-root", root, "--annotation-path", annotations, "--fast-dev-run", "-b", "4"},
			command: "train",
		},
		{
			name:        "Train without paths",
			args:        []string{"train"},
			expectError: true,
		},
		{
			name:        "Train with unknown interpolation",
			args:        []string{"train", "-r", root, "-a", annotations, "--interpolation", "area"},
			expectError: true,
		},
		{
			name:    "Index with validation",
			args:    []string{"index", "-r", root, "-a", annotations, "--validate"},
			command: "index",
		},
		{
			name:    "Inspect checkpoint",
			args:    []string{"inspect", checkpoint},
			command: "inspect <checkpoint>",
		},
		{
			name:        "Inspect missing checkpoint",
			args:        []string{"inspect", checkpoint + ".missing"},
			expectError: true,
		},
		{
			name:    "Leakage without TUI",
			args:    []string{"leakage", "-r", root, "-a", annotations, "--no-tui", "--threshold", "4"},
			command: "leakage",
		},
		{
			name:        "Bad log level",
			args:        []string{"--log-level", "chatty", "index", "-r", root, "-a", annotations},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var cli CLI
			ctx, err := newParser(t, &cli).Parse(tc.args)

			if tc.expectError {
				if err == nil {
					t.Errorf("Expected error for args %v, but parsing succeeded", tc.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for args %v: %v", tc.args, err)
			}
			if !strings.HasPrefix(ctx.Command(), tc.command) {
				t.Errorf("Expected %q command, got %q", tc.command, ctx.Command())
			}
		})
	}
}

func TestKongParsing_LogLevelDefault(t *testing.T) {
	var cli CLI
	if _, err := newParser(t, &cli).Parse([]string{"inspect", os.Args[0]}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cli.LogLevel != "info" {
		t.Errorf("Expected default log level info, got %q", cli.LogLevel)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level string
		want  log.Level
	}{
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := newLogger(tt.level)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if logger.GetLevel() != tt.want {
				t.Errorf("Expected level %v, got %v", tt.want, logger.GetLevel())
			}
		})
	}

	if _, err := newLogger("chatty"); err == nil {
		t.Error("Expected error for unknown level")
	}
}
