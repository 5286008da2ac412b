package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "famescale.log")

	logger, err := NewLogger("info", path)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("fame data loaded")
	logger.Debug("hidden at info level")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(raw)
	if !strings.Contains(content, "INFO | ") || !strings.Contains(content, "fame data loaded") {
		t.Fatalf("unexpected log content: %q", content)
	}
	if strings.Contains(content, "hidden at info level") {
		t.Fatalf("debug entry should be filtered: %q", content)
	}
}
