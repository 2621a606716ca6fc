package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/dgnsrekt/auction-profile/internal/config"
)

func TestNewLevelFromConfig(t *testing.T) {
	logger, err := New("test", false, &config.LoggingConfig{Level: "warn"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled")
	}
}

func TestNewVerboseIsDebug(t *testing.T) {
	logger, err := New("test", true, &config.LoggingConfig{Level: "error"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("verbose logger should log debug")
	}
}

func TestNewWritesLogFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "logging-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	dir := filepath.Join(tmpDir, "logs")
	logger, err := New("profiler", false, &config.LoggingConfig{Enabled: true, Directory: dir, Level: "info"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hello")
	_ = logger.Sync()

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one log file, got %v (%v)", entries, err)
	}
	if !strings.HasPrefix(entries[0].Name(), "profiler_") {
		t.Errorf("unexpected log file name %s", entries[0].Name())
	}
}
