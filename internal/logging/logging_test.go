package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "winsession.log")
	logger, closer, err := New(Options{Level: "debug", Format: "json", FilePath: path})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	logger.Debug("window created", "id", 7)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"window created"`) || !strings.Contains(string(data), `"id":7`) {
		t.Fatalf("log file = %q, want the json record", data)
	}
}

func TestRotatingFileRollsOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.log")
	f, err := OpenRotatingFile(path, 1, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile() error: %v", err)
	}
	defer f.Close()
	f.maxBytes = 16

	for _, line := range []string{"first-line-0001\n", "second-line-002\n", "third-line-0003\n", "fourth-line-004\n"} {
		if _, err := f.Write([]byte(line)); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
	}

	tests := []struct {
		path string
		want string
	}{
		{path, "fourth-line-004\n"},
		{path + ".1", "third-line-0003\n"},
		{path + ".2", "second-line-002\n"},
	}
	for _, tt := range tests {
		data, err := os.ReadFile(tt.path)
		if err != nil {
			t.Fatalf("ReadFile(%s) error: %v", tt.path, err)
		}
		if string(data) != tt.want {
			t.Fatalf("%s = %q, want %q", filepath.Base(tt.path), data, tt.want)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Fatalf("%s.3 exists, want at most 2 rolled files", filepath.Base(path))
	}
}
