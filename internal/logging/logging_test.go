package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zap.InfoLevel, false},
		{"debug", zap.DebugLevel, false},
		{"WARN", zap.WarnLevel, false},
		{"error", zap.ErrorLevel, false},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = "warn"
	log, err := newLogger(cfg, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}

	log.Info("quiet")
	log.Warn("loud", zap.String("k", "v"))
	_ = log.Sync()

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info line logged at warn level: %q", out)
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "WARN") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestFileOutputIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tutor.log")
	cfg := DefaultConfig()
	cfg.File = path

	var console bytes.Buffer
	log, err := newLogger(cfg, &console)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	log.Named("api").Info("served", zap.Int("status", 200))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &line); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, data)
	}
	if line["msg"] != "served" || line["logger"] != "api" || line["status"] != float64(200) {
		t.Errorf("unexpected log line: %v", line)
	}
	if !strings.Contains(console.String(), "served") {
		t.Errorf("console missing line: %q", console.String())
	}
}

func TestInvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "chatty"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
