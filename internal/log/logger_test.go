package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"fatal", LevelFatal, true},
		{"loud", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var out bytes.Buffer
	SetOutput(&out)
	defer SetOutput(os.Stderr)
	defer SetLevel(GetLevel())

	SetLevel(LevelWarn)
	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	Warnf("shown %d", 3)
	Error("shown", 4)

	got := out.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("messages below the level were written: %q", got)
	}
	if !strings.Contains(got, "[WARN]  shown 3") || !strings.Contains(got, "[ERROR] shown4") {
		t.Errorf("missing messages: %q", got)
	}
}

func TestConfigure(t *testing.T) {
	defer SetLevel(GetLevel())

	if got := Configure("error", false); got != LevelError || GetLevel() != LevelError {
		t.Errorf("Configure(error) = %v", got)
	}
	if got := Configure("error", true); got != LevelDebug {
		t.Errorf("verbose must force debug, got %v", got)
	}
	if got := Configure("nonsense", false); got != LevelInfo {
		t.Errorf("unknown level must fall back to info, got %v", got)
	}
	if !Enabled(LevelWarn) || Enabled(LevelDebug) {
		t.Error("Enabled disagrees with the info level")
	}
}
