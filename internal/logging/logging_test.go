package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/michaelbrown/playground/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		wantDebug bool
		wantErr   bool
	}{
		{"production info", config.LogConfig{Level: "info"}, false, false},
		{"development debug", config.LogConfig{Level: "debug", Development: true}, true, false},
		{"default level", config.LogConfig{}, false, false},
		{"bad level", config.LogConfig{Level: "loud"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if err != nil {
				return
			}
			if got := l.Core().Enabled(zapcore.DebugLevel); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
		})
	}
}

func TestNewSilent(t *testing.T) {
	l, err := New(config.LogConfig{Silent: true, Level: "debug"})
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatal("silent logger is enabled")
	}
}
