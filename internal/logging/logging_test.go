package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewParsesLevels(t *testing.T) {
	for _, level := range []string{"", "debug", "INFO", " warn ", "error"} {
		logger, err := New(level)
		if err != nil {
			t.Fatalf("level %q: %v", level, err)
		}
		_ = logger.Sync()
	}
	if _, err := New("loud"); err == nil {
		t.Fatalf("expected unknown level to fail")
	}

	logger, err := New("warn")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("expected info to be disabled at warn level")
	}
}

func TestAdaptForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Adapt(zap.New(core))
	log.Debug("polling", "interval", "2s")
	log.Info("started", "ids", 3)
	log.Warn("slow stop")
	log.Error("write failed", "key", "Widget_1.xml")

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[3].Level != zapcore.ErrorLevel || entries[3].ContextMap()["key"] != "Widget_1.xml" {
		t.Fatalf("unexpected error entry: %+v", entries[3])
	}
	if entries[1].ContextMap()["ids"] != int64(3) {
		t.Fatalf("expected ids field, got %+v", entries[1].ContextMap())
	}
}

func TestAdaptNil(t *testing.T) {
	Adapt(nil).Info("dropped")
}
