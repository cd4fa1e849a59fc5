package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  component  ", Value: "  serpapi  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Key != "component" || fields[0].String != "serpapi" {
		t.Fatalf("unexpected field: %+v", fields[0])
	}
}

func TestWithFieldsNilLogger(t *testing.T) {
	logger := WithFields(nil, zap.String("k", "v"))
	if logger == nil {
		t.Fatalf("expected usable logger")
	}
	// Must not panic.
	logger.Info("ok")
}

func TestWithComponentAttachesField(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := WithComponent(zap.New(core), "worker")

	logger.Info("ping")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields[FieldComponent] != "worker" {
		t.Fatalf("expected component field, got %v", fields)
	}
}
