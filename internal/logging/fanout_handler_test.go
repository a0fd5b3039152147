package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeHandlerCollapsesNilAndSingle(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if TeeHandler(nil, inner) != inner {
		t.Fatal("expected the single non-nil handler to be returned unwrapped")
	}
}

func TestTeeHandlerRespectsPerHandlerLevels(t *testing.T) {
	var console, file bytes.Buffer
	h := TeeHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h)

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled through the file handler")
	}
	logger.Debug("chain step complete")
	logger.Info("audio saved")

	if strings.Contains(console.String(), "chain step complete") {
		t.Fatalf("console should not receive debug output: %q", console.String())
	}
	if !strings.Contains(console.String(), "audio saved") {
		t.Fatalf("console missing info output: %q", console.String())
	}
	if !strings.Contains(file.String(), "chain step complete") || !strings.Contains(file.String(), "audio saved") {
		t.Fatalf("file missing output: %q", file.String())
	}
}

func TestTeeHandlerWithAttrsAppliesToAll(t *testing.T) {
	var first, second bytes.Buffer
	h := TeeHandler(
		slog.NewJSONHandler(&first, nil),
		slog.NewJSONHandler(&second, nil),
	)
	slog.New(h).With(slog.String(FieldComponent, "invoker")).WithGroup("engine").Info("run", slog.Int("exit", 1))

	for _, out := range []string{first.String(), second.String()} {
		if !strings.Contains(out, `"component":"invoker"`) {
			t.Fatalf("expected component attr, got %q", out)
		}
		if !strings.Contains(out, `"engine":{"exit":1}`) {
			t.Fatalf("expected grouped attr, got %q", out)
		}
	}
}
