package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize text logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("json")); err != nil {
		t.Fatalf("failed to initialize json logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected an error for unknown format")
	}

	if err := Sync(); err != nil {
		t.Errorf("failed to sync logger: %v", err)
	}
}

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat("json"), WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	SetLevel(slog.LevelInfo)

	ctx := context.Background()
	Named("store").Info(ctx, "event stored",
		Int64("id", 3), Bool("auto", true), String("title", "DR"), Error(errors.New("boom")))

	recs := decodeLines(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec["msg"] != "event stored" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["component"] != "store" {
		t.Errorf("component = %v", rec["component"])
	}
	if rec["id"] != float64(3) || rec["auto"] != true || rec["error"] != "boom" {
		t.Errorf("unexpected fields: %v", rec)
	}
	if src, _ := rec["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("source = %q, want the calling test file", src)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat("json"), WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer SetLevel(slog.LevelInfo)

	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("SetLevelString: %v", err)
	}
	ctx := context.Background()
	Get().Info(ctx, "hidden")
	Get().Debug(ctx, "hidden")
	Get().Warn(ctx, "shown")

	recs := decodeLines(t, &buf)
	if len(recs) != 1 || recs[0]["msg"] != "shown" {
		t.Fatalf("expected only the warning, got %v", recs)
	}

	if err := SetLevelString("loud"); err == nil {
		t.Fatal("expected an error for unknown level")
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelDebug).With(String("request_id", "abc"))

	l.Debug(context.Background(), "handled")
	recs := decodeLines(t, &buf)
	if len(recs) != 1 || recs[0]["request_id"] != "abc" {
		t.Fatalf("expected request_id on record, got %v", recs)
	}
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Error(context.Background(), "dropped")
	if l.Named("x") == nil {
		t.Fatal("named nop logger is nil")
	}
}
