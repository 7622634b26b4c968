package slog

import (
	"bytes"
	"encoding/json"
	stdslog "log/slog"
	"testing"

	"github.com/unkn0wn-root/swrcache"
)

func TestSlogLoggerGroupsFields(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewJSONHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo})
	l := New(stdslog.New(h))

	l.Debug("dropped", swrcache.Fields{"key": "x"})
	l.Info("refreshed", swrcache.Fields{"key": "fixtures:39:2024", "took": "12ms"})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "refreshed" {
		t.Fatalf("msg: %v", rec["msg"])
	}
	group, ok := rec["swrcache"].(map[string]any)
	if !ok || group["key"] != "fixtures:39:2024" || group["took"] != "12ms" {
		t.Fatalf("group: %v", rec)
	}
}
