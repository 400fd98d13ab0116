package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/geocoder89/hirebase/internal/actorctx"
)

func TestLogger_StampsActorFields(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("prod", &buf)

	ctx := actorctx.WithRequestID(actorctx.WithUserID(context.Background(), "u1"), "r1")
	log.InfoContext(ctx, "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}

	if rec["user_id"] != "u1" || rec["request_id"] != "r1" {
		t.Fatalf("missing actor fields: %v", rec)
	}
	if _, ok := rec["trace_id"]; ok {
		t.Fatalf("no span in context, trace_id must be absent: %v", rec)
	}
}

func TestLogger_DebugOnlyInDev(t *testing.T) {
	var buf bytes.Buffer
	newLogger("prod", &buf).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug must be dropped outside dev, got %s", buf.String())
	}

	newLogger("dev", &buf).Debug("shown")
	if buf.Len() == 0 {
		t.Fatalf("debug must be emitted in dev")
	}
}
