package actorctx

import (
	"context"
	"testing"
)

func TestUserIDRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "u1")

	got, ok := UserIDFrom(ctx)
	if !ok || got != "u1" {
		t.Fatalf("got %q, %v", got, ok)
	}

	if _, ok := UserIDFrom(context.Background()); ok {
		t.Fatalf("empty context must not carry a user")
	}

	if _, ok := UserIDFrom(WithUserID(context.Background(), "")); ok {
		t.Fatalf("blank user id must report false")
	}
}

func TestRequestIDIsIndependentOfUserID(t *testing.T) {
	ctx := WithRequestID(WithUserID(context.Background(), "u1"), "r1")

	rid, ok := RequestIDFrom(ctx)
	if !ok || rid != "r1" {
		t.Fatalf("got %q, %v", rid, ok)
	}

	uid, ok := UserIDFrom(ctx)
	if !ok || uid != "u1" {
		t.Fatalf("got %q, %v", uid, ok)
	}
}
