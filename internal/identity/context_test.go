package identity

import (
	"context"
	"testing"
)

func TestUserIDRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "  patient@example.com ")
	got, ok := UserIDFromContext(ctx)
	if !ok || got != "patient@example.com" {
		t.Fatalf("got %q, %v", got, ok)
	}
}

func TestUserIDMissing(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("expected no user id")
	}
	if _, ok := UserIDFromContext(WithUserID(context.Background(), "   ")); ok {
		t.Fatal("blank user id should not count")
	}
}
