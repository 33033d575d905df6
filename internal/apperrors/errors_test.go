package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWalksWrappedChain(t *testing.T) {
	base := NotFound("pulse %s not found", "p1")
	wrapped := fmt.Errorf("stop session: %w", base)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("expected not_found, got %s", got)
	}
	if !Is(wrapped, KindNotFound) {
		t.Fatalf("Is should match wrapped kind")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatalf("plain errors must map to internal")
	}
	if Is(nil, KindNotFound) {
		t.Fatalf("nil error must not match any kind")
	}
}

func TestStorageKeepsCause(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := Storage("failed to update pulse", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("storage error must unwrap to its cause")
	}
	if err.Error() != "failed to update pulse: disk I/O error" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestConflictCauseMatchesSentinel(t *testing.T) {
	err := ConflictCause(ErrActiveSessionExists, "user %s already has a running session", "u1")
	if !errors.Is(err, ErrActiveSessionExists) {
		t.Fatalf("expected sentinel in chain")
	}
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict kind")
	}
}

func TestStateConflictNamesBothStates(t *testing.T) {
	err := StateConflict("pause", "active", "completed")
	want := "cannot pause: session is completed, expected active"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
}
