package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(KindInsufficientStock, "ledger.apply", "have %d need %d", 1, 2))

	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatal("expected kind match through wrapping")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("different kinds must not match")
	}
	if KindOf(err) != KindInsufficientStock {
		t.Fatalf("kind = %s", KindOf(err))
	}
	if Message(err) != "have 1 need 2" {
		t.Fatalf("message = %q", Message(err))
	}
	if got := errors.Unwrap(err).Error(); got != "ledger.apply: have 1 need 2" {
		t.Fatalf("error = %q", got)
	}
}

func TestKindOfPlainError(t *testing.T) {
	err := errors.New("disk on fire")
	if KindOf(err) != "" || Message(err) != "disk on fire" {
		t.Fatal("plain errors carry no kind")
	}
}
