package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("%w: question 7", ErrInvalidReference)
	if KindOf(wrapped) != KindValidation {
		t.Fatalf("expected validation kind, got %q", KindOf(wrapped))
	}
	if !errors.Is(wrapped, ErrInvalidReference) {
		t.Fatalf("expected errors.Is to match the sentinel")
	}
	if KindOf(errors.New("boom")) != "" {
		t.Fatalf("expected plain errors to have no kind")
	}
	if KindOf(Validation("title is required")) != KindValidation {
		t.Fatalf("expected Validation helper to produce validation kind")
	}
}
