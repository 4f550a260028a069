package model

import (
	"errors"
	"testing"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := NewError(KindNotFound, "scraper x not found", nil)
	if !errors.Is(err, NotFound) {
		t.Fatal("expected errors.Is to match on Kind regardless of message")
	}
	if errors.Is(err, ReadOnly) {
		t.Fatal("did not expect NotFound to match ReadOnly")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(KindStorageUnavailable, "redis down", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to follow Unwrap to the cause")
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(NewError(KindDead, "dead", nil)) != KindDead {
		t.Fatal("expected KindOf to extract the tagged Kind")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("expected KindOf to return empty Kind for a non-tagged error")
	}
}
