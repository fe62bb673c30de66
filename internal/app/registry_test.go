package app

import (
	"context"
	"testing"
)

func TestUnbindCancelsConnectionContext(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	r.Bind("c1", cancel)

	r.Unbind("c1")

	select {
	case <-ctx.Done():
	default:
		t.Error("unbind must cancel the connection's context")
	}
	if r.ConnCount() != 0 {
		t.Errorf("expected no tracked connections, got %d", r.ConnCount())
	}
}

func TestUnbindUnknownConnection(t *testing.T) {
	r := NewRegistry()
	// no entry, nil cancel: must not panic
	r.Unbind("ghost")
}
