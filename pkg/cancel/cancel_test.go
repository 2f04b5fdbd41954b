package cancel

import "testing"

func TestSetLifecycle(t *testing.T) {
	s := NewSet()

	if s.IsCancelled("session-a") {
		t.Fatal("expected fresh set to report not cancelled")
	}

	s.Cancel("session-a")
	if !s.IsCancelled("session-a") {
		t.Fatal("expected session-a to be cancelled")
	}
	if s.IsCancelled("session-b") {
		t.Fatal("cancelling session-a should not affect session-b")
	}

	s.Clear("session-a")
	if s.IsCancelled("session-a") {
		t.Fatal("expected session-a to be cleared")
	}
}

func TestCancelIdempotent(t *testing.T) {
	s := NewSet()
	s.Cancel("x")
	s.Cancel("x")
	if !s.IsCancelled("x") {
		t.Fatal("expected x to remain cancelled")
	}
}

func TestDefaultSet(t *testing.T) {
	defer Clear("default-test-session")

	if IsCancelled("default-test-session") {
		t.Fatal("expected default set to start clean for this key")
	}
	Cancel("default-test-session")
	if !IsCancelled("default-test-session") {
		t.Fatal("expected default set to report cancellation")
	}
}
