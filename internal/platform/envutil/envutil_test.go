package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Setenv("X_BUDGET", "90")
	if got := Duration("X_BUDGET", time.Minute); got != 90*time.Second {
		t.Fatalf("unexpected duration: got=%s want=%s", got, 90*time.Second)
	}
	t.Setenv("X_BUDGET", "2m")
	if got := Duration("X_BUDGET", time.Minute); got != 2*time.Minute {
		t.Fatalf("unexpected duration: got=%s want=%s", got, 2*time.Minute)
	}
	t.Setenv("X_BUDGET", "nope")
	if got := Duration("X_BUDGET", time.Minute); got != time.Minute {
		t.Fatalf("expected default, got=%s", got)
	}
}

func TestBoolAndInt(t *testing.T) {
	t.Setenv("X_FLAG", "on")
	if !Bool("X_FLAG", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("X_FLAG", "maybe")
	if Bool("X_FLAG", false) {
		t.Fatalf("expected default false for unparsable value")
	}
	t.Setenv("X_N", "7")
	if got := Int("X_N", 1); got != 7 {
		t.Fatalf("unexpected int: got=%d want=7", got)
	}
}
