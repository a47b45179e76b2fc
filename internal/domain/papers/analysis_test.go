package papers

import "testing"

func TestCanTransition(t *testing.T) {
	forward := []AnalysisStatus{StatusUploaded, StatusParsing, StatusReading, StatusIdeasReady, StatusSearching, StatusComplete}
	for i := 0; i+1 < len(forward); i++ {
		if !CanTransition(forward[i], forward[i+1]) {
			t.Fatalf("expected %s -> %s", forward[i], forward[i+1])
		}
		if CanTransition(forward[i+1], forward[i]) {
			t.Fatalf("regression allowed %s -> %s", forward[i+1], forward[i])
		}
	}
	for _, s := range forward[:len(forward)-1] {
		if !CanTransition(s, StatusError) {
			t.Fatalf("expected %s -> error", s)
		}
	}
	if CanTransition(StatusComplete, StatusError) || CanTransition(StatusError, StatusParsing) {
		t.Fatalf("terminal states must not move")
	}
	if CanTransition(StatusUploaded, StatusReading) {
		t.Fatalf("skipping parsing must be rejected")
	}
	if CanTransition(AnalysisStatus("bogus"), StatusError) {
		t.Fatalf("unknown state must be rejected")
	}
}
