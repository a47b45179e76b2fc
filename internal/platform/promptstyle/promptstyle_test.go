package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystemIsIdempotent(t *testing.T) {
	once := ApplySystem("Extract concepts.", "json")
	twice := ApplySystem(once, "json")
	if once != twice {
		t.Fatalf("expected idempotent apply")
	}
	if !Has(once) || !strings.HasSuffix(once, "Extract concepts.") {
		t.Fatalf("unexpected prompt: %q", once)
	}
	if ApplySystem("  ", "json") != "" {
		t.Fatalf("blank prompt must stay blank")
	}
}
