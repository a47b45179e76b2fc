package neo4jdb

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

func TestNewWithoutURIIsDisabled(t *testing.T) {
	t.Setenv("NEO4J_URI", "")
	c, err := NewFromEnv(logger.Nop())
	if err != nil || c != nil {
		t.Fatalf("expected disabled client, got=%v err=%v", c, err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("NEO4J_URI", "bolt://localhost:7687")
	t.Setenv("NEO4J_USER", "")
	t.Setenv("NEO4J_TIMEOUT", "3")
	cfg := LoadConfig()
	if cfg.User != "neo4j" {
		t.Fatalf("user got=%q want=neo4j", cfg.User)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("timeout got=%v want=3s", cfg.Timeout)
	}
	if cfg.MaxPool != 50 {
		t.Fatalf("max pool got=%d want=50", cfg.MaxPool)
	}
}

func TestNewRequiresLogger(t *testing.T) {
	if _, err := New(nil, Config{URI: "bolt://x"}); err == nil {
		t.Fatalf("expected error without logger")
	}
}
