package temporalx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

func TestBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, Backoff(100*time.Millisecond, time.Second, 1))
	assert.Equal(t, 400*time.Millisecond, Backoff(100*time.Millisecond, time.Second, 3))
	assert.Equal(t, time.Second, Backoff(100*time.Millisecond, time.Second, 10))
	assert.Equal(t, 250*time.Millisecond, Backoff(0, 0, 1))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_NAMESPACE", "")
	cfg := LoadConfig()
	assert.False(t, cfg.Enabled())
	assert.Equal(t, "paperlens", cfg.Namespace)
	assert.Equal(t, "paperlens", cfg.TaskQueue)

	c, err := NewClient(logger.Nop(), cfg)
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestTLSRequiresCertAndKey(t *testing.T) {
	_, err := loadTLSConfig(Config{ClientCAPath: "/tmp/ca.pem"})
	assert.Error(t, err)
}
