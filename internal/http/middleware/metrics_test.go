package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/paperlens-backend/internal/observability"
)

func TestMetricsSkipsEventStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/status/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/analyses/:id/events", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/status/a", "/api/analyses/a/events"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	var buf bytes.Buffer
	require.NoError(t, m.WritePrometheus(&buf))
	out := buf.String()
	assert.Contains(t, out, `route="/api/status/:id"`)
	assert.NotContains(t, out, `route="/api/analyses/:id/events"`)
}
