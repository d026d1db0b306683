package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBoardMetrics(reg)

	m.VotesCast.WithLabelValues("post", "up", "ok").Inc()
	m.RankCorrections.Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.VotesCast.WithLabelValues("post", "up", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RankCorrections))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/getnews/:sort/:start/:count", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/getnews/top/0/10", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.RequestsTotal.WithLabelValues(http.MethodGet, "/api/getnews/:sort/:start/:count", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlightGauge))
}
