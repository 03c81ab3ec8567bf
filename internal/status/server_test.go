package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avdeenkov/catalog-harvester/internal/harvest"
)

func TestHealthz(t *testing.T) {
	t.Parallel()

	s := NewServer(0, harvest.NewCounters(), zap.NewNop())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStatsReflectsCounters(t *testing.T) {
	t.Parallel()

	counters := harvest.NewCounters()
	s := NewServer(0, counters, zap.NewNop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats harvest.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Zero(t, stats)
}

func TestMetricsEndpointServes(t *testing.T) {
	t.Parallel()

	s := NewServer(0, harvest.NewCounters(), zap.NewNop())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
