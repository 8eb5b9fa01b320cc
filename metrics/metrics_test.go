package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestInitMetricScope_Noop(t *testing.T) {
	scope, closer, mux := InitMetricScope(&Config{}, "flexible-cloud", time.Second)
	defer closer.Close()

	scope.Counter("boot").Inc(1)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Without prometheus there is nothing serving /metrics.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInitMetricScope_Prometheus(t *testing.T) {
	cfg := &Config{Prometheus: &PrometheusConfig{Enable: true}}
	scope, closer, mux := InitMetricScope(cfg, "flexible-cloud", time.Second)
	defer closer.Close()

	scope.Counter("prometheus_boot").Inc(1)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitMetricScope_Statsd(t *testing.T) {
	cfg := &Config{Statsd: &StatsdConfig{Enable: true, Endpoint: "127.0.0.1:8125"}}
	scope, closer, _ := InitMetricScope(cfg, "flexible-cloud", time.Second)
	defer closer.Close()

	scope.Counter("statsd_boot").Inc(1)
}
