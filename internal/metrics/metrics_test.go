package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.ObserveSplice("scored", 3, 1)
		c.ObserveSubTour(time.Millisecond, nil)
		c.ObserveAssembly(time.Second, 10)
		c.ObserveHTTP("GET", "/health", "200", time.Millisecond)
	})
}

func TestObserveSplice(t *testing.T) {
	c := NewCollector("test")

	c.ObserveSplice("adopt", 0, 0)
	c.ObserveSplice("scored", 12, 2)
	c.ObserveSplice("scored", 4, 0)
	c.ObserveSplice("fallback", 0, 5)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Splices.WithLabelValues("adopt")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Splices.WithLabelValues("scored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Splices.WithLabelValues("fallback")))
}

func TestObserveSubTourOutcome(t *testing.T) {
	c := NewCollector("test")

	c.ObserveSubTour(time.Millisecond, nil)
	c.ObserveSubTour(time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.SubTourSolves.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SubTourSolves.WithLabelValues("error")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("stitcher")
	c.ObserveAssembly(50*time.Millisecond, 42)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "stitcher_assembled_points_total 42"))
}
