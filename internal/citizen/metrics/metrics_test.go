package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewPerRegistry(t *testing.T) {
	// Each instance registers on its own registry, so constructing a second
	// one must not collide.
	assert.NotPanics(t, func() {
		a := New(prometheus.NewRegistry())
		b := New(prometheus.NewRegistry())

		a.RecordOperation("get", "ok", time.Millisecond)
		b.AddTransferred("export", 3)

		assert.Equal(t, 1.0, testutil.ToFloat64(a.Operations.WithLabelValues("get", "ok")))
		assert.Equal(t, 3.0, testutil.ToFloat64(b.RecordsTransferred.WithLabelValues("export")))
	})
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordOperation("get", "ok", time.Millisecond)
		m.AddTransferred("import", 1)
	})
}
