package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func histogramSamples(t *testing.T, m prometheus.Metric) *dto.Histogram {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return out.GetHistogram()
}

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(20 * time.Millisecond)

	if d := timer.Duration(); d < 20*time.Millisecond {
		t.Errorf("Duration() = %v, want at least the elapsed 20ms", d)
	}
}

func TestTimerObserveDuration(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_observe_seconds"})

	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	timer.ObserveDuration(h)

	hist := histogramSamples(t, h)
	if hist.GetSampleCount() != 1 {
		t.Fatalf("sample count = %d, want 1", hist.GetSampleCount())
	}
	if sum := hist.GetSampleSum(); sum < 0.010 {
		t.Errorf("sample sum = %v s, want at least the elapsed 10ms", sum)
	}
}

func TestTimerObserveDurationVec_RecordsUnderLabel(t *testing.T) {
	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "test_observe_vec_seconds"},
		[]string{"kind"},
	)

	NewTimer().ObserveDurationVec(vec, "tracking")
	NewTimer().ObserveDurationVec(vec, "tracking")
	NewTimer().ObserveDurationVec(vec, "deconfigure")

	tracking := histogramSamples(t, vec.WithLabelValues("tracking").(prometheus.Metric))
	if tracking.GetSampleCount() != 2 {
		t.Errorf("tracking samples = %d, want 2", tracking.GetSampleCount())
	}

	deconfigure := histogramSamples(t, vec.WithLabelValues("deconfigure").(prometheus.Metric))
	if deconfigure.GetSampleCount() != 1 {
		t.Errorf("deconfigure samples = %d, want 1", deconfigure.GetSampleCount())
	}
}
