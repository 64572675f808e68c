package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func withEnabled(t *testing.T, e bool) {
	t.Helper()
	prev := Enabled()
	SetEnabled(e)
	t.Cleanup(func() { SetEnabled(prev) })
}

func TestTimingMetric_Record(t *testing.T) {
	withEnabled(t, true)
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)
	m.Record(3 * time.Millisecond)

	s := m.Stats()
	if s.Count != 3 {
		t.Errorf("Count = %d, want 3", s.Count)
	}
	if s.MinMs != 2 || s.MaxMs != 4 || s.AvgMs != 3 {
		t.Errorf("stats = %+v", s)
	}
	if m.Last() != 3*time.Millisecond {
		t.Errorf("Last = %v", m.Last())
	}

	m.Reset()
	if m.Count() != 0 || m.Avg() != 0 {
		t.Errorf("Reset left %+v", m.Stats())
	}
}

func TestTimingMetric_Disabled(t *testing.T) {
	withEnabled(t, false)
	m := newTimingMetric("off")
	m.Record(time.Second)
	Timer(m)()
	if m.Count() != 0 {
		t.Errorf("disabled metric recorded %d samples", m.Count())
	}
}

func TestTimingMetric_Concurrent(t *testing.T) {
	withEnabled(t, true)
	m := newTimingMetric("concurrent")
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Record(time.Duration(i) * time.Microsecond)
		}(i)
	}
	wg.Wait()
	s := m.Stats()
	if s.Count != 50 || s.MinMs != 0.001 || s.MaxMs != 0.05 {
		t.Errorf("stats = %+v", s)
	}
}

func TestTimerWithCallback(t *testing.T) {
	withEnabled(t, true)
	m := newTimingMetric("cb")
	var got time.Duration
	TimerWithCallback(m, func(d time.Duration) { got = d })()
	if m.Count() != 1 || got != m.Last() {
		t.Errorf("callback got %v, metric %+v", got, m.Stats())
	}
}

func TestAllTimingStats_OnlyWithData(t *testing.T) {
	withEnabled(t, true)
	ResetAll()
	t.Cleanup(ResetAll)
	GraphLoad.Record(time.Millisecond)
	stats := AllTimingStats()
	if len(stats) != 1 || stats[0].Name != "graph_load" {
		t.Errorf("stats = %+v", stats)
	}
	if !strings.Contains(stats[0].String(), "graph_load n=1") {
		t.Errorf("String() = %q", stats[0].String())
	}
}

func TestPrometheusCollectors(t *testing.T) {
	withEnabled(t, true)
	before := testutil.ToFloat64(LabelDecisions.WithLabelValues("rejected"))
	CountLabels(3, 1, 2, 0)
	if got := testutil.ToFloat64(LabelDecisions.WithLabelValues("rejected")) - before; got != 2 {
		t.Errorf("rejected delta = %v, want 2", got)
	}

	ObserveFrame(5*time.Millisecond, 12)
	if got := testutil.ToFloat64(VisibleNodes); got != 12 {
		t.Errorf("VisibleNodes = %v", got)
	}

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)
	if !strings.Contains(string(body), "casegraph_frame_duration_seconds") {
		t.Error("handler did not expose the frame histogram")
	}
}
