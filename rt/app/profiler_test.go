package app

import (
	"strings"
	"testing"
	"time"

	"github.com/gekko3d/rtdemo/rt/tracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steppedClock(step time.Duration) func() time.Time {
	t := time.Unix(0, 0)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestProfilerScopes(t *testing.T) {
	p := NewProfiler()
	p.now = steppedClock(2 * time.Millisecond)

	for i := 0; i < 3; i++ {
		p.BeginScope("Trace")
		p.EndScope("Trace")
		p.BeginScope("Upload")
		p.EndScope("Upload")
	}

	assert.Equal(t, []string{"Trace", "Upload"}, p.Order)
	assert.Equal(t, 2*time.Millisecond, p.Scopes["Trace"])
	assert.Equal(t, 6*time.Millisecond, p.Totals["Trace"])
	assert.Equal(t, 3, p.Samples["Trace"])
	assert.Equal(t, 2*time.Millisecond, p.Average("Upload"))
	assert.Zero(t, p.Average("Missing"))
}

func TestProfilerEndWithoutBegin(t *testing.T) {
	p := NewProfiler()
	p.EndScope("Trace")
	assert.Empty(t, p.Order)
	assert.Zero(t, p.Samples["Trace"])

	p.BeginScope("Trace")
	p.EndScope("Trace")
	p.EndScope("Trace")
	assert.Equal(t, 1, p.Samples["Trace"])
}

func TestProfilerReset(t *testing.T) {
	p := NewProfiler()
	p.now = steppedClock(time.Millisecond)
	p.BeginScope("Trace")
	p.EndScope("Trace")

	p.Reset()
	assert.Zero(t, p.Scopes["Trace"])
	assert.Equal(t, time.Millisecond, p.Totals["Trace"])
	assert.Equal(t, []string{"Trace"}, p.Order)
}

func TestProfilerStatsString(t *testing.T) {
	p := NewProfiler()
	p.now = steppedClock(1500 * time.Microsecond)
	p.BeginScope("Trace")
	p.EndScope("Trace")

	out := p.StatsString()
	assert.Contains(t, out, "Scope")
	assert.Contains(t, out, "Trace")
	assert.Contains(t, out, "1.50 ms")
	assert.NotContains(t, out, "Counter")

	p.SetCount("Spheres", 5)
	p.SetCount("Frames", 12)
	out = p.StatsString()
	require.Contains(t, out, "Counter")
	assert.Less(t, strings.Index(out, "Frames"), strings.Index(out, "Spheres"))
}

func TestProfilerRecordTracer(t *testing.T) {
	p := NewProfiler()
	p.SetCount("Spheres", 5)
	p.RecordTracer(tracer.Stats{Frames: 3, LastFrame: 2500 * time.Microsecond})

	assert.Equal(t, 3, p.Counts["Frames"])
	assert.Equal(t, 2500, p.Counts["Trace us"])
	assert.Equal(t, 5, p.Counts["Spheres"])

	p.RecordTracer(tracer.Stats{Frames: 4, LastFrame: time.Millisecond})
	assert.Equal(t, 4, p.Counts["Frames"])
	assert.Contains(t, p.StatsString(), "Trace us")
}
