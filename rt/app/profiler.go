package app

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/gekko3d/rtdemo/rt/tracer"
	"github.com/olekukonko/tablewriter"
)

// Profiler collects CPU wall time per named scope of the frame loop. Scopes
// are reported in the order they were first opened.
type Profiler struct {
	Scopes     map[string]time.Duration
	Totals     map[string]time.Duration
	Samples    map[string]int
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string

	now func() time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		Totals:     make(map[string]time.Duration),
		Samples:    make(map[string]int),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Order:      make([]string, 0),
		now:        time.Now,
	}
}

func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = p.now()
	if _, seen := p.Samples[name]; !seen {
		p.Order = append(p.Order, name)
		p.Samples[name] = 0
	}
}

// EndScope is a no-op for a scope that was never opened.
func (p *Profiler) EndScope(name string) {
	start, ok := p.StartTimes[name]
	if !ok {
		return
	}
	delete(p.StartTimes, name)
	d := p.now().Sub(start)
	p.Scopes[name] = d
	p.Totals[name] += d
	p.Samples[name]++
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

// RecordTracer copies the tracer's frame counters into the counters table.
func (p *Profiler) RecordTracer(s tracer.Stats) {
	p.SetCount("Frames", int(s.Frames))
	p.SetCount("Trace us", int(s.LastFrame.Microseconds()))
}

// Reset clears the last-frame timings and keeps totals and order.
func (p *Profiler) Reset() {
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
}

// Average is the mean duration of a scope over every completed sample.
func (p *Profiler) Average(name string) time.Duration {
	n := p.Samples[name]
	if n == 0 {
		return 0
	}
	return p.Totals[name] / time.Duration(n)
}

func millis(d time.Duration) string {
	return fmt.Sprintf("%.2f ms", float64(d.Microseconds())/1000.0)
}

// StatsString renders the timing table followed by the counters table.
func (p *Profiler) StatsString() string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Scope", "Last", "Average", "Samples"})
	for _, name := range p.Order {
		table.Append([]string{
			name,
			millis(p.Scopes[name]),
			millis(p.Average(name)),
			fmt.Sprintf("%d", p.Samples[name]),
		})
	}
	table.Render()

	if len(p.Counts) == 0 {
		return buf.String()
	}

	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteString("\n")
	counts := tablewriter.NewWriter(&buf)
	counts.SetAutoFormatHeaders(false)
	counts.SetHeader([]string{"Counter", "Value"})
	for _, k := range keys {
		counts.Append([]string{k, fmt.Sprintf("%d", p.Counts[k])})
	}
	counts.Render()

	return buf.String()
}
