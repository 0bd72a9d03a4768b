package batch

import (
	"math"
	"math/rand"
	"time"

	"sheetflow/domain/core"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// reservoirSize caps the latency samples a run keeps for its quantiles
const reservoirSize = 1024

// Report summarizes one Process run
type Report struct {
	RunID   core.RunID     `json:"run_id"`
	Rows    int            `json:"rows"`
	Windows int            `json:"windows"`
	Failed  int            `json:"failed"`
	Elapsed time.Duration  `json:"elapsed"`
	Latency LatencySummary `json:"latency"`

	started time.Time
	latency latencyStats
}

// LatencySummary describes handler latency in milliseconds
type LatencySummary struct {
	Mean   float64 `json:"mean_ms"`
	Median float64 `json:"median_ms"`
	P95    float64 `json:"p95_ms"`
	Max    float64 `json:"max_ms"`
	StdDev float64 `json:"stddev_ms"`
}

func newReport() *Report {
	return &Report{RunID: core.NewRunID(), started: time.Now()}
}

func (r *Report) record(rows, failed int, latencies []float64) {
	r.Rows += rows
	r.Failed += failed
	r.latency.add(latencies)
}

func (r *Report) finish() *Report {
	r.Elapsed = time.Since(r.started)
	r.Latency = r.latency.summary()
	return r
}

// latencyStats folds windows of samples into running aggregates. Count, mean,
// deviation and max are exact; median and p95 come from a uniform reservoir
// of at most reservoirSize samples, exact until the run exceeds it.
type latencyStats struct {
	count     int
	mean      float64
	m2        float64 // sum of squared deviations from the mean
	max       float64
	reservoir []float64
	rng       *rand.Rand
}

func (l *latencyStats) add(window []float64) {
	n := len(window)
	if n == 0 {
		return
	}

	mean, variance := stat.MeanVariance(window, nil)
	m2 := 0.0
	if n > 1 && !math.IsNaN(variance) {
		m2 = variance * float64(n-1)
	}
	windowMax, _ := stats.Max(stats.Float64Data(window))

	if l.count == 0 {
		l.mean, l.m2, l.max = mean, m2, windowMax
	} else {
		total := float64(l.count + n)
		delta := mean - l.mean
		l.mean += delta * float64(n) / total
		l.m2 += m2 + delta*delta*float64(l.count)*float64(n)/total
		l.max = math.Max(l.max, windowMax)
	}

	for _, x := range window {
		l.sample(x)
	}
}

// sample keeps x in the reservoir with probability reservoirSize/seen
func (l *latencyStats) sample(x float64) {
	l.count++
	if len(l.reservoir) < reservoirSize {
		l.reservoir = append(l.reservoir, x)
		return
	}
	if l.rng == nil {
		l.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if j := l.rng.Int63n(int64(l.count)); j < reservoirSize {
		l.reservoir[j] = x
	}
}

// summary returns the zero summary when nothing was recorded
func (l *latencyStats) summary() LatencySummary {
	var s LatencySummary
	if l.count == 0 {
		return s
	}
	s.Mean = l.mean
	s.Max = l.max
	if l.count > 1 {
		s.StdDev = math.Sqrt(l.m2 / float64(l.count-1))
	}

	data := stats.Float64Data(l.reservoir)
	s.Median, _ = stats.Median(data)
	// Percentile has no answer for very small samples
	if p95, err := stats.Percentile(data, 95); err == nil && !math.IsNaN(p95) {
		s.P95 = p95
	} else {
		s.P95 = s.Max
	}
	return s
}
