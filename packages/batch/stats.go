package batch

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// latencies are tracked in microseconds between 1us and 10 minutes
	minLatencyUs = 1
	maxLatencyUs = 600_000_000
	sigFigs      = 3
)

// Latency summarizes the durations of completed sends.
type Latency struct {
	Min  time.Duration `json:"min"`
	Max  time.Duration `json:"max"`
	Mean time.Duration `json:"mean"`
	P50  time.Duration `json:"p50"`
	P95  time.Duration `json:"p95"`
	P99  time.Duration `json:"p99"`
}

type recorder struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
}

func newRecorder() *recorder {
	return &recorder{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigs),
	}
}

func (r *recorder) record(d time.Duration) {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}

	r.mu.Lock()
	_ = r.histogram.RecordValue(us)
	r.mu.Unlock()
}

func (r *recorder) latency() Latency {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.histogram.TotalCount() == 0 {
		return Latency{}
	}

	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return Latency{
		Min:  us(r.histogram.Min()),
		Max:  us(r.histogram.Max()),
		Mean: time.Duration(r.histogram.Mean() * float64(time.Microsecond)),
		P50:  us(r.histogram.ValueAtQuantile(50)),
		P95:  us(r.histogram.ValueAtQuantile(95)),
		P99:  us(r.histogram.ValueAtQuantile(99)),
	}
}
