package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"time"
)

type sample struct {
	latency   time.Duration
	server    time.Duration
	status    int
	cacheHit  bool
	err       error
	cancelled bool
}

type stats struct {
	mu        sync.Mutex
	total     int
	success   int
	errors    int
	cacheHits int
	latencies []time.Duration
	server    []time.Duration
	codes     map[int]int
}

func newStats() *stats {
	return &stats{
		latencies: make([]time.Duration, 0, 100000),
		codes:     make(map[int]int),
	}
}

func (s *stats) record(r sample) {
	if r.cancelled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	if r.err != nil {
		s.errors++
		return
	}
	if r.status >= 200 && r.status < 300 {
		s.success++
	} else {
		s.errors++
	}
	if r.cacheHit {
		s.cacheHits++
	}
	s.codes[r.status]++
	s.latencies = append(s.latencies, r.latency)
	if r.server > 0 {
		s.server = append(s.server, r.server)
	}
}

// report writes the summary and reports whether any request completed.
func (s *stats) report(w io.Writer, duration time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", s.total)
	fmt.Fprintf(w, "Successful:      %d\n", s.success)
	fmt.Fprintf(w, "Errors:          %d\n", s.errors)
	if s.total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(s.errors)/float64(s.total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(s.total)/duration.Seconds())
	}
	if s.success > 0 {
		fmt.Fprintf(w, "Cache Hit Rate:  %.2f%%\n", float64(s.cacheHits)/float64(s.success)*100)
	}

	if len(s.latencies) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Client Latency ===")
		writeLatencies(w, s.latencies)
	}
	if len(s.server) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Server Latency ===")
		writeLatencies(w, s.server)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(s.codes))
	for code := range s.codes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, s.codes[code])
	}

	if s.total == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WARNING: No requests completed. Is the server running?")
		return false
	}
	return true
}

func writeLatencies(w io.Writer, in []time.Duration) {
	sorted := slices.Clone(in)
	slices.Sort(sorted)

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	avg := sum / time.Duration(len(sorted))

	var sq float64
	for _, l := range sorted {
		d := float64(l - avg)
		sq += d * d
	}

	fmt.Fprintf(w, "Min:    %s\n", sorted[0])
	fmt.Fprintf(w, "Avg:    %s\n", avg)
	fmt.Fprintf(w, "P50:    %s\n", percentile(sorted, 50))
	fmt.Fprintf(w, "P90:    %s\n", percentile(sorted, 90))
	fmt.Fprintf(w, "P99:    %s\n", percentile(sorted, 99))
	fmt.Fprintf(w, "Max:    %s\n", sorted[len(sorted)-1])
	fmt.Fprintf(w, "StdDev: %s\n", time.Duration(math.Sqrt(sq/float64(len(sorted)))))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
