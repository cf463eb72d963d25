package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	var sorted []time.Duration
	for i := 1; i <= 100; i++ {
		sorted = append(sorted, time.Duration(i)*time.Millisecond)
	}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, time.Millisecond},
		{50, 50 * time.Millisecond},
		{99, 99 * time.Millisecond},
		{100, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, percentile(sorted, tt.p), "p%v", tt.p)
	}
	assert.Zero(t, percentile(nil, 50))
}

func TestStatsReport(t *testing.T) {
	s := newStats()
	s.record(sample{latency: 10 * time.Millisecond, status: 200, cacheHit: true})
	s.record(sample{latency: 20 * time.Millisecond, status: 200})
	s.record(sample{latency: 5 * time.Millisecond, status: 429})
	s.record(sample{err: errors.New("refused")})
	s.record(sample{cancelled: true})

	var buf bytes.Buffer
	assert.True(t, s.report(&buf, time.Second))
	out := buf.String()
	for _, want := range []string{
		"Total Requests:  4",
		"Successful:      2",
		"Errors:          2",
		"Cache Hit Rate:  50.00%",
		"  429: 1",
	} {
		assert.Contains(t, out, want)
	}

	assert.False(t, newStats().report(&bytes.Buffer{}, time.Second), "empty report")
}

func TestSearchURL(t *testing.T) {
	tg := target{baseURL: "http://x", queries: []string{"water", ""}, types: []string{"book"}, limit: 5}
	assert.Equal(t, "http://x/api/v1/search?limit=5&q=water&type=book", tg.searchURL(0))
	assert.NotContains(t, tg.searchURL(1), "q=", "blank query browses")
}
