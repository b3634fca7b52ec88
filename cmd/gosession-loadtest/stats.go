package main

import (
	"fmt"
	"io"
	"slices"
	"time"
)

type phaseStats struct {
	ops int
	p50 time.Duration
	p95 time.Duration
	p99 time.Duration
	max time.Duration
}

func computeStats(samples []time.Duration) phaseStats {
	if len(samples) == 0 {
		return phaseStats{}
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	return phaseStats{
		ops: len(sorted),
		p50: percentile(sorted, 50),
		p95: percentile(sorted, 95),
		p99: percentile(sorted, 99),
		max: sorted[len(sorted)-1],
	}
}

// percentile expects sorted samples.
func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d p50=%s p95=%s p99=%s max=%s\n",
		name,
		s.ops,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
		s.max.Round(time.Microsecond),
	)
}
