package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(i+1) * time.Millisecond
	}
	s := computeStats(samples)
	if s.ops != 100 || s.p50 != 50*time.Millisecond || s.p99 != 99*time.Millisecond || s.max != 100*time.Millisecond {
		t.Fatalf("unexpected stats %+v", s)
	}
	if computeStats(nil).ops != 0 {
		t.Fatal("empty samples must yield zero stats")
	}
}

func TestRunReportsSingleReactionPerRound(t *testing.T) {
	for _, storage := range []string{"memory", "redis", "sqlite"} {
		t.Run(storage, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), &out, runOptions{
				requests:   20,
				rounds:     2,
				storage:    storage,
				reject:     "status",
				resetDelay: 300 * time.Millisecond,
				latency:    time.Millisecond,
			})
			if err != nil {
				t.Fatalf("run: %v\n%s", err, out.String())
			}
			report := out.String()
			if strings.Count(report, "navigations=1 authErrors=20 otherErrors=0 loggedOut=true") != 2 {
				t.Fatalf("unexpected report:\n%s", report)
			}
			if !strings.Contains(report, "expiry reactions=2 ") {
				t.Fatalf("unexpected totals:\n%s", report)
			}
		})
	}
}

func TestRunRejectsBadOptions(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, runOptions{requests: 1, rounds: 1, storage: "etcd", reject: "envelope", resetDelay: time.Second}); err == nil {
		t.Fatal("expected unknown storage error")
	}
	if err := run(context.Background(), &out, runOptions{requests: 1, rounds: 1, storage: "memory", reject: "teapot", resetDelay: time.Second}); err == nil {
		t.Fatal("expected unknown reject error")
	}
	if err := run(context.Background(), &out, runOptions{requests: 0, rounds: 1}); err == nil {
		t.Fatal("expected requests error")
	}
}
