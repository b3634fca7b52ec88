package internaldefs

import (
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestCounterDefsUnique(t *testing.T) {
	names := map[string]bool{}
	ids := map[goSession.MetricID]bool{}
	for _, d := range CounterDefs {
		if names[d.Name] || ids[d.ID] {
			t.Fatalf("duplicate counter def %+v", d)
		}
		names[d.Name] = true
		ids[d.ID] = true
	}
	for _, d := range HistogramDefs {
		if ids[d.ID] {
			t.Fatalf("histogram %s also exported as counter", d.Name)
		}
	}
}

func TestHistogramBoundSuffix(t *testing.T) {
	got := HistogramBoundSuffix()
	if len(got) != BucketCount {
		t.Fatalf("expected %d suffixes, got %d", BucketCount, len(got))
	}
	if got[0] != "0_01" || got[len(got)-2] != "1" || got[len(got)-1] != "inf" {
		t.Fatalf("unexpected suffixes %v", got)
	}
}

func TestCumulativeBuckets(t *testing.T) {
	raw := NormalizeBuckets([]uint64{1, 2, 3})
	cum := CumulativeBuckets(raw)
	if cum[0] != 1 || cum[2] != 6 || cum[BucketCount-1] != 6 {
		t.Fatalf("unexpected cumulative buckets %v", cum)
	}
}
