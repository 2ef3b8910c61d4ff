package internaldefs

import (
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[goSession.MetricID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate counter id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate counter name %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "gosession_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %s", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	if got := len(CounterDefs) + len(HistogramDefs); got != goSession.MetricCount {
		t.Fatalf("expected %d defs, got %d", goSession.MetricCount, got)
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(HistogramUpperBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatal("bounds and suffixes disagree")
	}
}
