package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionStarted, Name: "gosession_session_started_total", Help: "Native sessions started."},
	{ID: goSession.MetricSessionStartFailed, Name: "gosession_session_start_failed_total", Help: "Native session starts that failed and left the handler invalid."},
	{ID: goSession.MetricSessionResumed, Name: "gosession_session_resumed_total", Help: "Handlers bound to an existing native session."},
	{ID: goSession.MetricFixationDetected, Name: "gosession_fixation_detected_total", Help: "Principal changes detected by the fixation guard."},
	{ID: goSession.MetricSessionRegenerated, Name: "gosession_session_regenerated_total", Help: "Session id regenerations."},
	{ID: goSession.MetricSessionDestroyed, Name: "gosession_session_destroyed_total", Help: "Destroyed sessions."},
	{ID: goSession.MetricEntryExpired, Name: "gosession_entry_expired_total", Help: "Expired entries removed on read."},
	{ID: goSession.MetricCommitSuccess, Name: "gosession_commit_success_total", Help: "Successful native session commits."},
	{ID: goSession.MetricCommitFailure, Name: "gosession_commit_failure_total", Help: "Failed native session commits."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricCommitLatency, Name: "gosession_commit_latency_seconds", Help: "Native session commit latency."},
}

// AuditDroppedName is the counter for audit events dropped under backpressure.
const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
