// Package metrics tracks run-level throughput and annotation counts for
// the annotation pipeline, logging periodic summaries the way the
// reference scan-rate logger does for its own counters.
package metrics

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	ethmetrics "github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/aistraj/common"
)

// Recorder aggregates record/annotation/noise counters for one run and
// can log periodic rate snapshots while the run is in progress.
type Recorder struct {
	started time.Time
	ticker  *time.Ticker

	reg         ethmetrics.Registry
	records     ethmetrics.Counter
	recordMeter ethmetrics.Meter
	annotated   ethmetrics.Counter
	noisy       ethmetrics.Counter
}

// New returns a Recorder. Call Stop when the run completes.
func New() *Recorder {
	ethmetrics.Enabled = true

	reg := ethmetrics.NewRegistry()
	r := &Recorder{
		started:     time.Now(),
		reg:         reg,
		records:     ethmetrics.NewCounter(),
		recordMeter: ethmetrics.NewMeter(),
		annotated:   ethmetrics.NewCounter(),
		noisy:       ethmetrics.NewCounter(),
	}
	reg.Register("records.count", r.records)
	reg.Register("records.meter", r.recordMeter)
	reg.Register("annotated.count", r.annotated)
	reg.Register("noisy.count", r.noisy)
	return r
}

// MarkRecords records n freshly-consumed observations.
func (r *Recorder) MarkRecords(n int) {
	r.records.Inc(int64(n))
	r.recordMeter.Mark(int64(n))
}

// SetAnnotated and SetNoisy latch final counts read from the Sink once
// results have been emitted; the Sink, not the Recorder, is the source
// of truth for these totals.
func (r *Recorder) SetAnnotated(n int) { r.annotated.Clear(); r.annotated.Inc(int64(n)) }
func (r *Recorder) SetNoisy(n int)     { r.noisy.Clear(); r.noisy.Inc(int64(n)) }

// StartTicking logs a throughput snapshot every interval until Stop is
// called.
func (r *Recorder) StartTicking(interval time.Duration) {
	r.ticker = time.NewTicker(interval)
	go func() {
		for range r.ticker.C {
			r.log()
		}
	}()
}

func (r *Recorder) log() {
	snap := r.recordMeter.Snapshot()
	slog.Info("annotating",
		"records", humanize.Comma(snap.Count()),
		"rps", common.DecimalToFixed(snap.Rate1(), 1),
		"running", time.Since(r.started).Round(time.Second))
}

// Stop halts the ticking logger, if started.
func (r *Recorder) Stop() {
	if r.ticker != nil {
		r.ticker.Stop()
	}
}

// Summary is the final run report, emitted once after results are
// written.
type Summary struct {
	RecordCount      int
	AnnotatedCount   int
	NoisyCount       int
	ObjectCount      int
	Runtime          time.Duration
	CompressionRatio float64
}

// LogSummary renders a Summary the way the reference implementation's
// final stderr report does, trading a boost::property_tree-flavored
// line for a structured slog record.
func LogSummary(s Summary) {
	slog.Info("run complete",
		"records", humanize.Comma(int64(s.RecordCount)),
		"annotated", humanize.Comma(int64(s.AnnotatedCount)),
		"noisy", humanize.Comma(int64(s.NoisyCount)),
		"objects", humanize.Comma(int64(s.ObjectCount)),
		"compression_ratio", common.DecimalToFixed(s.CompressionRatio, 4),
		"runtime", s.Runtime.Round(time.Millisecond))
}

// CompressionRatio mirrors the reference implementation's
// (recCount-numAnnotated)/recCount figure: the fraction of records that
// carried no classification label and so could, in principle, be
// dropped downstream.
func CompressionRatio(recCount, numAnnotated int) float64 {
	if recCount == 0 {
		return 0
	}
	return float64(recCount-numAnnotated) / float64(recCount)
}
