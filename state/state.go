// Package state holds the per-object sliding-window mobility state
// machine: the window of recent non-noise observations for one object,
// the two-phase (forward + backward) classification of each arriving
// observation, revocation of annotations contradicted by later evidence,
// and eviction of observations that have aged out of the window.
package state

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"
	"github.com/rotblauer/aistraj/conceptual"
	"github.com/rotblauer/aistraj/geo"
	"github.com/rotblauer/aistraj/params"
	"github.com/rotblauer/aistraj/sink"
	"github.com/rotblauer/aistraj/types/observation"
)

// status bits, distinct from an Observation's annotation bits.
const (
	statusStopped = 1 << iota
	statusSpeedChanged
	statusSlowMotion
)

// State is the velocity-vector and mobility-status window for one object.
type State struct {
	oid     conceptual.ObjectID
	curTime int64
	config  *params.Config
	seq     []*observation.Observation
	status  uint8

	sinkStream *sink.Sink
}

// New returns a State for oid anchored at t0, sharing config and
// reporting evictions to s.
func New(oid conceptual.ObjectID, t0 int64, config *params.Config, s *sink.Sink) *State {
	return &State{oid: oid, curTime: t0, config: config, sinkStream: s}
}

// Restore rebuilds a State from a previously checkpointed window,
// bypassing Init's GAP_END marking since the window already carries
// whatever annotations it held when it was saved.
func Restore(oid conceptual.ObjectID, config *params.Config, s *sink.Sink, curTime int64, status uint8, seq []*observation.Observation) *State {
	return &State{oid: oid, curTime: curTime, config: config, sinkStream: s, status: status, seq: seq}
}

// Snapshot returns the fields a checkpoint needs to later Restore this
// State: its status bits, clock, and retained window. The returned
// slice aliases the State's own window and must be treated read-only by
// the caller.
func (s *State) Snapshot() (curTime int64, status uint8, seq []*observation.Observation) {
	return s.curTime, s.status, s.seq
}

func (s *State) IsEmpty() bool { return len(s.seq) == 0 }

func (s *State) IsStopped() bool       { return s.status&statusStopped != 0 }
func (s *State) SetStopped()           { s.status |= statusStopped }
func (s *State) ResetStopped()         { s.status &^= statusStopped }
func (s *State) HasSpeedChanged() bool { return s.status&statusSpeedChanged != 0 }
func (s *State) SetSpeedChanged()      { s.status |= statusSpeedChanged }
func (s *State) ResetSpeedChanged()    { s.status &^= statusSpeedChanged }
func (s *State) IsSlowMotion() bool    { return s.status&statusSlowMotion != 0 }
func (s *State) SetSlowMotion()        { s.status |= statusSlowMotion }
func (s *State) ResetSlowMotion()      { s.status &^= statusSlowMotion }

// Init seeds an empty (or just-purged) window with p: marks p as
// GAP_END, since by definition it is the first location seen after
// either stream start or a communication gap.
func (s *State) Init(p *observation.Observation) {
	p.SetGapEnd()
	s.seq = []*observation.Observation{p}
	s.status = 0
	s.curTime = p.T
}

func (s *State) append(p *observation.Observation) {
	s.seq = append(s.seq, p)
	s.curTime = p.T
}

// Update runs the full two-phase arrival algorithm for a newly received
// observation p against the window's current tail.
func (s *State) Update(p *observation.Observation) {
	q := s.seq[len(s.seq)-1]

	s.forwardMobilityCheck(q, p)
	s.backwardMobilityCheck(q, p)

	if p.IsStopEnd() {
		s.ResetStopped()
	}
}

// Purge annuls the window: every retained observation is emitted and the
// window is emptied, used when a communication gap can't be explained by
// a stationary object.
func (s *State) Purge() {
	for _, q := range s.seq {
		s.sinkStream.ReportPoint(q)
	}
	s.seq = nil
	s.status = 0
}

// cleanup discards everything but the two newest observations, used
// after a confirmed heading change to keep the window from dragging
// stale pre-turn history into future velocity computations.
func (s *State) cleanup() {
	for len(s.seq) > 2 {
		s.sinkStream.ReportPoint(s.seq[0])
		s.seq = s.seq[1:]
	}
}

// RevokeStop clears the most recent STOP_START bit still held in the
// window, walking backward from the newest observation. Returns false if
// no such bit is found.
func (s *State) RevokeStop() bool {
	for i := len(s.seq) - 1; i >= 0; i-- {
		if s.seq[i].IsStopStart() {
			s.seq[i].ResetStopStart()
			return true
		}
	}
	return false
}

// RevokeChangeInHeading clears every CHANGE_IN_HEADING bit found walking
// backward from the newest observation, stopping at (and including) the
// first observation carrying STOP_START. Reports whether that STOP_START
// observation was reached.
func (s *State) RevokeChangeInHeading() bool {
	for i := len(s.seq) - 1; i >= 0; i-- {
		o := s.seq[i]
		if o.IsChangeInHeading() {
			o.ResetChangeInHeading()
		}
		if o.IsStopStart() {
			return true
		}
	}
	return false
}

// ExpungeObsolete evicts observations that have aged out of state_size
// or state_timespan, reporting each to the Sink. Suspended while
// STOPPED: a stop's history may still be needed to revoke a false stop.
func (s *State) ExpungeObsolete(tRef int64) {
	if s.IsStopped() {
		return
	}

	for len(s.seq) > 1 {
		head := s.seq[0]
		tooOld := head.T <= tRef-int64(s.config.StateTimespan)
		tooMany := uint(len(s.seq)) > s.config.StateSize
		if !tooOld && !tooMany {
			break
		}
		s.sinkStream.ReportPoint(head)
		s.seq = s.seq[1:]
	}

	if len(s.seq) > 0 {
		s.curTime = s.seq[len(s.seq)-1].T
	} else {
		s.status = 0
	}
}

// MarkLastAsGap flags the newest retained observation as GAP_START and
// flushes the entire window to the Sink. Must be called on every live
// State once the input stream is exhausted.
func (s *State) MarkLastAsGap() {
	if len(s.seq) > 0 {
		s.seq[len(s.seq)-1].SetGapStart()
		if s.IsStopped() {
			s.RevokeChangeInHeading()
		}
	}
	for _, q := range s.seq {
		s.sinkStream.ReportPoint(q)
	}
	s.seq = nil
}

// checkNoise applies the noise filter to a candidate new observation
// with respect to the reference predecessor. A pair straddling a
// communication gap is never noise, since a single post-gap location
// carries no history to compare against.
func (s *State) checkNoise(oldLoc, newLoc *observation.Observation) bool {
	if oldLoc.IsGapEnd() || newLoc.IsGapEnd() {
		return false
	}

	if newLoc.Speed >= s.config.MaxSpeed {
		return true
	}

	if oldLoc.Speed > geo.EPSILON &&
		math.Abs(geo.RateOfChangeKnots(oldLoc.Speed, newLoc.Speed, newLoc.TimeElapsed)) >= s.config.MaxRateOfChange {
		return true
	}

	// Argument order is intentionally reversed here relative to
	// RateOfChangeKnots above: the delta's sign is discarded by Abs, but
	// the divisor is pinned to newLoc's elapsed time regardless.
	if !oldLoc.IsGapEnd() && newLoc.Speed > s.config.LowSpeed &&
		math.Abs(geo.RateOfTurn(newLoc.Heading, oldLoc.Heading, newLoc.TimeElapsed)) >= s.config.MaxRateOfTurn {
		return true
	}

	return false
}

// backwardMobilityCheck retro-classifies q (the window's pre-existing
// last observation) once p has arrived, since the turn q may represent
// is only observable in hindsight. Runs unconditionally after the
// forward phase, even if the forward phase purged q out of the window
// entirely. Bits and kinematics set here on an already-purged q still
// reach the output: the Sink holds q itself and formats it only in
// EmitResults.
func (s *State) backwardMobilityCheck(q, p *observation.Observation) {
	if q.IsGapEnd() {
		q.Speed = p.Speed
		q.Heading = p.Heading
		return
	}

	if p.Speed > s.config.NoSpeed &&
		(geo.AngleDifference(p.Heading, q.Heading) > s.config.AngleThreshold ||
			math.Abs(s.accumHeading()) > s.config.AngleThreshold) {

		if p.Speed < s.config.LowSpeed &&
			geo.AngleDifference(p.Heading, s.meanHeading()) < 2*s.config.AngleThreshold {
			return
		}

		q.SetChangeInHeading()
		if !s.IsStopped() && !s.IsSlowMotion() {
			s.cleanup()
		}
	}
}

// forwardMobilityCheck classifies the newly arrived observation p
// against the window, annotating it with whichever mobility features its
// arrival reveals.
func (s *State) forwardMobilityCheck(prevLoc, newLoc *observation.Observation) {
	// The window is kept noise-free by construction (noise never joins
	// seq), so prevLoc can never itself be NOISE; this mirrors the
	// reference implementation's defensive fallback regardless.
	var oldLoc *observation.Observation
	if prevLoc.IsNoise() && len(s.seq) > 0 {
		oldLoc = s.seq[len(s.seq)-1]
	} else {
		oldLoc = prevLoc
	}

	newLoc.Distance = geo.Haversine(oldLoc.Point, newLoc.Point)
	newLoc.TimeElapsed = newLoc.T - oldLoc.T

	if newLoc.TimeElapsed <= 0 {
		newLoc.SetNoise()
		s.sinkStream.ReportPoint(newLoc)
		return
	}

	newLoc.Speed = 3600.0 * newLoc.Distance / (1852.0 * float64(newLoc.TimeElapsed))
	newLoc.Heading = geo.Bearing(oldLoc.Point, newLoc.Point)

	if newLoc.TimeElapsed > int64(s.config.GapPeriod) {
		newLoc.SetGapEnd()
		oldLoc.SetGapStart()

		if s.IsStopped() &&
			(newLoc.Distance < s.config.DistanceThreshold || s.stopNetDisplacement(false) < s.config.DistanceThreshold) {
			s.SetStopped() // stop continues across the gap
		} else {
			s.Purge()
			s.Init(newLoc)
			return
		}
	}

	if s.checkNoise(oldLoc, newLoc) {
		newLoc.SetNoise()
		s.sinkStream.ReportPoint(newLoc)
		return
	}
	s.append(newLoc)

	if len(s.seq) < 2 {
		return
	}

	switch {
	case !s.IsStopped() && newLoc.Speed < s.config.NoSpeed &&
		(newLoc.Distance < s.config.DistanceThreshold || geo.Haversine(newLoc.Point, s.centroid()) < s.config.DistanceThreshold):

		if oldLoc.IsGapEnd() {
			oldLoc.SetStopStart()
		} else {
			newLoc.SetStopStart()
		}
		s.SetStopped()

		if s.IsSlowMotion() {
			newLoc.SetSlowMotionEnd()
			s.ResetSlowMotion()
		}
		if s.HasSpeedChanged() {
			newLoc.SetChangeInSpeedEnd()
			s.ResetSpeedChanged()
		}

	case s.IsStopped() && (newLoc.Speed >= s.config.NoSpeed || newLoc.Distance >= s.config.DistanceThreshold):
		if s.stopNetDisplacement(true) > s.config.DistanceThreshold {
			// False stop: the object was moving all along.
			s.RevokeStop()
			s.ResetStopped()
		} else if s.stopNetDisplacement(false) >= s.config.DistanceThreshold {
			oldLoc.SetStopEnd()
			s.ResetStopped()
			s.RevokeChangeInHeading()
		}
	}

	if !s.IsStopped() {
		meanSpeed := s.meanSpeed()
		ratio := math.Abs((newLoc.Speed - meanSpeed) / meanSpeed)

		if ratio > s.config.SpeedRatio && !s.HasSpeedChanged() {
			newLoc.SetChangeInSpeedStart()
			s.SetSpeedChanged()
		}
		if ratio <= s.config.SpeedRatio && s.HasSpeedChanged() {
			newLoc.SetChangeInSpeedEnd()
			s.ResetSpeedChanged()
		}

		if newLoc.Speed <= s.config.LowSpeed && oldLoc.Speed > s.config.LowSpeed && !s.IsSlowMotion() {
			newLoc.SetSlowMotionStart()
			s.SetSlowMotion()
		}
		if newLoc.Speed > s.config.LowSpeed && oldLoc.Speed <= s.config.LowSpeed && s.IsSlowMotion() {
			newLoc.SetSlowMotionEnd()
			s.ResetSlowMotion()
		}
	}
}

// timespan returns the seconds spanned by the window, used as the
// divisor for mean speed.
func (s *State) timespan() int64 {
	return s.curTime - s.seq[0].T
}

// sumTravelDistance excludes the oldest point's Distance field: that
// field describes the leg from a predecessor no longer in the window.
func (s *State) sumTravelDistance() float64 {
	var d float64
	for _, o := range s.seq[1:] {
		d += o.Distance
	}
	return d
}

func (s *State) meanSpeed() float64 {
	return (3600.0 * s.sumTravelDistance()) / (1852.0 * float64(s.timespan()))
}

// meanHeading is the bearing from the oldest to the newest retained
// observation.
func (s *State) meanHeading() float64 {
	return geo.Bearing(s.seq[0].Point, s.seq[len(s.seq)-1].Point)
}

// accumHeading sums the pairwise signed heading drift across every
// consecutive pair in the window.
func (s *State) accumHeading() float64 {
	diff := 0.0
	first := s.seq[0]
	for _, second := range s.seq[1:] {
		diff += geo.SlopeDifference(first.Heading, second.Heading)
		first = second
	}
	return diff
}

// centroid is the planar mean of every retained position, an acceptable
// approximation given the window spans only seconds to minutes.
func (s *State) centroid() orb.Point {
	xs := make([]float64, len(s.seq))
	ys := make([]float64, len(s.seq))
	for i, o := range s.seq {
		xs[i], ys[i] = o.X(), o.Y()
	}
	mx, _ := stats.Mean(xs)
	my, _ := stats.Mean(ys)
	return orb.Point{mx, my}
}

// stopNetDisplacement sums the per-axis displacement walking backward
// from the newest observation (optionally skipping it) until it reaches
// and includes the observation carrying STOP_START, then converts the
// summed displacement vector to a meter magnitude.
func (s *State) stopNetDisplacement(excludeCurrent bool) float64 {
	idx := len(s.seq) - 1
	if excludeCurrent {
		idx--
	}
	if idx < 0 {
		return 0
	}

	first := s.seq[idx]
	idx--

	var netX, netY float64
	for idx >= 0 {
		second := s.seq[idx]
		dx, dy := geo.NetDisplacement(first.Point, second.Point)
		netX += dx
		netY += dy
		first = second

		if second.IsStopStart() {
			break
		}
		idx--
	}

	return geo.Haversine(orb.Point{0, 0}, orb.Point{netX, netY})
}
