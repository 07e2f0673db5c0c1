// Package observation defines the raw point that flows through the
// mobility pipeline: a position report plus the kinematics derived from
// it on arrival, and the 11-bit annotation set that records which
// mobility events this point represents.
package observation

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/rotblauer/aistraj/conceptual"
)

// Bit is one flag in an Observation's annotation set.
type Bit uint

const (
	StopStart Bit = iota
	StopEnd
	ChangeInSpeedStart
	ChangeInSpeedEnd
	SlowMotionStart
	SlowMotionEnd
	GapStart
	GapEnd
	ChangeInHeading
	Noise
	Reported
)

var bitLabels = map[Bit]string{
	StopStart:          "STOP_START",
	StopEnd:            "STOP_END",
	ChangeInSpeedStart: "CHANGE_IN_SPEED_START",
	ChangeInSpeedEnd:   "CHANGE_IN_SPEED_END",
	SlowMotionStart:    "SLOW_MOTION_START",
	SlowMotionEnd:      "SLOW_MOTION_END",
	GapStart:           "GAP_START",
	GapEnd:             "GAP_END",
	ChangeInHeading:    "CHANGE_IN_HEADING",
	Noise:              "NOISE",
}

// classificationBits are decoded, in this order, into the output label list.
var classificationBits = []Bit{
	StopStart, StopEnd, ChangeInSpeedStart, ChangeInSpeedEnd,
	SlowMotionStart, SlowMotionEnd, GapStart, GapEnd, ChangeInHeading, Noise,
}

// Annotation is the 11-bit flag set carried by every Observation.
type Annotation uint16

func (a Annotation) has(b Bit) bool { return a&(1<<b) != 0 }
func (a *Annotation) set(b Bit)     { *a |= 1 << b }
func (a *Annotation) clear(b Bit)   { *a &^= 1 << b }

// IsAnnotated reports whether any classification bit (0-8, excluding
// NOISE) is set.
func (a Annotation) IsAnnotated() bool {
	for _, b := range classificationBits[:9] {
		if a.has(b) {
			return true
		}
	}
	return false
}

// Decode returns the set classification labels (bits 0-9) in bit order.
func (a Annotation) Decode() []string {
	var out []string
	for _, b := range classificationBits {
		if a.has(b) {
			out = append(out, bitLabels[b])
		}
	}
	return out
}

// Join renders Decode() joined by sep, matching the Sink's output column.
func (a Annotation) Join(sep string) string {
	return strings.Join(a.Decode(), sep)
}

// Observation is a single raw point plus derived kinematics.
type Observation struct {
	OID conceptual.ObjectID

	// Point holds longitude (X) and latitude (Y) in decimal degrees, WGS84.
	Point orb.Point

	// T is the UNIX epoch timestamp (seconds) assigned by the source.
	T int64

	// Speed over ground in knots, derived from the previous non-noise
	// observation on arrival.
	Speed float64

	// Heading over ground in degrees [0,360), or geo.UndefinedHeading.
	Heading float64

	// TimeElapsed is the seconds since the previous non-noise observation.
	TimeElapsed int64

	// Distance is the meters travelled since the previous non-noise
	// observation.
	Distance float64

	Annotation Annotation
}

// New returns an Observation with zeroed derived kinematics, as the
// reference implementation's constructor does.
func New(oid conceptual.ObjectID, x, y float64, t int64) *Observation {
	return &Observation{
		OID:   oid,
		Point: orb.Point{x, y},
		T:     t,
	}
}

func (o *Observation) X() float64 { return o.Point[0] }
func (o *Observation) Y() float64 { return o.Point[1] }

func (o *Observation) IsReported() bool { return o.Annotation.has(Reported) }
func (o *Observation) SetReported()     { o.Annotation.set(Reported) }

func (o *Observation) IsAnnotated() bool { return o.Annotation.IsAnnotated() }
func (o *Observation) DecodeAnnotation() []string { return o.Annotation.Decode() }

func (o *Observation) IsStopStart() bool  { return o.Annotation.has(StopStart) }
func (o *Observation) SetStopStart()      { o.Annotation.set(StopStart) }
func (o *Observation) ResetStopStart()    { o.Annotation.clear(StopStart) }

func (o *Observation) IsStopEnd() bool { return o.Annotation.has(StopEnd) }
func (o *Observation) SetStopEnd()     { o.Annotation.set(StopEnd) }

func (o *Observation) IsChangeInSpeedStart() bool { return o.Annotation.has(ChangeInSpeedStart) }
func (o *Observation) SetChangeInSpeedStart()     { o.Annotation.set(ChangeInSpeedStart) }
func (o *Observation) IsChangeInSpeedEnd() bool   { return o.Annotation.has(ChangeInSpeedEnd) }
func (o *Observation) SetChangeInSpeedEnd()       { o.Annotation.set(ChangeInSpeedEnd) }

func (o *Observation) IsSlowMotionStart() bool { return o.Annotation.has(SlowMotionStart) }
func (o *Observation) SetSlowMotionStart()     { o.Annotation.set(SlowMotionStart) }
func (o *Observation) IsSlowMotionEnd() bool   { return o.Annotation.has(SlowMotionEnd) }
func (o *Observation) SetSlowMotionEnd()       { o.Annotation.set(SlowMotionEnd) }

func (o *Observation) IsGapStart() bool { return o.Annotation.has(GapStart) }
func (o *Observation) SetGapStart()     { o.Annotation.set(GapStart) }
func (o *Observation) IsGapEnd() bool   { return o.Annotation.has(GapEnd) }
func (o *Observation) SetGapEnd()       { o.Annotation.set(GapEnd) }

func (o *Observation) IsChangeInHeading() bool { return o.Annotation.has(ChangeInHeading) }
func (o *Observation) SetChangeInHeading()     { o.Annotation.set(ChangeInHeading) }
func (o *Observation) ResetChangeInHeading()   { o.Annotation.clear(ChangeInHeading) }

func (o *Observation) IsNoise() bool { return o.Annotation.has(Noise) }
func (o *Observation) SetNoise()     { o.Annotation.set(Noise) }
