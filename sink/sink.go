// Package sink collects emitted observations and writes them to the
// output file in timestamp order, once the run has exhausted the input.
package sink

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/rotblauer/aistraj/types/observation"
)

const (
	delimiter = " "
	separator = ";"
	precision = 5
)

// entry pairs a reported observation with its insertion sequence number,
// so that points sharing a timestamp retain the order in which the state
// machine reported them once sorted.
type entry struct {
	t    int64
	seq  int
	p    *observation.Observation
}

// Sink accepts observations (possibly out of timestamp order, since a
// historical point can be annotated and evicted after a later point has
// already been reported) and emits them ordered by timestamp.
type Sink struct {
	includeID bool

	entries []entry
	numAnno int
	numNoise int
}

// New returns an empty Sink. includeID controls whether the output rows
// (and header) carry the object id column, matching whether the input
// stream carried one.
func New(includeID bool) *Sink {
	return &Sink{includeID: includeID}
}

// ReportPoint accepts a point into the results buffer. Idempotent: a
// point already marked reported is ignored, satisfying at-most-once
// delivery even if a caller reports the same pointer twice.
func (s *Sink) ReportPoint(p *observation.Observation) {
	if p.IsReported() {
		return
	}
	p.SetReported()
	s.entries = append(s.entries, entry{t: p.T, seq: len(s.entries), p: p})
}

// CountAnnotated returns the number of points carrying at least one
// classification label (bits 0-8), as counted by EmitResults. It is zero
// until EmitResults has run, and each EmitResults call adds to it.
func (s *Sink) CountAnnotated() int { return s.numAnno }

// CountNoisy returns the number of NOISE points, as counted by
// EmitResults. It is zero until EmitResults has run, and each
// EmitResults call adds to it.
func (s *Sink) CountNoisy() int { return s.numNoise }

// EmitResults writes every collected point to w in ascending timestamp
// order (ties broken by report order), formatted as space-delimited
// ASCII with CRLF line endings. If annotatedOnly is set, points with no
// classification label and no NOISE flag are skipped.
func (s *Sink) EmitResults(w io.Writer, annotatedOnly bool) error {
	sort.SliceStable(s.entries, func(i, j int) bool {
		if s.entries[i].t != s.entries[j].t {
			return s.entries[i].t < s.entries[j].t
		}
		return s.entries[i].seq < s.entries[j].seq
	})

	bw := bufio.NewWriter(w)

	header := []string{"lon", "lat", "t", "speed", "heading", "annotation"}
	if s.includeID {
		header = append([]string{"id"}, header...)
	}
	if err := writeRow(bw, header); err != nil {
		return err
	}

	for _, e := range s.entries {
		p := e.p
		label := ""
		if p.IsAnnotated() {
			s.numAnno++
			label = p.Annotation.Join(separator)
		} else if p.IsNoise() {
			s.numNoise++
			label = "NOISE"
		}

		if annotatedOnly && label == "" {
			continue
		}

		fields := []string{
			fixed(p.X()), fixed(p.Y()), fmt.Sprintf("%d", p.T),
			fixed(p.Speed), fixed(p.Heading), label,
		}
		if s.includeID {
			fields = append([]string{p.OID.String()}, fields...)
		}
		if err := writeRow(bw, fields); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).Round(precision).StringFixed(precision)
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if _, err := w.WriteString(delimiter); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(f); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}
