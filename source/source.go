// Package source reads the raw position-report stream and delivers it
// to the router in fixed-width time windows, mirroring the reference
// scanner's one-tuple lookahead: a record belongs to window [t-slide, t]
// and is held back until a caller asks for a window wide enough to
// include it.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"

	"github.com/rotblauer/aistraj/conceptual"
	"github.com/rotblauer/aistraj/stream"
	"github.com/rotblauer/aistraj/types/observation"
)

// Slide is the window width, in seconds, used to pace batches of
// observations out of the source.
const Slide = 600

// decodeResult is one line's outcome: a parsed record, a skippable
// parse failure, or the blank-line end-of-file marker.
type decodeResult struct {
	obs   *observation.Observation
	blank bool
}

// Source decodes a space-delimited ASCII stream into Observations and
// hands them out in Slide-second windows.
type Source struct {
	ctx     context.Context
	cancel  context.CancelFunc
	decoded <-chan decodeResult

	singleObject bool
	assignedID   conceptual.ObjectID

	pending   *observation.Observation
	exhausted bool
	recCount  int
}

// Open reads r and prepares a Source. idAttr is the raw CLI column
// argument: a negative value selects single-object mode, where every
// record is assigned the same synthesized object id.
func Open(r io.Reader, idAttr int) *Source {
	ctx, cancel := context.WithCancel(context.Background())

	sc := bufio.NewScanner(r)
	rawLines := make(chan string)
	go func() {
		defer close(rawLines)
		for sc.Scan() {
			select {
			case <-ctx.Done():
				return
			case rawLines <- sc.Text():
			}
		}
	}()

	s := &Source{
		ctx:          ctx,
		cancel:       cancel,
		singleObject: idAttr < 0,
	}
	if s.singleObject {
		s.assignedID = conceptual.ObjectID(rand.New(rand.NewSource(1)).Int63n(1000000))
	}
	s.decoded = stream.Transform(ctx, s.decodeLine, rawLines)
	return s
}

// decodeLine is the per-line Transform stage: it never returns an
// error, since a channel pipeline has no slot for one — a failed parse
// comes back as a nil, non-blank decodeResult and is skipped by the
// consumer.
func (s *Source) decodeLine(line string) decodeResult {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return decodeResult{blank: true}
	}
	tup, err := s.decode(strings.Fields(trimmed))
	if err != nil {
		return decodeResult{}
	}
	return decodeResult{obs: tup}
}

// Close stops the background line reader.
func (s *Source) Close() { s.cancel() }

// RecordCount is the number of records decoded and delivered so far.
func (s *Source) RecordCount() int { return s.recCount }

// Exhausted reports whether the underlying stream has been fully read
// and drained of any pending lookahead record.
func (s *Source) Exhausted() bool { return s.exhausted && s.pending == nil }

// Consume returns every observation with timestamp <= t that hasn't
// already been returned, reading only as far ahead as needed to decide
// the window's boundary — the one-tuple lookahead.
func (s *Source) Consume(t int64) []*observation.Observation {
	var batch []*observation.Observation

	if s.pending != nil {
		if s.pending.T <= t {
			batch = append(batch, s.pending)
			s.recCount++
			s.pending = nil
		} else {
			return batch
		}
	}

	for {
		tup, ok := s.readNext()
		if !ok {
			s.exhausted = true
			break
		}
		if tup.T > t {
			s.pending = tup
			break
		}
		batch = append(batch, tup)
		s.recCount++
	}

	return batch
}

// readNext pulls decoded lines until it gets a record or the stream
// ends. A blank line is the end-of-file convention regardless of what
// remains unread beyond it; a non-blank line that fails to parse is
// skipped silently and reading continues.
func (s *Source) readNext() (*observation.Observation, bool) {
	for r := range s.decoded {
		if r.blank {
			return nil, false
		}
		if r.obs == nil {
			continue
		}
		return r.obs, true
	}
	return nil, false
}

// decode parses a row into an Observation. The row's field order is
// fixed by mode: "x y t" for single-object streams, "oid x y t"
// otherwise — the same order the reference scanner's tuple decoder
// assumes regardless of which columns the id/timestamp CLI arguments
// nominally point at.
func (s *Source) decode(fields []string) (*observation.Observation, error) {
	if s.singleObject {
		if len(fields) < 3 {
			return nil, fmt.Errorf("want 3 fields, got %d", len(fields))
		}
		x, y, t, err := parseXYT(fields[0], fields[1], fields[2])
		if err != nil {
			return nil, err
		}
		return observation.New(s.assignedID, x, y, t), nil
	}

	if len(fields) < 4 {
		return nil, fmt.Errorf("want 4 fields, got %d", len(fields))
	}
	oid, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil, err
	}
	x, y, t, err := parseXYT(fields[1], fields[2], fields[3])
	if err != nil {
		return nil, err
	}
	return observation.New(conceptual.ObjectID(oid), x, y, t), nil
}

func parseXYT(xs, ys, ts string) (x, y float64, t int64, err error) {
	x, err = strconv.ParseFloat(xs, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	y, err = strconv.ParseFloat(ys, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	t, err = strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	return x, y, t, nil
}

// ReadStartTimestamp extracts t0 from the first non-blank line of r,
// reading the 1-based column timestampAttr.
func ReadStartTimestamp(r io.Reader, timestampAttr int) (int64, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		trimmed := strings.TrimSpace(sc.Text())
		if trimmed == "" {
			continue
		}
		fields := strings.Fields(trimmed)
		col := timestampAttr - 1
		if col < 0 || col >= len(fields) {
			return 0, fmt.Errorf("timestamp column %d out of range for row %q", timestampAttr, trimmed)
		}
		return strconv.ParseInt(fields[col], 10, 64)
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("empty input stream")
}
