package sink

import (
	"strings"
	"testing"

	"github.com/rotblauer/aistraj/types/observation"
)

func TestReportPoint_Idempotent(t *testing.T) {
	s := New(false)
	p := observation.New(1, 0, 0, 100)
	p.SetGapEnd()

	s.ReportPoint(p)
	s.ReportPoint(p)

	var buf strings.Builder
	if err := s.EmitResults(&buf, false); err != nil {
		t.Fatalf("EmitResults: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	if len(lines) != 2 { // header + exactly one data row
		t.Fatalf("I1/R2: want header + 1 row, got %d lines: %q", len(lines), lines)
	}
}

func TestEmitResults_OrdersByTimestampThenInsertion(t *testing.T) {
	s := New(false)
	p1 := observation.New(1, 0, 0, 300)
	p2 := observation.New(1, 0, 0, 100)
	p3 := observation.New(1, 0, 0, 200)
	p1.SetGapEnd()
	p2.SetGapEnd()
	p3.SetGapEnd()

	s.ReportPoint(p1)
	s.ReportPoint(p2)
	s.ReportPoint(p3)

	var buf strings.Builder
	if err := s.EmitResults(&buf, false); err != nil {
		t.Fatalf("EmitResults: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	if len(lines) != 4 {
		t.Fatalf("want header + 3 rows, got %v", lines)
	}
	// Rows after the header must be t=100,200,300 in that order.
	wantT := []string{"100", "200", "300"}
	for i, want := range wantT {
		fields := strings.Split(lines[i+1], " ")
		if fields[2] != want {
			t.Errorf("row %d: want t=%s, got %s (row=%q)", i, want, fields[2], lines[i+1])
		}
	}
}

func TestEmitResults_AnnotatedOnlyKeepsNoise(t *testing.T) {
	s := New(false)
	plain := observation.New(1, 0, 0, 100)
	annotated := observation.New(1, 0, 0, 200)
	annotated.SetGapEnd()
	noisy := observation.New(1, 0, 0, 300)
	noisy.SetNoise()

	s.ReportPoint(plain)
	s.ReportPoint(annotated)
	s.ReportPoint(noisy)

	var buf strings.Builder
	if err := s.EmitResults(&buf, true); err != nil {
		t.Fatalf("EmitResults: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	// header + annotated (t=200) + noisy (t=300); plain (t=100) dropped.
	if len(lines) != 3 {
		t.Fatalf("want header + 2 rows, got %v", lines)
	}
	if !strings.Contains(lines[1], "200") || !strings.Contains(lines[2], "300") {
		t.Errorf("want the annotated and noisy rows retained, got %v", lines[1:])
	}
}

func TestEmitResults_IncludesIDColumnWhenConfigured(t *testing.T) {
	s := New(true)
	p := observation.New(42, 1.5, 2.5, 100)
	p.SetGapEnd()
	s.ReportPoint(p)

	var buf strings.Builder
	if err := s.EmitResults(&buf, false); err != nil {
		t.Fatalf("EmitResults: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	if !strings.HasPrefix(lines[0], "id ") {
		t.Errorf("want id column in header, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "42 ") {
		t.Errorf("want id value leading the row, got %q", lines[1])
	}
}

func TestFixed_FivePlaces(t *testing.T) {
	if got := fixed(1.0 / 3.0); got != "0.33333" {
		t.Errorf("want 0.33333, got %q", got)
	}
}
