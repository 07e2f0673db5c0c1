package observation

import "testing"

func TestNew_ZeroedKinematics(t *testing.T) {
	o := New(7, 1.5, 2.5, 100)
	if o.OID != 7 || o.X() != 1.5 || o.Y() != 2.5 || o.T != 100 {
		t.Fatalf("unexpected fields: %+v", o)
	}
	if o.Speed != 0 || o.Heading != 0 || o.Distance != 0 || o.TimeElapsed != 0 {
		t.Errorf("want zeroed derived kinematics, got %+v", o)
	}
}

func TestAnnotation_SetHasClear(t *testing.T) {
	o := New(1, 0, 0, 0)

	if o.IsStopStart() {
		t.Fatalf("want unset initially")
	}
	o.SetStopStart()
	if !o.IsStopStart() {
		t.Errorf("want set after SetStopStart")
	}
	o.ResetStopStart()
	if o.IsStopStart() {
		t.Errorf("want cleared after ResetStopStart")
	}
}

func TestAnnotation_IsAnnotatedExcludesNoiseAndReported(t *testing.T) {
	o := New(1, 0, 0, 0)
	o.SetNoise()
	if o.IsAnnotated() {
		t.Errorf("NOISE alone must not count as annotated (I3)")
	}

	o2 := New(1, 0, 0, 0)
	o2.SetReported()
	if o2.IsAnnotated() {
		t.Errorf("REPORTED alone must not count as annotated")
	}

	o3 := New(1, 0, 0, 0)
	o3.SetGapEnd()
	if !o3.IsAnnotated() {
		t.Errorf("GAP_END is a classification bit and must count as annotated")
	}
}

func TestAnnotation_DecodeOrderAndJoin(t *testing.T) {
	o := New(1, 0, 0, 0)
	o.SetStopEnd()
	o.SetGapStart()
	o.SetNoise()

	got := o.DecodeAnnotation()
	want := []string{"STOP_END", "GAP_START", "NOISE"}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: want %q, got %q (order must follow bit index)", i, want[i], got[i])
		}
	}

	if joined := o.Annotation.Join(";"); joined != "STOP_END;GAP_START;NOISE" {
		t.Errorf("want semicolon-joined labels, got %q", joined)
	}
}

func TestAnnotation_ReportedIsIndependentOfClassification(t *testing.T) {
	o := New(1, 0, 0, 0)
	if o.IsReported() {
		t.Fatalf("want unset initially")
	}
	o.SetReported()
	if !o.IsReported() {
		t.Errorf("want set after SetReported")
	}
	if len(o.DecodeAnnotation()) != 0 {
		t.Errorf("REPORTED bit must not appear in Decode()'s classification list")
	}
}
