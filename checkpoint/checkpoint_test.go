package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/rotblauer/aistraj/types/observation"
)

func TestSaveAndLoadAll_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	p := observation.New(7, 1.5, 2.5, 100)
	p.SetGapEnd()

	const wantStatus uint8 = 1 // arbitrary non-zero status bitmask

	if err := store.Save(7, 100, wantStatus, []*observation.Observation{p}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	all, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	rec, ok := all[7]
	if !ok {
		t.Fatalf("want a checkpoint for object 7")
	}
	if rec.CurTime != 100 || rec.Status != wantStatus {
		t.Errorf("want CurTime=100 Status=%d, got %+v", wantStatus, rec)
	}
	if len(rec.Seq) != 1 || rec.Seq[0].T != 100 {
		t.Fatalf("want 1 restored observation at t=100, got %+v", rec.Seq)
	}
}

func TestSave_OverwritesPriorEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	p1 := observation.New(1, 0, 0, 100)
	if err := store.Save(1, 100, 0, []*observation.Observation{p1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p2 := observation.New(1, 0, 0, 200)
	if err := store.Save(1, 200, 0, []*observation.Observation{p2}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	all, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("want exactly 1 checkpointed object, got %d", len(all))
	}
	if all[1].CurTime != 200 {
		t.Errorf("want the later Save to win, got CurTime=%d", all[1].CurTime)
	}
}

func TestLoadAll_EmptyStoreReturnsEmptyMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	all, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("want an empty map, got %d entries", len(all))
	}
}
