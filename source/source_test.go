package source

import (
	"strings"
	"testing"
)

func TestConsume_WindowsByTimestampWithLookahead(t *testing.T) {
	data := "1 0 0 100\n1 1 1 200\n1 2 2 700\n\n"
	s := Open(strings.NewReader(data), 0)
	defer s.Close()

	first := s.Consume(200)
	if len(first) != 2 {
		t.Fatalf("want 2 records at or before t=200, got %d", len(first))
	}
	if first[0].T != 100 || first[1].T != 200 {
		t.Errorf("want t=100,200 in order, got %v, %v", first[0].T, first[1].T)
	}

	second := s.Consume(600)
	if len(second) != 0 {
		t.Fatalf("want no records released before their timestamp, got %d", len(second))
	}

	third := s.Consume(700)
	if len(third) != 1 || third[0].T != 700 {
		t.Fatalf("want the held-back t=700 record, got %v", third)
	}
}

func TestConsume_BlankLineEndsStream(t *testing.T) {
	data := "1 0 0 100\n\n1 0 0 999\n"
	s := Open(strings.NewReader(data), 0)
	defer s.Close()

	batch := s.Consume(1000)
	if len(batch) != 1 {
		t.Fatalf("want the blank line to terminate the stream after 1 record, got %d", len(batch))
	}
	if !s.Exhausted() {
		t.Errorf("want Source exhausted after the blank line")
	}
}

func TestConsume_SkipsMalformedNonBlankLines(t *testing.T) {
	data := "1 0 0 100\nnot a valid row\n1 1 1 200\n\n"
	s := Open(strings.NewReader(data), 0)
	defer s.Close()

	batch := s.Consume(1000)
	if len(batch) != 2 {
		t.Fatalf("want the malformed row skipped, leaving 2 records, got %d", len(batch))
	}
}

func TestConsume_SingleObjectModeAssignsSharedID(t *testing.T) {
	data := "0 0 100\n1 1 200\n\n"
	s := Open(strings.NewReader(data), -1)
	defer s.Close()

	batch := s.Consume(1000)
	if len(batch) != 2 {
		t.Fatalf("want 2 records, got %d", len(batch))
	}
	if batch[0].OID != batch[1].OID {
		t.Errorf("want both records assigned the same synthesized object id, got %v and %v", batch[0].OID, batch[1].OID)
	}
}

func TestConsume_MultiObjectModeUsesLeadingIDColumn(t *testing.T) {
	data := "7 1 1 100\n9 2 2 200\n\n"
	s := Open(strings.NewReader(data), 1)
	defer s.Close()

	batch := s.Consume(1000)
	if len(batch) != 2 {
		t.Fatalf("want 2 records, got %d", len(batch))
	}
	if batch[0].OID != 7 || batch[1].OID != 9 {
		t.Errorf("want ids 7 and 9, got %v and %v", batch[0].OID, batch[1].OID)
	}
}

func TestRecordCount_TracksDeliveredRecords(t *testing.T) {
	data := "1 0 0 100\n1 0 0 200\n\n"
	s := Open(strings.NewReader(data), 0)
	defer s.Close()

	s.Consume(1000)
	if s.RecordCount() != 2 {
		t.Errorf("want 2 delivered records, got %d", s.RecordCount())
	}
}

func TestReadStartTimestamp_ReadsFirstNonBlankRow(t *testing.T) {
	data := "\n1 0 0 555\n1 0 0 600\n"
	got, err := ReadStartTimestamp(strings.NewReader(data), 4)
	if err != nil {
		t.Fatalf("ReadStartTimestamp: %v", err)
	}
	if got != 555 {
		t.Errorf("want t0=555, got %d", got)
	}
}

func TestReadStartTimestamp_EmptyStreamErrors(t *testing.T) {
	if _, err := ReadStartTimestamp(strings.NewReader(""), 4); err == nil {
		t.Fatalf("want an error for an empty stream")
	}
}
