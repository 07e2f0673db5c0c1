// Package checkpoint optionally persists each object's retained
// observation window across runs in a bbolt database, so a long-running
// deployment can restart without losing in-flight mobility state.
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"github.com/rotblauer/aistraj/conceptual"
	"github.com/rotblauer/aistraj/types/observation"
)

var stateBucket = []byte("state")

// Store is a bbolt-backed key-value store keyed by object id, holding
// the JSON-encoded observation window retained for that object at the
// time of the last Save.
type Store struct {
	db *bbolt.DB
}

// record is the on-disk shape for one object's checkpointed window.
type record struct {
	CurTime int64                        `json:"cur_time"`
	Status  uint8                        `json:"status"`
	Seq     []*observation.Observation   `json:"seq"`
}

// Open creates or opens the checkpoint database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init checkpoint bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error { return s.db.Close() }

// Save writes oid's window to the store, overwriting any prior entry.
func (s *Store) Save(oid conceptual.ObjectID, curTime int64, status uint8, seq []*observation.Observation) error {
	rec := record{CurTime: curTime, Status: status, Seq: seq}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("encode checkpoint for %s: %w", oid, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(stateBucket).Put(encodeKey(oid), buf.Bytes())
	})
}

// LoadAll returns every checkpointed window in the store, keyed by
// object id.
func (s *Store) LoadAll() (map[conceptual.ObjectID]record, error) {
	out := make(map[conceptual.ObjectID]record)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(stateBucket)
		return b.ForEach(func(k, v []byte) error {
			oid := decodeKey(k)
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode checkpoint for %s: %w", oid, err)
			}
			out[oid] = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func encodeKey(oid conceptual.ObjectID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(oid))
	return buf
}

func decodeKey(b []byte) conceptual.ObjectID {
	return conceptual.ObjectID(binary.BigEndian.Uint64(b))
}
