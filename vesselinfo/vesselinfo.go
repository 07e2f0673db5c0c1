// Package vesselinfo resolves an object id to its vessel type from an
// accompanying semicolon-delimited CSV file.
package vesselinfo

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rotblauer/aistraj/conceptual"
	"github.com/rotblauer/aistraj/params"
)

// lookupTTL bounds how long a resolved id->type mapping is cached before
// being re-derived from the underlying table; since the table is loaded
// once per run and never mutated, this is generous headroom rather than
// a correctness requirement.
const lookupTTL = 30 * time.Minute

// Table maps object id to vessel type, with a TTL cache in front of the
// underlying map to match the id->last-known lookup pattern used
// elsewhere in this codebase.
type Table struct {
	byID  map[conceptual.ObjectID]string
	cache *ttlcache.Cache[conceptual.ObjectID, string]
}

// Load reads a semicolon-delimited CSV file with a header row; column 0
// is the object id, column 2 is the vessel type. Rows with an
// unparseable id are skipped.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vessel info: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1

	byID := make(map[conceptual.ObjectID]string)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse vessel info: %w", err)
	}
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) < 3 {
			continue
		}
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		byID[conceptual.ObjectID(id)] = row[2]
	}

	cache := ttlcache.New[conceptual.ObjectID, string](
		ttlcache.WithTTL[conceptual.ObjectID, string](lookupTTL),
	)

	return &Table{byID: byID, cache: cache}, nil
}

// TypeOf returns the vessel type for oid, or params.DefaultVesselType if
// unknown.
func (t *Table) TypeOf(oid conceptual.ObjectID) string {
	if item := t.cache.Get(oid); item != nil {
		return item.Value()
	}

	vesselType, ok := t.byID[oid]
	if !ok {
		vesselType = params.DefaultVesselType
	}
	t.cache.Set(oid, vesselType, ttlcache.DefaultTTL)
	return vesselType
}
