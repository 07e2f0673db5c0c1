package conceptual

import "strconv"

// ObjectID identifies a moving object (vessel) across the lifetime of a run.
// Usually the MMSI, but any stable integer works.
type ObjectID int64

func (o ObjectID) String() string {
	return strconv.FormatInt(int64(o), 10)
}

func (o ObjectID) Empty() bool {
	return o == 0
}
