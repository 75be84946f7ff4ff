package core

import (
	"strings"
	"time"
)

// Supported storage engines.
const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
	EngineMongoDB  = "mongodb"
	EngineMemory   = "memory"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrderings drops orderings on fields that are not in allowed.
func CleanOrderings(ordering []DBOrdering, allowed ...string) []DBOrdering {
	if len(ordering) == 0 {
		return nil
	}
	cleaned := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		for _, fld := range allowed {
			if strings.EqualFold(ord.Field, fld) {
				cleaned = append(cleaned, DBOrdering{Field: fld, Ascending: ord.Ascending})
				break
			}
		}
	}
	return cleaned
}

// NowUTC is the clock used for persisted timestamps. Truncated to microseconds to survive a DB round trip.
var NowUTC = func() time.Time { // mockable
	return time.Now().UTC().Truncate(time.Microsecond)
}
