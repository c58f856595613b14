// Package timestamp converts between wall clock time and the second
// resolution unix timestamps recorded in blocks.
package timestamp

import "time"

// Now returns the current number of seconds since 1970-01-01T00:00:00Z.
func Now() int64 {
	return time.Now().UTC().Unix()
}

// FromTime converts the specified time, in any location, into seconds since
// the unix epoch. Sub-second precision is dropped. Times before the epoch
// produce negative values.
func FromTime(t time.Time) int64 {
	return t.UTC().Unix()
}

// ToTime converts seconds since the unix epoch back into a UTC time.
func ToTime(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}
