package utils

import "time"

// Now returns current time (swappable in tests)
var Now = time.Now

// MillisSince returns whole milliseconds elapsed since start
func MillisSince(start time.Time) int64 {
	return Now().Sub(start).Milliseconds()
}
