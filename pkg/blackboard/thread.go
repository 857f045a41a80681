package blackboard

import "time"

// Run index utilities
//
// Runs are indexed in ZSETs whose members are run IDs and whose score is the
// run's start time in Unix milliseconds. Range queries over the score give
// time-window listings without scanning every key.

// IndexScore converts a start time to a ZSET score.
func IndexScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}
