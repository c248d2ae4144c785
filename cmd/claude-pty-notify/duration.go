package main

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// parseDuration accepts Go durations and bare seconds ("1.5").
func parseDuration(s string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.ParseDuration(s)
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if math.Abs(secs) >= float64(math.MaxInt64)/float64(time.Second) {
		return 0, fmt.Errorf("duration %q out of range", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
