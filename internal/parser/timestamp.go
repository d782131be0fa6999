package parser

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the only date-time format records carry.
const TimestampLayout = "2006-01-02 15:04:05"

// NormalizeTimestamp converts an epoch-milliseconds string into TimestampLayout in loc.
// Anything that does not yield a date between years 1 and 9999 returns nil.
func NormalizeTimestamp(raw string, loc *time.Location) *string {
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	t := time.UnixMilli(ms).In(loc)
	if y := t.Year(); y < 1 || y > 9999 {
		return nil
	}

	s := t.Format(TimestampLayout)
	return &s
}
