package common

import "time"

// NowMillis returns the current time in milliseconds since the Unix epoch.
// All record timestamps in storage use this resolution.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
