// Package clock derives the controller's local wall clock from the raw UTC
// hardware time source.
//
// The timezone rule is a fixed approximation of US Central Time: CDT (-5h)
// from March 10 through November 2, CST (-6h) otherwise. Hour correction
// moves the day by at most one and never touches month or year, so a
// correction across a month boundary yields day 0 or day 32. Both behaviours
// are kept as-is to match the deployed devices.
package clock

import "fmt"

// Offsets in hours from UTC.
const (
	OffsetCDT = -5
	OffsetCST = -6
)

// RawTime is one snapshot of the hardware clock, in UTC.
type RawTime struct {
	Year      int
	Month     int // 1-12
	Day       int // 1-31
	Weekday   int // 0 = Sunday
	Hour      int
	Minute    int
	Second    int
	Subsecond int // nanoseconds
}

// LocalTime is a RawTime after timezone/DST correction.
// Only Day and Hour are corrected; Year and Month are copied unchanged.
type LocalTime struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
	Offset int // hours applied to the raw hour
}

// String formats the local time for logs and status output.
func (l LocalTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d (UTC%+d)",
		l.Year, l.Month, l.Day, l.Hour, l.Minute, l.Second, l.Offset)
}

// Source reads the raw hardware clock. Implementations must be safe to call
// from multiple goroutines.
type Source interface {
	ReadRawUTC() RawTime
}

// IsDST reports whether the approximated daylight saving window applies.
func IsDST(month, day int) bool {
	return (month > 3 && month < 11) ||
		(month == 3 && day >= 10) ||
		(month == 11 && day < 3)
}

// OffsetFor returns the hour offset for the given calendar date.
func OffsetFor(month, day int) int {
	if IsDST(month, day) {
		return OffsetCDT
	}
	return OffsetCST
}

// Central converts a raw UTC snapshot to local time.
func Central(raw RawTime) LocalTime {
	offset := OffsetFor(raw.Month, raw.Day)

	day := raw.Day
	hour := raw.Hour + offset
	if hour < 0 {
		hour += 24
		day--
	} else if hour >= 24 {
		hour -= 24
		day++
	}

	return LocalTime{
		Year:   raw.Year,
		Month:  raw.Month,
		Day:    day,
		Hour:   hour,
		Minute: raw.Minute,
		Second: raw.Second,
		Offset: offset,
	}
}

// WallClock produces local time from a raw source. It holds no state, so
// every call re-reads the source.
type WallClock struct {
	src Source
}

// NewWallClock creates a WallClock reading from src.
func NewWallClock(src Source) *WallClock {
	return &WallClock{src: src}
}

// LocalNow reads the source and returns the corrected local time.
func (w *WallClock) LocalNow() LocalTime {
	return Central(w.src.ReadRawUTC())
}
