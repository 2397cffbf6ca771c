package schedule

import (
	"errors"
	"strings"
)

// ErrBadMeridiem is returned for an AM/PM value other than "AM" or "PM".
var ErrBadMeridiem = errors.New("schedule: meridiem must be AM or PM")

// To12Hour converts a 24-hour hour to its 12-hour form and meridiem.
func To12Hour(hour24 int) (hour12 int, meridiem string) {
	switch {
	case hour24 == 0:
		return 12, "AM"
	case hour24 < 12:
		return hour24, "AM"
	case hour24 == 12:
		return 12, "PM"
	default:
		return hour24 - 12, "PM"
	}
}

// From12Hour converts a 12-hour clock entry to a 24-hour Schedule.
// hour12 must be 1-12 and minute 0-59.
func From12Hour(hour12, minute int, meridiem string) (Schedule, error) {
	if hour12 < 1 || hour12 > 12 {
		return Schedule{}, &ValidationError{Field: "hour", Value: hour12}
	}
	if minute < 0 || minute > 59 {
		return Schedule{}, &ValidationError{Field: "minute", Value: minute}
	}

	var hour24 int
	switch strings.ToUpper(meridiem) {
	case "AM":
		hour24 = hour12 % 12
	case "PM":
		hour24 = hour12%12 + 12
	default:
		return Schedule{}, ErrBadMeridiem
	}
	return Schedule{Hour: hour24, Minute: minute}, nil
}
