package app

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidClock is returned for time arguments that are not four-digit 24h clocks.
var ErrInvalidClock = errors.New("invalid time format, use four-digit 24-hour HHMM such as 0600 or 2359")

const (
	DefaultWindowStart = "0000"
	DefaultWindowEnd   = "2359"
)

// TimeWindow is a closed interval of instants built from two local clock strings.
type TimeWindow struct {
	Start    time.Time
	End      time.Time
	StartRaw string
	EndRaw   string
}

// FixedZone returns a location with a constant UTC offset, named like "UTC+6".
func FixedZone(offsetHours int) *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*60*60)
}

// ParseClock validates a four-digit HHMM string and returns its hour and minute.
func ParseClock(raw string) (hour, minute int, err error) {
	if len(raw) != 4 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
		}
	}
	hour = int(raw[0]-'0')*10 + int(raw[1]-'0')
	minute = int(raw[2]-'0')*10 + int(raw[3]-'0')
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	return hour, minute, nil
}

// ClockOn interprets raw as a wall-clock time on day's calendar date in loc.
func ClockOn(day time.Time, loc *time.Location, raw string) (time.Time, error) {
	hour, minute, err := ParseClock(raw)
	if err != nil {
		return time.Time{}, err
	}
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc), nil
}

// NewTimeWindow builds the window [start, end] on day's date in loc.
func NewTimeWindow(day time.Time, loc *time.Location, startRaw, endRaw string) (TimeWindow, error) {
	start, err := ClockOn(day, loc, startRaw)
	if err != nil {
		return TimeWindow{}, err
	}
	end, err := ClockOn(day, loc, endRaw)
	if err != nil {
		return TimeWindow{}, err
	}
	return TimeWindow{Start: start, End: end, StartRaw: startRaw, EndRaw: endRaw}, nil
}

// Contains is inclusive on both bounds.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// FormatClock12h renders "1330" as "01:30 PM".
func FormatClock12h(raw string) (string, error) {
	hour, minute, err := ParseClock(raw)
	if err != nil {
		return "", err
	}
	return time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC).Format("03:04 PM"), nil
}
