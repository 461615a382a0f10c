package prescriptions

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ClockTime is a time of day with minute precision.
// It marshals as "HH:MM AM".
type ClockTime struct {
	Hour   int
	Minute int
}

// String renders 24-hour "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Display renders "HH:MM AM".
func (c ClockTime) Display() string {
	return time.Date(2000, 1, 1, c.Hour, c.Minute, 0, 0, time.UTC).Format("03:04 PM")
}

// Minutes is minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}
}

func (c ClockTime) valid() bool {
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.Display()), nil
}

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

var ErrInvalidClockTime = errors.New("prescriptions: invalid time of day")

var clockLayouts = []string{
	"3:04 PM",
	"03:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
	"15:04",
	"15:04:05",
}

// ParseClockTime accepts 12-hour ("9:30 pm", "9am") and 24-hour ("21:30")
// forms.
func ParseClockTime(raw string) (ClockTime, error) {
	s := strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	s = strings.ReplaceAll(s, ".", "")
	if s == "" {
		return ClockTime{}, ErrInvalidClockTime
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTimeOf(t), nil
		}
	}
	return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClockTime, raw)
}

// ParseClockTimes parses a comma-separated list. Any bad entry fails the
// whole list.
func ParseClockTimes(raw string) ([]ClockTime, error) {
	parts := strings.Split(raw, ",")
	out := make([]ClockTime, 0, len(parts))
	for _, part := range parts {
		ct, err := ParseClockTime(part)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, nil
}

// JoinClockTimes renders times as "HH:MM, HH:MM".
func JoinClockTimes(times []ClockTime, display bool) string {
	parts := make([]string, 0, len(times))
	for _, t := range times {
		if display {
			parts = append(parts, t.Display())
		} else {
			parts = append(parts, t.String())
		}
	}
	return strings.Join(parts, ", ")
}
