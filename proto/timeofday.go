package proto

import (
	"fmt"
	"time"
)

// TimeOfDay is a clock time without a date, stored as seconds since
// midnight. Arithmetic wraps at the 24-hour boundary, mirroring how the
// upstream sleep data is reported.
type TimeOfDay int

// Midnight and EndOfDay bound the representable range.
const (
	Midnight TimeOfDay = 0
	EndOfDay TimeOfDay = 24*3600 - 1 // 23:59:59
)

// TimeOfDayFrom builds a TimeOfDay from clock components.
func TimeOfDayFrom(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	switch n, _ := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); n {
	case 2, 3:
	default:
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDayFrom(h, m, sec), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) / 60 % 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

// Add returns t shifted by d, wrapping modulo 24 hours.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	const day = 24 * 3600
	s := (int(t) + int(d/time.Second)) % day
	if s < 0 {
		s += day
	}
	return TimeOfDay(s)
}

// Sub returns the duration from u to t (t - u).
func (t TimeOfDay) Sub(u TimeOfDay) time.Duration {
	return time.Duration(int(t)-int(u)) * time.Second
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("time of day: expected string, got %s", data)
	}
	v, err := ParseTimeOfDay(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
