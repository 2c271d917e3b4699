package availability

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Day is a day of the week, stored lowercase.
type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

var dayOrder = map[Day]int{
	Monday:    0,
	Tuesday:   1,
	Wednesday: 2,
	Thursday:  3,
	Friday:    4,
	Saturday:  5,
	Sunday:    6,
}

// Valid reports whether d names a day of the week.
func (d Day) Valid() bool {
	_, ok := dayOrder[d]
	return ok
}

// Order returns the day's position in the week, Monday first.
func (d Day) Order() int { return dayOrder[d] }

// TimeOfDay is a clock time with minute granularity, stored as minutes since
// midnight. 24:00 is not representable; a window cannot cross midnight.
type TimeOfDay int

const minutesPerDay = 24 * 60

// ParseTimeOfDay parses "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// Valid reports whether t falls within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON renders the time as an "HH:MM" string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts an "HH:MM" string.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Window is one contiguous half-open interval [Start, End) on a weekday in
// which a doctor accepts appointments.
type Window struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Day       Day       `json:"day"`
	Start     TimeOfDay `json:"start"`
	End       TimeOfDay `json:"end"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Overlaps reports whether two windows on the same day share any minute.
// Touching boundaries (one ends exactly where the other starts) do not
// overlap.
func (w Window) Overlaps(o Window) bool {
	return w.Day == o.Day && w.Start < o.End && o.Start < w.End
}
