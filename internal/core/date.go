package core

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the format expected for birthdates in input files.
const DateLayout = "2006-01-02"

// Date wraps time.Time so birthdates marshal as plain YYYY-MM-DD strings.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// AgeIn returns the integer age at the end of the given calendar year.
func (d Date) AgeIn(year int) int {
	return year - d.Year()
}
