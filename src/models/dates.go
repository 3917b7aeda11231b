package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	TickTimeLayout = "2006-01-02 15:04:05.000"
)

// -----------------------------------------------------------------------------
// MDate
// -----------------------------------------------------------------------------

// MDate is an exchange calendar date with no time-of-day.
type MDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) MDate {
	y, m, d := t.Date()
	return MDate{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (MDate, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return MDate{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d MDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d MDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// In returns midnight of d in loc.
func (d MDate) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d MDate) AddDays(n int) MDate {
	return DateOf(d.In(time.UTC).AddDate(0, 0, n))
}

func (d MDate) Before(o MDate) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d MDate) After(o MDate) bool {
	return o.Before(d)
}

func (d MDate) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *MDate) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as YYYY-MM-DD, which both sqlite TEXT and postgres DATE accept.
func (d MDate) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *MDate) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MDate", src)
	}
}

func (d *MDate) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// -----------------------------------------------------------------------------
// MTickTime
// -----------------------------------------------------------------------------

// MTickTime is an exchange-local wall-clock timestamp. The location is not
// carried: values are normalized to UTC with the same wall clock, so only
// differences and wall-clock formatting are meaningful.
type MTickTime struct {
	time.Time
}

var tickTimeLayouts = []string{
	TickTimeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// NewTickTime keeps the wall clock of t and drops its location.
func NewTickTime(t time.Time) *MTickTime {
	return &MTickTime{Time: time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)}
}

func ParseTickTime(s string) (*MTickTime, error) {
	for _, layout := range tickTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTickTime(t), nil
		}
	}
	return nil, fmt.Errorf("invalid tick time %q", s)
}

// Sub returns the duration t-u.
func (t MTickTime) Sub(u MTickTime) time.Duration {
	return t.Time.Sub(u.Time)
}

func (t MTickTime) String() string {
	return t.Format(TickTimeLayout)
}

func (t MTickTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

func (t *MTickTime) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("tick time must be a string: %w", err)
	}
	parsed, err := ParseTickTime(s)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

func (t MTickTime) Value() (driver.Value, error) {
	return t.String(), nil
}

func (t *MTickTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*t = *NewTickTime(v)
		return nil
	case string:
		return t.scanString(v)
	case []byte:
		return t.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MTickTime", src)
	}
}

func (t *MTickTime) scanString(s string) error {
	parsed, err := ParseTickTime(s)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// -----------------------------------------------------------------------------
// MCalendarDay
// -----------------------------------------------------------------------------

// MCalendarDay is one row of the exchange trading calendar.
type MCalendarDay struct {
	TradeDate    MDate `json:"tradeDate"`
	IsTradingDay bool  `json:"isTradingDay"`
}
