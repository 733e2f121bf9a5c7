package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of a LocalDate
const DateLayout = "2006-01-02"

// LocalDate is a calendar date without time of day or zone. The zero value
// is an absent date: it is written as JSON null and SQL NULL.
type LocalDate struct {
	time.Time
}

// NewLocalDate truncates t to its calendar date
func NewLocalDate(t time.Time) LocalDate {
	y, m, d := t.Date()
	return LocalDate{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseLocalDate parses a YYYY-MM-DD string
func ParseLocalDate(s string) (LocalDate, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return LocalDate{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return LocalDate{Time: t}, nil
}

// String implements fmt.Stringer. An absent date is the empty string.
func (d LocalDate) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Equal compares calendar dates
func (d LocalDate) Equal(other LocalDate) bool {
	return d.String() == other.String()
}

// MarshalJSON implements json.Marshaler
func (d LocalDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *LocalDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = LocalDate{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseLocalDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer
func (d LocalDate) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan implements sql.Scanner
func (d *LocalDate) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		*d = NewLocalDate(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case nil:
		*d = LocalDate{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into LocalDate", value)
	}
}

func (d *LocalDate) scanString(s string) error {
	if len(s) >= len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseLocalDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// GormDataType tells gorm which column type to create
func (LocalDate) GormDataType() string {
	return "date"
}
