package credit

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// RemindAtLayout is the HH:MM layout of ReminderPreferences.RemindAt
	RemindAtLayout = "15:04"
	// MaxReminderDaysBefore bounds how early a reminder window may open
	MaxReminderDaysBefore = 60
)

// ReminderPreferences controls when a sale surfaces as due on the dashboard.
// The ledger only carries it; the reminder reader interprets it.
type ReminderPreferences struct {
	Enabled    bool    `json:"enabled"`
	DaysBefore int     `json:"days_before"`
	RemindAt   *string `json:"remind_at,omitempty"`
}

// Validate checks DaysBefore and the HH:MM format of RemindAt
func (r ReminderPreferences) Validate() error {
	if r.DaysBefore < 0 {
		return NewValidationError(CodeInvalidReminder, "Reminder days before cannot be negative")
	}
	if r.DaysBefore > MaxReminderDaysBefore {
		return NewValidationError(CodeInvalidReminder, fmt.Sprintf("Reminder days before cannot exceed %d", MaxReminderDaysBefore))
	}
	if r.RemindAt != nil {
		if _, err := time.Parse(RemindAtLayout, *r.RemindAt); err != nil {
			return NewValidationError(CodeInvalidReminder, "Reminder time must use HH:MM format")
		}
	}
	return nil
}

// WindowStart returns the moment from which a sale charged on chargeDate is due,
// in the location of chargeDate
func (r ReminderPreferences) WindowStart(chargeDate time.Time) time.Time {
	y, m, d := chargeDate.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, chargeDate.Location()).AddDate(0, 0, -r.DaysBefore)
	if r.RemindAt != nil {
		if at, err := time.Parse(RemindAtLayout, *r.RemindAt); err == nil {
			start = start.Add(time.Duration(at.Hour())*time.Hour + time.Duration(at.Minute())*time.Minute)
		}
	}
	return start
}

// Value implements driver.Valuer
func (r ReminderPreferences) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (r *ReminderPreferences) Scan(value interface{}) error {
	if value == nil {
		*r = ReminderPreferences{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	}
	return errors.New("failed to scan ReminderPreferences: unsupported type")
}
