// Package expiry classifies products by how close they are to their expiry date.
//
// Everything here is pure: callers pass the current time in.
package expiry

import (
	"fmt"
	"math"
	"strings"
	"time"

	"save-the-fridge/internal/model"
)

// DefaultUrgentDays is the upper bound of the urgent band.
const DefaultUrgentDays = 3

const day = 24 * time.Hour

// Urgency is the tri-state expiry classification.
type Urgency string

const (
	Expired Urgency = "expired"
	Urgent  Urgency = "urgent"
	OK      Urgency = "ok"
)

// Status is the result of classifying one expiry date.
type Status struct {
	DaysLeft int     `json:"daysLeft"`
	Urgency  Urgency `json:"urgency"`
}

// Policy holds the band thresholds.
type Policy struct {
	// UrgentDays is the largest daysLeft still classified as urgent.
	UrgentDays int
}

// NewPolicy returns a policy, clamping a negative threshold to zero.
func NewPolicy(urgentDays int) Policy {
	if urgentDays < 0 {
		urgentDays = 0
	}
	return Policy{UrgentDays: urgentDays}
}

// DefaultPolicy returns the policy with DefaultUrgentDays.
func DefaultPolicy() Policy {
	return NewPolicy(DefaultUrgentDays)
}

// ParseDate parses an ISO calendar date as midnight UTC.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry date %q: %w", date, err)
	}
	return t, nil
}

// DaysUntil returns ceil((expiry - now) / 1 day).
func DaysUntil(expiry, now time.Time) int {
	days := math.Ceil(float64(expiry.Sub(now)) / float64(day))
	return int(days)
}

// Classify parses expiryDate and classifies it against now.
func (p Policy) Classify(expiryDate string, now time.Time) (Status, error) {
	expiry, err := ParseDate(expiryDate)
	if err != nil {
		return Status{}, err
	}
	return p.ClassifyTime(expiry, now), nil
}

// ClassifyTime classifies an already parsed expiry instant.
func (p Policy) ClassifyTime(expiry, now time.Time) Status {
	daysLeft := DaysUntil(expiry, now)
	return Status{DaysLeft: daysLeft, Urgency: p.Band(daysLeft)}
}

// Band maps a daysLeft value to exactly one urgency.
func (p Policy) Band(daysLeft int) Urgency {
	switch {
	case daysLeft < 0:
		return Expired
	case daysLeft <= p.UrgentDays:
		return Urgent
	default:
		return OK
	}
}

// Label renders a status for display.
func Label(s Status) string {
	switch {
	case s.DaysLeft < -1:
		return fmt.Sprintf("Expired %d days ago", -s.DaysLeft)
	case s.DaysLeft == -1:
		return "Expired yesterday"
	case s.DaysLeft == 0:
		return "Expires today"
	case s.DaysLeft == 1:
		return "Expires tomorrow"
	default:
		return fmt.Sprintf("%d days left", s.DaysLeft)
	}
}

// Notifications returns a notification for every product with
// 0 <= daysLeft <= reminderDays, in input order. Products with an unparsable
// expiry date are skipped.
func Notifications(products []model.Product, now time.Time) []model.Notification {
	notifications := []model.Notification{}
	for _, p := range products {
		expiry, err := ParseDate(p.ExpiryDate)
		if err != nil {
			continue
		}
		daysLeft := DaysUntil(expiry, now)
		if daysLeft >= 0 && daysLeft <= p.ReminderDays {
			notifications = append(notifications, model.Notification{
				ProductID: p.ID,
				Name:      p.Name,
				DaysLeft:  daysLeft,
			})
		}
	}
	return notifications
}
