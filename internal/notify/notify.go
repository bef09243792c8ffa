// Package notify turns the expiring-product set into external alerts.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"save-the-fridge/internal/model"

	"github.com/rs/zerolog"
)

// AlertTitle is the title of every expiry alert.
const AlertTitle = "SaveTheFridge Alert"

// Permission is the tri-state alert permission.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ParsePermission parses a permission name. Empty means default.
func ParsePermission(s string) (Permission, error) {
	switch p := Permission(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PermissionDefault, nil
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return p, nil
	default:
		return "", fmt.Errorf("invalid notification permission %q", s)
	}
}

// Alert is one outbound expiry alert.
type Alert struct {
	Title         string               `json:"title"`
	Body          string               `json:"body"`
	Notifications []model.Notification `json:"notifications"`
}

// Alerter delivers alerts to the outside world.
type Alerter interface {
	Alert(ctx context.Context, alert Alert) error
}

// Bridge emits at most one alert per call, gated by permission.
type Bridge struct {
	permission Permission
	alerter    Alerter
	logger     zerolog.Logger
}

// NewBridge creates a bridge. The permission is fixed for the bridge's lifetime.
func NewBridge(permission Permission, alerter Alerter, logger zerolog.Logger) *Bridge {
	return &Bridge{
		permission: permission,
		alerter:    alerter,
		logger:     logger.With().Str("component", "notification-bridge").Logger(),
	}
}

// Permission returns the permission the bridge was created with.
func (b *Bridge) Permission() Permission {
	return b.permission
}

// alertTimeout bounds one delivery across all alerters.
const alertTimeout = 30 * time.Second

// Emit sends one alert summarising notifications when the list is non-empty and
// permission is granted. It reports whether an alert was attempted. Delivery
// errors are logged, never returned.
func (b *Bridge) Emit(ctx context.Context, notifications []model.Notification) bool {
	if len(notifications) == 0 || b.permission != PermissionGranted || b.alerter == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, alertTimeout)
	defer cancel()

	alert := Alert{
		Title:         AlertTitle,
		Body:          Summary(len(notifications)),
		Notifications: notifications,
	}

	if err := b.alerter.Alert(ctx, alert); err != nil {
		b.logger.Error().Err(err).Int("count", len(notifications)).Msg("failed to deliver expiry alert")
	}
	return true
}

// Summary renders the alert body for count expiring products.
func Summary(count int) string {
	if count == 1 {
		return "1 product expiring soon!"
	}
	return fmt.Sprintf("%d products expiring soon!", count)
}
