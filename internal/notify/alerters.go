package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"save-the-fridge/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// LogAlerter writes alerts to the log.
type LogAlerter struct {
	logger zerolog.Logger
}

// NewLogAlerter creates an alerter that logs at warn level.
func NewLogAlerter(logger zerolog.Logger) *LogAlerter {
	return &LogAlerter{logger: logger.With().Str("component", "log-alerter").Logger()}
}

// Alert logs the alert.
func (a *LogAlerter) Alert(ctx context.Context, alert Alert) error {
	a.logger.Warn().
		Str("title", alert.Title).
		Int("count", len(alert.Notifications)).
		Msg(alert.Body)
	return nil
}

// RedisAlerter publishes alerts as JSON on a Redis channel.
type RedisAlerter struct {
	rdb     redis.Cmdable
	channel string
}

// NewRedisAlerter creates an alerter publishing on channel.
func NewRedisAlerter(rdb redis.Cmdable, channel string) *RedisAlerter {
	return &RedisAlerter{rdb: rdb, channel: channel}
}

// Alert publishes the alert.
func (a *RedisAlerter) Alert(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}
	if err := a.rdb.Publish(ctx, a.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish alert on %s: %w", a.channel, err)
	}
	return nil
}

// smtpTimeout bounds one mail delivery when ctx carries no earlier deadline.
const smtpTimeout = 30 * time.Second

// sendMailFunc is smtp.SendMail with a context.
type sendMailFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPAlerter mails alerts.
type SMTPAlerter struct {
	cfg      config.SMTPConfig
	sendMail sendMailFunc
}

// NewSMTPAlerter creates a mail alerter.
func NewSMTPAlerter(cfg config.SMTPConfig) *SMTPAlerter {
	return &SMTPAlerter{cfg: cfg, sendMail: sendMail}
}

// Alert sends one plain-text mail listing the expiring products.
func (a *SMTPAlerter) Alert(ctx context.Context, alert Alert) error {
	var body strings.Builder
	body.WriteString(alert.Body)
	body.WriteString("\r\n\r\n")
	for _, n := range alert.Notifications {
		fmt.Fprintf(&body, "- %s: %d day(s) left\r\n", n.Name, n.DaysLeft)
	}

	msg := strings.Join([]string{
		"From: " + a.cfg.From,
		"To: " + a.cfg.To,
		"Subject: " + alert.Title,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body.String(),
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", a.cfg.Server, a.cfg.Port)
	var auth smtp.Auth
	if !a.cfg.AuthDisabled {
		auth = smtp.PlainAuth("", a.cfg.User, a.cfg.Password, a.cfg.Server)
	}

	if err := a.sendMail(ctx, addr, auth, a.cfg.From, []string{a.cfg.To}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send alert mail: %w", err)
	}
	return nil
}

// sendMail follows smtp.SendMail but dials with ctx and gives up when ctx is
// done or smtpTimeout passes.
func sendMail(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, smtpTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// MultiAlerter fans an alert out to several alerters.
type MultiAlerter []Alerter

// Alert delivers to every alerter and joins their errors.
func (m MultiAlerter) Alert(ctx context.Context, alert Alert) error {
	var errs []error
	for _, a := range m {
		if err := a.Alert(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
