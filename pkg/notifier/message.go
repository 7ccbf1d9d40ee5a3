package notifier

import (
	"context"
	"fmt"
	"strings"
)

// Kind names the template a message was rendered from
type Kind string

const (
	KindVolunteerLogReminder       Kind = "volunteer_log_reminder"
	KindVolunteerLogSMSReminder    Kind = "volunteer_log_sms_reminder"
	KindVolunteerLogPreReminder    Kind = "volunteer_log_pre_reminder"
	KindVolunteerLogSMSPreReminder Kind = "volunteer_log_sms_pre_reminder"
	KindAdminShortTermCoverSummary Kind = "admin_short_term_cover_summary"
	KindAdminReminderSummary       Kind = "admin_reminder_summary"
	KindAdminWeeklySummary         Kind = "admin_weekly_summary"
)

// Mailer delivers a plain text email
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// Message is a rendered notification ready to deliver or print
type Message struct {
	Kind    Kind
	To      []string
	Subject string
	Body    string

	mailer Mailer
}

// Deliver sends the message through the mailer it was rendered for
func (m *Message) Deliver(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.mailer == nil {
		return fmt.Errorf("no mailer configured for %s message", m.Kind)
	}
	if len(m.To) == 0 {
		return fmt.Errorf("%s message has no recipients", m.Kind)
	}
	if err := m.mailer.SendEmail(strings.Join(m.To, ", "), m.Subject, m.Body); err != nil {
		return fmt.Errorf("failed to deliver %s to %s: %w", m.Kind, strings.Join(m.To, ", "), err)
	}
	return nil
}

// String renders the message the way it would appear on the wire
func (m *Message) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\n", strings.Join(m.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
	fmt.Fprintf(&b, "X-Food-Robot-Kind: %s\n\n", m.Kind)
	b.WriteString(m.Body)
	if !strings.HasSuffix(m.Body, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
