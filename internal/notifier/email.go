package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/clinicbook/clinicbook-api/internal/events"
)

// EmailSender delivers a composed message to one recipient.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes the message to the log instead of delivering it. Default
// in development and in environments without an SMTP relay.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.log.Info("email delivered to log",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// SMTPSender delivers through a plain SMTP relay.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPSender(addr, from, username, password string) *SMTPSender {
	s := &SMTPSender{addr: addr, from: from}
	if username != "" {
		host := addr
		if i := strings.LastIndex(addr, ":"); i >= 0 {
			host = addr[:i]
		}
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	return s
}

func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.from, to, subject, body)
	return smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg))
}

// composeEmail renders the subject and body for one appointment event. Times
// are rendered in the appointment's own zone.
func composeEmail(eventType string, p events.AppointmentPayload, patientName string) (subject, body string) {
	when := p.StartAt.Format("Mon, 02 Jan 2006 at 15:04")

	switch eventType {
	case events.TypeAppointmentCreated:
		if p.AutoAdjusted {
			subject = "Your appointment was booked at an adjusted time"
			body = fmt.Sprintf(
				"Hello %s,\n\nYour requested time was taken, so we booked the next opening: %s (%s).\n\nIf this does not work for you, you can reschedule at any time.",
				patientName, when, p.Specialty,
			)
			return subject, body
		}
		subject = "Your appointment is confirmed"
		body = fmt.Sprintf(
			"Hello %s,\n\nYour %s appointment is confirmed for %s.",
			patientName, p.Specialty, when,
		)
	case events.TypeAppointmentRescheduled:
		subject = "Your appointment was rescheduled"
		body = fmt.Sprintf(
			"Hello %s,\n\nYour %s appointment has been moved to %s.",
			patientName, p.Specialty, when,
		)
	case events.TypeAppointmentCancelled:
		subject = "Your appointment was cancelled"
		body = fmt.Sprintf(
			"Hello %s,\n\nYour %s appointment scheduled for %s has been cancelled.",
			patientName, p.Specialty, when,
		)
	default:
		subject = "Update on your appointment"
		body = fmt.Sprintf("Hello %s,\n\nThere is an update on your %s appointment for %s.", patientName, p.Specialty, when)
	}
	return subject, body
}
