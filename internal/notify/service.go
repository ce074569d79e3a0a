package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

// ErrNoRecipient is returned when a message has no destination address.
var ErrNoRecipient = errors.New("notify: recipient email is required")

// NoticeType classifies messages sent to providers.
type NoticeType string

const (
	NoticeReport   NoticeType = "report"
	NoticeAlert    NoticeType = "alert"
	NoticeReminder NoticeType = "reminder"
)

// NoticeTypes lists the accepted notice types.
func NoticeTypes() []string {
	return []string{string(NoticeReport), string(NoticeAlert), string(NoticeReminder)}
}

// Confirmation describes a booked appointment for the patient email.
type Confirmation struct {
	PatientName  string
	PatientEmail string
	ProviderName string
	Date         string // long form, e.g. "March 03, 2026"
	Time         string // e.g. "09:30 AM"
	Location     string
}

// ProviderNotice is a message addressed to a provider.
type ProviderNotice struct {
	ProviderName  string
	ProviderEmail string
	Type          NoticeType
	Title         string
	Message       string
}

// Service formats clinic messages and hands them to an EmailSender.
type Service struct {
	email  EmailSender
	logger *logging.Logger
}

// NewService falls back to a LogSender when email is nil.
func NewService(email EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewLogSender(logger)
	}
	return &Service{email: email, logger: logger}
}

// SendBookingConfirmation emails the patient their appointment details.
func (s *Service) SendBookingConfirmation(ctx context.Context, c Confirmation) error {
	if strings.TrimSpace(c.PatientEmail) == "" {
		return ErrNoRecipient
	}
	msg := EmailMessage{
		To:      c.PatientEmail,
		ToName:  c.PatientName,
		Subject: "Appointment Confirmation",
		Body:    confirmationText(c),
		HTML:    confirmationHTML(c),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: booking confirmation: %w", err)
	}
	return nil
}

// SendPatientMessage sends a free-form message to a patient.
func (s *Service) SendPatientMessage(ctx context.Context, to, name, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	msg := EmailMessage{To: to, ToName: name, Subject: subject, Body: body, HTML: paragraphs(body)}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: patient message: %w", err)
	}
	return nil
}

// NotifyProvider emails a report, alert or reminder to a provider.
func (s *Service) NotifyProvider(ctx context.Context, n ProviderNotice) error {
	if strings.TrimSpace(n.ProviderEmail) == "" {
		return ErrNoRecipient
	}
	kind := n.Type
	if kind == "" {
		kind = NoticeAlert
	}
	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(kind)), n.Title)
	msg := EmailMessage{
		To:      n.ProviderEmail,
		ToName:  n.ProviderName,
		Subject: subject,
		Body:    n.Message,
		HTML:    "<h2>" + html.EscapeString(n.Title) + "</h2>" + paragraphs(n.Message),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: provider notice: %w", err)
	}
	s.logger.Info("provider notified", "provider", n.ProviderName, "type", kind)
	return nil
}

func confirmationText(c Confirmation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", c.PatientName)
	b.WriteString("Your appointment has been booked.\n\n")
	fmt.Fprintf(&b, "Doctor: %s\nDate: %s\nTime: %s\n", c.ProviderName, c.Date, c.Time)
	if c.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", c.Location)
	}
	b.WriteString("\nPlease arrive 10 minutes early and bring your ID and insurance card.\n")
	b.WriteString("To reschedule or cancel, contact us at least 24 hours in advance.\n")
	return b.String()
}

func confirmationHTML(c Confirmation) string {
	esc := html.EscapeString
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px;">`)
	b.WriteString("<h2>Appointment Confirmed</h2>")
	fmt.Fprintf(&b, "<p>Dear %s,</p><p>Your appointment has been booked.</p>", esc(c.PatientName))
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li><strong>Doctor:</strong> %s</li>", esc(c.ProviderName))
	fmt.Fprintf(&b, "<li><strong>Date:</strong> %s</li>", esc(c.Date))
	fmt.Fprintf(&b, "<li><strong>Time:</strong> %s</li>", esc(c.Time))
	if c.Location != "" {
		fmt.Fprintf(&b, "<li><strong>Location:</strong> %s</li>", esc(c.Location))
	}
	b.WriteString("</ul>")
	b.WriteString("<p>Please arrive 10 minutes early and bring your ID and insurance card.</p>")
	b.WriteString("<p>To reschedule or cancel, contact us at least 24 hours in advance.</p></div>")
	return b.String()
}

func paragraphs(text string) string {
	var b strings.Builder
	for _, p := range strings.Split(strings.TrimSpace(text), "\n\n") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
