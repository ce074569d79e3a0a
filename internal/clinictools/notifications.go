package clinictools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-booking-agent/internal/bookings"
	"github.com/wolfman30/clinic-booking-agent/internal/notify"
	"github.com/wolfman30/clinic-booking-agent/internal/tools"
)

// EmailReceipt is the payload of both email tools.
type EmailReceipt struct {
	Success   bool   `json:"success"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

func (c *Catalog) sendPatientEmail() tools.Descriptor {
	return tools.Descriptor{
		Name: ToolSendPatientEmail,
		Description: "Email the patient of an existing appointment. Without subject and message the " +
			"standard confirmation with the appointment details is sent.",
		Parameters: tools.Schema{
			"booking_id": {Type: tools.TypeInteger, Description: "Appointment ID returned by book_appointment", Required: true},
			"subject":    {Type: tools.TypeString, Description: "Optional subject line"},
			"message":    {Type: tools.TypeString, Description: "Optional message body"},
		},
		Handler: tools.HandlerFunc(func(ctx context.Context, args tools.Arguments, exec tools.ExecutionContext) (any, error) {
			id, _ := args.Int("booking_id")
			b, err := c.bookings.Repository().Get(ctx, id)
			if err != nil && !errors.Is(err, bookings.ErrNotFound) {
				return nil, fmt.Errorf("clinictools: get booking: %w", err)
			}
			// Someone else's booking reads exactly like a missing one.
			if err != nil || !b.OwnedBy(exec.UserID) {
				if err == nil {
					c.logger.Warn("patient email refused for foreign booking", "booking_id", id, "user_id", exec.UserID)
				}
				return nil, tools.Fail(fmt.Sprintf("Appointment #%d not found", id), nil)
			}
			p, err := c.dir.Get(ctx, b.ProviderID)
			if err != nil {
				return nil, fmt.Errorf("clinictools: get provider: %w", err)
			}

			subject, message := args.String("subject"), args.String("message")
			if message == "" {
				err = c.notifier.SendBookingConfirmation(ctx, notify.Confirmation{
					PatientName:  b.PatientName,
					PatientEmail: b.PatientEmail,
					ProviderName: p.DisplayName(),
					Date:         b.Date.Long(),
					Time:         b.Start.Kitchen(),
					Location:     c.location,
				})
			} else {
				if subject == "" {
					subject = "Your appointment with " + p.DisplayName()
				}
				message, err = sanitizeText(message)
				if err != nil {
					return nil, tools.Fail("Invalid message: "+err.Error(), nil)
				}
				err = c.notifier.SendPatientMessage(ctx, b.PatientEmail, b.PatientName, subject, message)
			}
			if err != nil {
				return nil, fmt.Errorf("clinictools: send patient email: %w", err)
			}
			masked := maskEmail(b.PatientEmail)
			return EmailReceipt{Success: true, Recipient: masked, Message: "Email sent to " + masked}, nil
		}),
		Render: renderEmailReceipt,
	}
}

func (c *Catalog) sendDoctorNotification() tools.Descriptor {
	return tools.Descriptor{
		Name:        ToolSendDoctorNotification,
		Description: "Send a report, alert or reminder to a doctor by email.",
		Parameters: tools.Schema{
			"doctor_name":       {Type: tools.TypeString, Description: "Doctor's name", Required: true},
			"notification_type": {Type: tools.TypeString, Description: "Kind of notification", Required: true, Enum: notify.NoticeTypes()},
			"title":             {Type: tools.TypeString, Description: "Notification title", Required: true},
			"message":           {Type: tools.TypeString, Description: "Notification content", Required: true},
		},
		Handler: tools.HandlerFunc(func(ctx context.Context, args tools.Arguments, _ tools.ExecutionContext) (any, error) {
			p, err := c.provider(ctx, args.String("doctor_name"))
			if err != nil {
				return nil, err
			}
			if p.Email == "" {
				return nil, tools.Fail(fmt.Sprintf("%s has no email address on file", p.DisplayName()), nil)
			}
			err = c.notifier.NotifyProvider(ctx, notify.ProviderNotice{
				ProviderName:  p.DisplayName(),
				ProviderEmail: p.Email,
				Type:          notify.NoticeType(args.String("notification_type")),
				Title:         args.String("title"),
				Message:       args.String("message"),
			})
			if err != nil {
				return nil, fmt.Errorf("clinictools: notify provider: %w", err)
			}
			return EmailReceipt{Success: true, Recipient: p.Email, Message: "Notification sent to " + p.DisplayName()}, nil
		}),
		Render: renderEmailReceipt,
	}
}

// maskEmail keeps the first character of the local part and the domain:
// "jane@example.com" becomes "j***@example.com".
func maskEmail(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return "***"
	}
	return addr[:1] + "***" + addr[at:]
}

func renderEmailReceipt(res tools.Result) string {
	if r, ok := res.Payload.(EmailReceipt); ok {
		return r.Message + "."
	}
	return "I couldn't send that message: " + failureText(res)
}
