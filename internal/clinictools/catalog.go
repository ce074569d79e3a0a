// Package clinictools binds the clinic's providers, bookings and
// notifications to the tool registry the agent exposes to the model.
package clinictools

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/clinic-booking-agent/internal/bookings"
	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/internal/notify"
	"github.com/wolfman30/clinic-booking-agent/internal/providers"
	"github.com/wolfman30/clinic-booking-agent/internal/tools"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

const (
	ToolListDoctors            = "list_doctors"
	ToolDoctorAvailability     = "get_doctor_availability"
	ToolBookAppointment        = "book_appointment"
	ToolDoctorStats            = "get_doctor_stats"
	ToolSendPatientEmail       = "send_patient_email"
	ToolSendDoctorNotification = "send_doctor_notification"
)

// Deps are the collaborators the tools run against.
type Deps struct {
	Directory providers.Directory
	Bookings  *bookings.Service
	Notifier  *notify.Service
	// Location is shown in confirmations, e.g. "Main Clinic".
	Location string
	Logger   *logging.Logger
}

// Catalog holds bound dependencies and produces tool descriptors.
type Catalog struct {
	dir      providers.Directory
	bookings *bookings.Service
	notifier *notify.Service
	location string
	logger   *logging.Logger
}

func New(deps Deps) (*Catalog, error) {
	if deps.Directory == nil {
		return nil, errors.New("clinictools: provider directory required")
	}
	if deps.Bookings == nil {
		return nil, errors.New("clinictools: booking service required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewService(nil, deps.Logger)
	}
	if deps.Location == "" {
		deps.Location = "Main Clinic"
	}
	return &Catalog{
		dir:      deps.Directory,
		bookings: deps.Bookings,
		notifier: deps.Notifier,
		location: deps.Location,
		logger:   deps.Logger,
	}, nil
}

// Descriptors returns every clinic tool.
func (c *Catalog) Descriptors() []tools.Descriptor {
	return []tools.Descriptor{
		c.listDoctors(),
		c.doctorAvailability(),
		c.bookAppointment(),
		c.doctorStats(),
		c.sendPatientEmail(),
		c.sendDoctorNotification(),
	}
}

// Register adds every clinic tool to reg.
func (c *Catalog) Register(reg *tools.Registry) error {
	for _, d := range c.Descriptors() {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// provider resolves a loosely spelled doctor name into a user-facing failure
// when it matches nobody.
func (c *Catalog) provider(ctx context.Context, name string) (*providers.Provider, error) {
	p, err := c.dir.FindByName(ctx, name)
	if errors.Is(err, providers.ErrNotFound) {
		return nil, tools.Fail(fmt.Sprintf("Doctor '%s' not found in our system. Please check the name and try again.", name), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("clinictools: find provider: %w", err)
	}
	return p, nil
}

func parseDateArg(raw, param string) (calendar.Date, error) {
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return calendar.Date{}, tools.Fail(fmt.Sprintf("Invalid %s %q. Please use YYYY-MM-DD.", param, raw), nil)
	}
	return d, nil
}

// failureText is the error message in a failed result's payload.
func failureText(res tools.Result) string {
	switch p := res.Payload.(type) {
	case tools.Rejection:
		return p.Error
	case map[string]any:
		if msg, ok := p["error"].(string); ok {
			return msg
		}
	}
	if res.Err != nil {
		return res.Err.Error()
	}
	return "unknown error"
}
