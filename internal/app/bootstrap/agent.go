package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinic-booking-agent/internal/bookings"
	"github.com/wolfman30/clinic-booking-agent/internal/clinictools"
	appconfig "github.com/wolfman30/clinic-booking-agent/internal/config"
	"github.com/wolfman30/clinic-booking-agent/internal/conversation"
	"github.com/wolfman30/clinic-booking-agent/internal/memory"
	"github.com/wolfman30/clinic-booking-agent/internal/notify"
	"github.com/wolfman30/clinic-booking-agent/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-agent/internal/providers"
	"github.com/wolfman30/clinic-booking-agent/internal/scheduling"
	"github.com/wolfman30/clinic-booking-agent/internal/tools"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

// AgentDeps are the already-built collaborators BuildAgent assembles.
type AgentDeps struct {
	LLM       conversation.LLMClient
	Directory providers.Directory
	Memory    *memory.Store
	Email     notify.EmailSender
	// Pool stores bookings in Postgres; nil keeps them in process memory.
	Pool    *pgxpool.Pool
	Metrics *metrics.AgentMetrics
	// Now overrides the wall clock, mainly for tests.
	Now func() time.Time
}

// Agent is the assembled conversation stack.
type Agent struct {
	Agent    *conversation.Agent
	Bookings *bookings.Service
	Registry *tools.Registry
}

// BuildAgent wires the validator, booking service, tool catalog and
// orchestrator from cfg.
func BuildAgent(cfg *appconfig.Config, deps AgentDeps, logger *logging.Logger) (*Agent, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if deps.LLM == nil || deps.Directory == nil || deps.Memory == nil {
		return nil, errors.New("bootstrap: llm, directory and memory are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: clinic timezone: %w", err)
	}

	validatorOpts := []scheduling.Option{
		scheduling.WithHorizonDays(cfg.BookingHorizonDays),
		scheduling.WithHolidays(scheduling.DefaultHolidays()),
		scheduling.WithLocation(loc),
	}
	if deps.Now != nil {
		validatorOpts = append(validatorOpts, scheduling.WithNow(deps.Now))
	}
	validator := scheduling.NewValidator(validatorOpts...)

	var repo bookings.Repository = bookings.NewMemoryRepository()
	if deps.Pool != nil {
		repo = bookings.NewPostgresRepository(deps.Pool)
	}
	bookingSvc := bookings.NewService(repo, validator, logger)

	catalog, err := clinictools.New(clinictools.Deps{
		Directory: deps.Directory,
		Bookings:  bookingSvc,
		Notifier:  notify.NewService(deps.Email, logger),
		Location:  cfg.ClinicLocation,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	registry := tools.NewRegistry(logger)
	if err := catalog.Register(registry); err != nil {
		return nil, fmt.Errorf("bootstrap: register tools: %w", err)
	}

	opts := []conversation.AgentOption{
		conversation.WithMaxIterations(cfg.AgentMaxIterations),
		conversation.WithModelTimeout(cfg.LLMTimeout),
		conversation.WithModel("", int32(cfg.LLMMaxTokens), float32(cfg.LLMTemperature)),
		conversation.WithDirectory(deps.Directory),
		conversation.WithClinic(cfg.ClinicLocation, loc),
		conversation.WithMetrics(deps.Metrics),
	}
	if deps.Now != nil {
		opts = append(opts, conversation.WithNow(deps.Now))
	}

	return &Agent{
		Agent:    conversation.NewAgent(deps.LLM, registry, deps.Memory, logger, opts...),
		Bookings: bookingSvc,
		Registry: registry,
	}, nil
}
