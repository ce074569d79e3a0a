package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-agent/internal/bookings"
	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/internal/clinictools"
	"github.com/wolfman30/clinic-booking-agent/internal/memory"
	"github.com/wolfman30/clinic-booking-agent/internal/notify"
	"github.com/wolfman30/clinic-booking-agent/internal/providers"
	"github.com/wolfman30/clinic-booking-agent/internal/scheduling"
	"github.com/wolfman30/clinic-booking-agent/internal/tools"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

var (
	testNow  = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC) // Monday
	tuesday  = calendar.Date{Year: 2026, Month: time.March, Day: 3}
	saturday = calendar.Date{Year: 2026, Month: time.March, Day: 7}
)

// scriptedLLM replays responses in order and records every request. Once the
// script runs out it repeats the last step.
type scriptedLLM struct {
	mu       sync.Mutex
	steps    []func(ctx context.Context, req LLMRequest) (LLMResponse, error)
	requests []LLMRequest
}

func (s *scriptedLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	n := len(s.requests)
	var step func(context.Context, LLMRequest) (LLMResponse, error)
	if len(s.steps) > 0 {
		idx := n - 1
		if idx >= len(s.steps) {
			idx = len(s.steps) - 1
		}
		step = s.steps[idx]
	}
	s.mu.Unlock()
	if step == nil {
		return LLMResponse{}, errors.New("no script")
	}
	return step(ctx, req)
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *scriptedLLM) request(i int) LLMRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

func say(text string) func(context.Context, LLMRequest) (LLMResponse, error) {
	return func(context.Context, LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: text}, nil
	}
}

func callTool(calls ...tools.Call) func(context.Context, LLMRequest) (LLMResponse, error) {
	return func(context.Context, LLMRequest) (LLMResponse, error) {
		return LLMResponse{ToolCalls: calls}, nil
	}
}

type agentFixture struct {
	llm     *scriptedLLM
	backend *memory.LocalBackend
	store   *memory.Store
	repo    *bookings.MemoryRepository
	agent   *Agent
}

func newAgentFixture(t *testing.T, llm *scriptedLLM, opts ...AgentOption) *agentFixture {
	t.Helper()
	logger := logging.Discard()
	clock := func() time.Time { return testNow }

	directory := providers.NewMemoryDirectory(
		providers.Provider{
			Name: "Dr. Sarah Johnson", Specialization: "Cardiology", Email: "johnson@clinic.example",
			WorkingDays:       []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			WorkingHoursStart: calendar.NewClock(9, 0), WorkingHoursEnd: calendar.NewClock(17, 0),
			SlotDurationMinutes: 30,
		},
		providers.Provider{
			Name: "Dr. Michael Chen", Specialization: "Dermatology",
			WorkingDays:       []time.Weekday{time.Monday, time.Wednesday},
			WorkingHoursStart: calendar.NewClock(10, 0), WorkingHoursEnd: calendar.NewClock(16, 0),
			SlotDurationMinutes: 30,
		},
	)
	repo := bookings.NewMemoryRepository()
	validator := scheduling.NewValidator(scheduling.WithNow(clock))
	cat, err := clinictools.New(clinictools.Deps{
		Directory: directory,
		Bookings:  bookings.NewService(repo, validator, logger),
		Notifier:  notify.NewService(notify.NewLogSender(logger), logger),
		Logger:    logger,
	})
	require.NoError(t, err)
	reg := tools.NewRegistry(logger)
	require.NoError(t, cat.Register(reg))

	backend := memory.NewLocalBackend()
	store := memory.NewStore(backend, memory.WithClock(clock), memory.WithLogger(logger))

	opts = append([]AgentOption{WithDirectory(directory), WithNow(clock)}, opts...)
	return &agentFixture{
		llm:     llm,
		backend: backend,
		store:   store,
		repo:    repo,
		agent:   NewAgent(llm, reg, store, logger, opts...),
	}
}

func (f *agentFixture) context(t *testing.T, session, user string) *memory.Context {
	t.Helper()
	key, err := memory.NewKey(session, user)
	require.NoError(t, err)
	c, err := f.store.Get(context.Background(), key)
	require.NoError(t, err)
	return c
}

func bookCall(id, email, date, clock string) tools.Call {
	return tools.Call{ID: id, Name: clinictools.ToolBookAppointment, Arguments: map[string]any{
		"patient_name":     "Jane Doe",
		"patient_email":    email,
		"doctor_name":      "Johnson",
		"appointment_date": date,
		"appointment_time": clock,
	}}
}
