package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/internal/memory"
	"github.com/wolfman30/clinic-booking-agent/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-agent/internal/providers"
	"github.com/wolfman30/clinic-booking-agent/internal/tools"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

const (
	defaultMaxIterations = 5
	defaultModelTimeout  = 45 * time.Second
	defaultMaxTokens     = 1024
	defaultTemperature   = 0.2
)

// Agent runs one user message through the model/tool loop. It holds no
// per-turn state; every Respond call builds its own transcript and journal.
type Agent struct {
	llm       LLMClient
	registry  *tools.Registry
	memory    *memory.Store
	directory providers.Directory
	logger    *logging.Logger
	metrics   *metrics.AgentMetrics
	tracer    trace.Tracer

	maxIterations int
	modelTimeout  time.Duration
	model         string
	maxTokens     int32
	temperature   float32
	location      string
	loc           *time.Location
	now           func() time.Time
}

// AgentOption customises an Agent.
type AgentOption func(*Agent)

// WithMaxIterations caps model calls per turn.
func WithMaxIterations(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithModelTimeout bounds each individual model call.
func WithModelTimeout(d time.Duration) AgentOption {
	return func(a *Agent) {
		if d > 0 {
			a.modelTimeout = d
		}
	}
}

// WithModel sets the model id and sampling parameters sent on each request.
func WithModel(model string, maxTokens int32, temperature float32) AgentOption {
	return func(a *Agent) {
		a.model = model
		if maxTokens > 0 {
			a.maxTokens = maxTokens
		}
		a.temperature = temperature
	}
}

// WithDirectory lists doctors in the patient prompt.
func WithDirectory(d providers.Directory) AgentOption {
	return func(a *Agent) { a.directory = d }
}

// WithClinic sets the clinic location name and the zone used for "today".
func WithClinic(location string, loc *time.Location) AgentOption {
	return func(a *Agent) {
		if strings.TrimSpace(location) != "" {
			a.location = location
		}
		if loc != nil {
			a.loc = loc
		}
	}
}

func WithMetrics(m *metrics.AgentMetrics) AgentOption {
	return func(a *Agent) { a.metrics = m }
}

func WithTracer(t trace.Tracer) AgentOption {
	return func(a *Agent) {
		if t != nil {
			a.tracer = t
		}
	}
}

func WithNow(now func() time.Time) AgentOption {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAgent(llm LLMClient, registry *tools.Registry, store *memory.Store, logger *logging.Logger, opts ...AgentOption) *Agent {
	if llm == nil || registry == nil || store == nil {
		panic("conversation: llm, registry and memory store are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	a := &Agent{
		llm:           llm,
		registry:      registry,
		memory:        store,
		logger:        logger,
		tracer:        otel.Tracer("clinic.internal.conversation"),
		maxIterations: defaultMaxIterations,
		modelTimeout:  defaultModelTimeout,
		maxTokens:     defaultMaxTokens,
		temperature:   defaultTemperature,
		location:      "Main Clinic",
		loc:           time.UTC,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Respond handles one user message. It returns memory.ErrMissingUserIdentifier
// before touching memory when the user id is blank, a *ModelError when the
// model call fails, and ctx.Err() when the caller cancels. In all three cases
// memory is left unchanged.
func (a *Agent) Respond(ctx context.Context, req Request) (*Response, error) {
	key, err := memory.NewKey(req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	mode := resolveMode(req.Mode, req.SessionID)
	ctx, span := a.tracer.Start(ctx, "conversation.respond", trace.WithAttributes(
		attribute.String("agent.mode", string(mode)),
	))
	defer span.End()

	logger := a.logger.With("session_id", req.SessionID, "mode", string(mode))

	summary, err := a.memory.RenderSummary(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "memory load failed")
		return nil, err
	}

	system := buildSystemPrompt(promptInput{
		Mode:     mode,
		Today:    calendar.Today(a.now(), a.loc),
		Location: a.location,
		Doctors:  a.doctors(ctx, mode, logger),
		Memory:   summary,
	})

	journal := memory.NewJournal(a.now)
	exec := tools.ExecutionContext{SessionID: req.SessionID, UserID: req.UserID, Memory: journal}
	transcript := NewTranscript(req.Message)
	specs := toolSpecs(a.registry.List())

	var (
		final      string
		answered   bool
		iterations int
		toolCalls  int
	)
	for iterations < a.maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, a.abort(span, "cancelled", iterations, started, err)
		}
		iterations++

		resp, err := a.callModel(ctx, LLMRequest{
			Model:       a.model,
			System:      []string{system},
			Messages:    transcript.Messages(),
			Tools:       specs,
			MaxTokens:   a.maxTokens,
			Temperature: a.temperature,
		})
		if err != nil {
			outcome := "model_error"
			if ctx.Err() != nil {
				outcome = "cancelled"
			} else {
				logger.Error("model call failed", "iteration", iterations, "error", err)
			}
			return nil, a.abort(span, outcome, iterations, started, err)
		}

		calls := a.acceptCalls(transcript, resp.ToolCalls, logger)
		if len(calls) == 0 {
			final, answered = resp.Text, true
			break
		}
		transcript.AppendAssistant(resp.Text, calls)

		for _, call := range calls {
			if err := ctx.Err(); err != nil {
				return nil, a.abort(span, "cancelled", iterations, started, err)
			}
			res := a.registry.Invoke(ctx, call, exec)
			toolCalls++
			if err := transcript.AppendResult(res); err != nil {
				logger.Warn("dropping tool result", "call_id", call.ID, "error", err)
				continue
			}
			a.metrics.ObserveToolCall(call.Name, res.OK)
			logger.Debug("tool call", "iteration", iterations, "tool", call.Name, "call_id", call.ID, "ok", res.OK)
		}
	}

	results := transcript.Results()
	out := &Response{Success: true, ToolCallsMade: toolCalls, Iterations: iterations}
	outcome := "answered"

	switch {
	case answered && strings.TrimSpace(final) != "":
		out.Response = strings.TrimSpace(final)
	case len(results) > 0:
		out.Response = synthesize(a.registry, results)
		out.Warning = warnMaxIterations
		if answered {
			out.Warning = warnEmptyAnswer
		}
		outcome = "synthesized"
		logger.Warn("synthesized response from tool results", "iterations", iterations, "results", len(results))
	case answered:
		err := malformed("", "model returned neither text nor tool calls")
		logger.Error("model call failed", "iteration", iterations, "error", err)
		return nil, a.abort(span, "model_error", iterations, started, err)
	default:
		out.Success = false
		out.Response = unableToProcess
		out.Error = "maximum iterations reached without a result"
		out.ErrorType = errorTypeMaxIterations
		outcome = errorTypeMaxIterations
		logger.Warn("max iterations reached without tool results", "iterations", iterations)
	}

	if rej, ok := lastRejection(results); ok {
		out.applyRejection(rej)
		a.metrics.ObserveRejection(rej.ErrorType)
	}

	if _, err := a.memory.Commit(ctx, key, journal, req.Message, out.Response); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, a.abort(span, "cancelled", iterations, started, ctxErr)
		}
		logger.Error("failed to persist conversation memory", "error", err)
		span.RecordError(err)
	}

	span.SetAttributes(
		attribute.Int("agent.iterations", iterations),
		attribute.Int("agent.tool_calls", toolCalls),
		attribute.String("agent.outcome", outcome),
	)
	a.metrics.ObserveTurn(outcome, iterations, time.Since(started).Seconds())
	return out, nil
}

func (a *Agent) callModel(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.modelTimeout)
	defer cancel()

	started := time.Now()
	resp, err := a.llm.Complete(callCtx, req)
	elapsed := time.Since(started).Seconds()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return LLMResponse{}, ctxErr
		}
		err = classifyModelError(callCtx, err)
		var me *ModelError
		if errors.As(err, &me) {
			a.metrics.ObserveModelCall(string(me.Kind), elapsed)
		}
		return LLMResponse{}, err
	}
	a.metrics.ObserveModelCall("ok", elapsed)
	return resp, nil
}

// acceptCalls assigns ids to calls that lack one and drops calls whose id was
// already used in this turn.
func (a *Agent) acceptCalls(t *Transcript, calls []tools.Call, logger *logging.Logger) []tools.Call {
	if len(calls) == 0 {
		return nil
	}
	out := make([]tools.Call, 0, len(calls))
	seen := make(map[string]bool, len(calls))
	for _, call := range calls {
		if strings.TrimSpace(call.ID) == "" {
			call.ID = "call_" + uuid.NewString()
		}
		if seen[call.ID] || t.HasResult(call.ID) {
			logger.Warn("skipping duplicate tool call", "call_id", call.ID, "tool", call.Name)
			continue
		}
		seen[call.ID] = true
		out = append(out, call)
	}
	return out
}

func (a *Agent) doctors(ctx context.Context, mode Mode, logger *logging.Logger) []providers.Provider {
	if a.directory == nil || mode != ModePatient {
		return nil
	}
	list, err := a.directory.List(ctx, "")
	if err != nil {
		logger.Warn("failed to list doctors for prompt", "error", err)
		return nil
	}
	return list
}

func (a *Agent) abort(span trace.Span, outcome string, iterations int, started time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	a.metrics.ObserveTurn(outcome, iterations, time.Since(started).Seconds())
	return err
}
