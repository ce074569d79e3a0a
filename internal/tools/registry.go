// Package tools is the catalog of operations the language model may ask the
// agent to run. Descriptors are registered once at startup; the registry
// validates arguments, runs handlers and is the only producer of Result.
package tools

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/wolfman30/clinic-booking-agent/internal/memory"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

// ExecutionContext carries the per-turn identity and memory journal.
// Repositories are bound to handlers when they are constructed.
type ExecutionContext struct {
	SessionID string
	UserID    string
	Memory    *memory.Journal
}

// Handler runs a tool with validated arguments.
type Handler interface {
	Invoke(ctx context.Context, args Arguments, exec ExecutionContext) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, args Arguments, exec ExecutionContext) (any, error)

func (f HandlerFunc) Invoke(ctx context.Context, args Arguments, exec ExecutionContext) (any, error) {
	return f(ctx, args, exec)
}

// Renderer turns a result into patient-facing text for fallback synthesis.
// An empty string means the result contributes nothing.
type Renderer func(Result) string

// Descriptor declares a tool. It is immutable after registration.
type Descriptor struct {
	Name        string
	Description string
	Parameters  Schema
	Handler     Handler
	Render      Renderer
}

// Call is a model's request to run a tool.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Result is the outcome of one invocation.
type Result struct {
	ToolName string `json:"tool_name"`
	CallID   string `json:"call_id"`
	Payload  any    `json:"payload"`
	OK       bool   `json:"ok"`
	// Err is the failure cause for callers; it is not sent to the model.
	Err error `json:"-"`
}

// Registry holds descriptors by name.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Descriptor
	logger *logging.Logger
}

func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{tools: make(map[string]Descriptor), logger: logger}
}

// Register adds a descriptor; the name must be unique.
func (r *Registry) Register(d Descriptor) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" || d.Handler == nil {
		return fmt.Errorf("%w: name and handler are required", ErrInvalidDescriptor)
	}
	for name, p := range d.Parameters {
		if p.Type == "" {
			return fmt.Errorf("%w: %s.%s has no type", ErrInvalidDescriptor, d.Name, name)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, d.Name)
	}
	r.tools[d.Name] = d
	return nil
}

// MustRegister registers every descriptor and panics on the first error.
func (r *Registry) MustRegister(ds ...Descriptor) {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// List returns every descriptor ordered by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// Invoke validates and runs a call. Every failure, including a handler
// panic, comes back as a Result with OK=false; Invoke never returns an error.
func (r *Registry) Invoke(ctx context.Context, call Call, exec ExecutionContext) (res Result) {
	res = Result{ToolName: call.Name, CallID: call.ID}

	desc, ok := r.Lookup(call.Name)
	if !ok {
		return failed(res, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name))
	}
	args, err := desc.Parameters.validate(desc.Name, call.Arguments)
	if err != nil {
		return failed(res, err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool handler panicked", "tool", call.Name, "call_id", call.ID,
				"panic", rec, "stack", string(debug.Stack()))
			res = failed(Result{ToolName: call.Name, CallID: call.ID}, fmt.Errorf("tools: %s failed unexpectedly", call.Name))
		}
	}()

	payload, err := desc.Handler.Invoke(ctx, args, exec)
	if err != nil {
		var f *Failure
		if errors.As(err, &f) && f.Payload != nil {
			res.Payload, res.Err = f.Payload, err
			return res
		}
		r.logger.Warn("tool handler failed", "tool", call.Name, "call_id", call.ID, "error", err)
		return failed(res, err)
	}
	res.Payload, res.OK = payload, true
	return res
}

// Render formats a result with its tool's renderer, falling back to a generic
// failure line for tools without one.
func (r *Registry) Render(res Result) string {
	if desc, ok := r.Lookup(res.ToolName); ok && desc.Render != nil {
		return desc.Render(res)
	}
	if !res.OK && res.Err != nil {
		return fmt.Sprintf("I couldn't complete %s: %s", strings.ReplaceAll(res.ToolName, "_", " "), userMessage(res.Err))
	}
	return ""
}

func failed(res Result, err error) Result {
	res.OK = false
	res.Err = err
	res.Payload = map[string]any{"success": false, "error": userMessage(err)}
	return res
}

// userMessage strips the package prefix from wrapped errors.
func userMessage(err error) string {
	return strings.TrimPrefix(err.Error(), "tools: ")
}
