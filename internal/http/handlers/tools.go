package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-booking-agent/internal/identity"
	"github.com/wolfman30/clinic-booking-agent/internal/memory"
	"github.com/wolfman30/clinic-booking-agent/internal/tools"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

// defaultToolSession is the memory session used by direct tool calls that
// do not name one.
const defaultToolSession = "tools_api"

// ToolsHandler exposes the agent's tool registry for catalog browsing and
// direct invocation outside a chat turn.
type ToolsHandler struct {
	registry *tools.Registry
	memory   *memory.Store
	logger   *logging.Logger
}

// NewToolsHandler builds the handler. store may be nil, in which case tool
// side effects on conversation memory are dropped.
func NewToolsHandler(registry *tools.Registry, store *memory.Store, logger *logging.Logger) *ToolsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ToolsHandler{registry: registry, memory: store, logger: logger}
}

// ToolResponse is one catalog entry.
type ToolResponse struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// List handles GET /v1/tools.
func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	descs := h.registry.List()
	out := make([]ToolResponse, 0, len(descs))
	for _, d := range descs {
		out = append(out, ToolResponse{Name: d.Name, Description: d.Description, Parameters: d.Parameters.JSONSchema()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out, "count": len(out)})
}

type invokeToolRequest struct {
	SessionID string         `json:"session_id"`
	Arguments map[string]any `json:"arguments"`
}

type invokeToolResponse struct {
	tools.Result
	Message string `json:"message"`
}

// Invoke handles POST /v1/tools/{toolName}. The caller's identity scopes the
// call exactly as it would inside a chat turn.
func (h *ToolsHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "toolName")
	if _, ok := h.registry.Lookup(name); !ok {
		jsonError(w, "tool not found", http.StatusNotFound)
		return
	}
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		jsonError(w, "user identifier is required", http.StatusUnauthorized)
		return
	}

	var req invokeToolRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = defaultToolSession
	}
	key, err := memory.NewKey(sessionID, userID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var journal *memory.Journal
	if h.memory != nil {
		journal = memory.NewJournal(h.memory.Now)
	}
	call := tools.Call{ID: "http_" + uuid.NewString(), Name: name, Arguments: req.Arguments}
	res := h.registry.Invoke(r.Context(), call, tools.ExecutionContext{SessionID: sessionID, UserID: userID, Memory: journal})

	if muts := journal.Mutations(); len(muts) > 0 {
		if _, err := h.memory.Apply(r.Context(), key, muts...); err != nil {
			h.logger.Error("failed to record tool side effects", "tool", name, "error", err)
		}
	}

	status := http.StatusOK
	var missing *tools.MissingParameterError
	var mismatch *tools.TypeMismatchError
	if errors.As(res.Err, &missing) || errors.As(res.Err, &mismatch) {
		status = http.StatusBadRequest
	}
	h.logger.Info("tool invoked over http", "tool", name, "call_id", call.ID, "ok", res.OK)
	writeJSON(w, status, invokeToolResponse{Result: res, Message: h.registry.Render(res)})
}
