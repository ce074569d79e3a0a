package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/wolfman30/clinic-booking-agent/internal/identity"
	"github.com/wolfman30/clinic-booking-agent/internal/memory"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

const (
	maxMessageBytes   = 64 << 10
	retryAfterSeconds = 5
)

// Responder runs one conversational turn.
type Responder interface {
	Respond(ctx context.Context, req Request) (*Response, error)
}

// Handler wires HTTP requests to the agent.
type Handler struct {
	agent  Responder
	logger *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(agent Responder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{agent: agent, logger: logger}
}

// Message handles POST /v1/agent/messages. An authenticated user id from the
// request context takes precedence over the body's user_id.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode message request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, &Response{Error: "invalid request body", ErrorType: "invalid_request"})
		return
	}
	if userID, ok := identity.UserIDFromContext(r.Context()); ok {
		req.UserID = userID
	}
	if strings.TrimSpace(req.Message) == "" {
		h.writeJSON(w, http.StatusBadRequest, &Response{Error: "message is required", ErrorType: "invalid_request"})
		return
	}

	resp, err := h.agent.Respond(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var me *ModelError
	switch {
	case errors.Is(err, memory.ErrMissingUserIdentifier):
		h.writeJSON(w, http.StatusUnauthorized, &Response{Error: "user identifier is required", ErrorType: "missing_user_identifier"})
	case errors.Is(err, memory.ErrMissingSessionID):
		h.writeJSON(w, http.StatusBadRequest, &Response{Error: "session_id is required", ErrorType: "invalid_request"})
	case errors.Is(err, context.Canceled) || r.Context().Err() != nil:
		// The client went away; there is nobody to answer.
		h.logger.Info("message request cancelled", "error", err)
	case errors.As(err, &me):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		h.writeJSON(w, http.StatusServiceUnavailable, &Response{
			Error:     "The assistant is temporarily unavailable. Please try again.",
			ErrorType: "model_" + string(me.Kind),
		})
	default:
		h.logger.Error("failed to process message", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, &Response{Error: "failed to process message", ErrorType: "internal"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
