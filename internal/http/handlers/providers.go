package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-booking-agent/internal/bookings"
	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/internal/providers"
	"github.com/wolfman30/clinic-booking-agent/internal/scheduling"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

// ProvidersHandler exposes the provider directory and open slots read-only.
type ProvidersHandler struct {
	directory providers.Directory
	bookings  *bookings.Service
	logger    *logging.Logger
}

func NewProvidersHandler(directory providers.Directory, svc *bookings.Service, logger *logging.Logger) *ProvidersHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ProvidersHandler{directory: directory, bookings: svc, logger: logger}
}

// ProviderResponse is a provider as served over HTTP.
type ProviderResponse struct {
	ID                  int64    `json:"id"`
	Name                string   `json:"name"`
	Specialization      string   `json:"specialization"`
	WorkingDays         []string `json:"working_days"`
	WorkingHoursStart   string   `json:"working_hours_start"`
	WorkingHoursEnd     string   `json:"working_hours_end"`
	SlotDurationMinutes int      `json:"slot_duration_minutes"`
}

func toProviderResponse(p providers.Provider) ProviderResponse {
	return ProviderResponse{
		ID:                  p.ID,
		Name:                p.DisplayName(),
		Specialization:      p.Specialization,
		WorkingDays:         p.WorkingDayNames(),
		WorkingHoursStart:   p.WorkingHoursStart.String(),
		WorkingHoursEnd:     p.WorkingHoursEnd.String(),
		SlotDurationMinutes: p.SlotMinutes(),
	}
}

// List handles GET /v1/providers?specialization=.
func (h *ProvidersHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.directory.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("specialization")))
	if err != nil {
		h.logger.Error("failed to list providers", "error", err)
		jsonError(w, "failed to list providers", http.StatusInternalServerError)
		return
	}
	out := make([]ProviderResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toProviderResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out, "count": len(out)})
}

// Get handles GET /v1/providers/{providerID}.
func (h *ProvidersHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toProviderResponse(*p))
}

// Availability handles GET /v1/providers/{providerID}/availability?date=YYYY-MM-DD.
func (h *ProvidersHandler) Availability(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	date, err := calendar.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	slots, err := h.bookings.Availability(r.Context(), *p, date)
	var verr *scheduling.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      verr.Reason,
			"error_type": verr.Type,
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to compute availability", "provider_id", p.ID, "error", err)
		jsonError(w, "failed to compute availability", http.StatusInternalServerError)
		return
	}
	if slots == nil {
		slots = []scheduling.Slot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider": p.DisplayName(),
		"date":     date,
		"slots":    slots,
	})
}

func (h *ProvidersHandler) lookup(w http.ResponseWriter, r *http.Request) (*providers.Provider, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "providerID"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "invalid provider id", http.StatusBadRequest)
		return nil, false
	}
	p, err := h.directory.Get(r.Context(), id)
	if errors.Is(err, providers.ErrNotFound) {
		jsonError(w, "provider not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to load provider", "provider_id", id, "error", err)
		jsonError(w, "failed to load provider", http.StatusInternalServerError)
		return nil, false
	}
	return p, true
}
