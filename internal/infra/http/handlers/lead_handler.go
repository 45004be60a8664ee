package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/diag-leads/internal/entity"
	"github.com/xavierca1/diag-leads/internal/infra/http/middleware"
	"github.com/xavierca1/diag-leads/internal/usecase"
)

const maxListLimit = 1000

type LeadHandler struct {
	capture     *usecase.CaptureLeadUseCase
	pipeline    *usecase.LeadPipeline
	resolver    GeoService
	rateLimiter *RateLimiter
}

func NewLeadHandler(
	capture *usecase.CaptureLeadUseCase,
	pipeline *usecase.LeadPipeline,
	resolver GeoService,
	ratePerMinute int,
) *LeadHandler {
	return &LeadHandler{
		capture:     capture,
		pipeline:    pipeline,
		resolver:    resolver,
		rateLimiter: NewRateLimiter(ratePerMinute), // por IP
	}
}

type CaptureLeadResponse struct {
	Success bool   `json:"success"`
	LeadID  string `json:"lead_id,omitempty"`
	Message string `json:"message,omitempty"`
}

type TransitionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

type AssignRequest struct {
	UserID string `json:"user_id"`
}

type InteractionRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type ListLeadsResponse struct {
	Leads []*entity.Lead `json:"leads"`
	Total int            `json:"total"`
}

type StatsResponse struct {
	usecase.Stats
	ByStatus map[entity.LeadStatus]int `json:"by_status"`
}

// CaptureLead (POST /leads) é público: formulário do site.
func (h *LeadHandler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	if !h.rateLimiter.Allow(getClientIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, CaptureLeadResponse{
			Success: false,
			Message: "Too many requests. Please try again later.",
		})
		return
	}

	var input usecase.CaptureLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}

	lead, err := h.capture.Execute(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.RecordLeadCaptured(lead.Source)
	writeJSON(w, http.StatusCreated, CaptureLeadResponse{Success: true, LeadID: lead.ID})
}

// ListLeads (GET /leads?status=&assigned_to=&temperature=&limit=)
func (h *LeadHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLeadFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	leads, err := h.pipeline.ListLeads(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if leads == nil {
		leads = []*entity.Lead{}
	}
	writeJSON(w, http.StatusOK, ListLeadsResponse{Leads: leads, Total: len(leads)})
}

// Stats (GET /leads/stats) aceita os mesmos filtros da listagem.
func (h *LeadHandler) Stats(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLeadFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	leads, err := h.pipeline.ListForStats(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Stats:    usecase.AggregateStats(leads),
		ByStatus: usecase.CountByStatus(leads),
	})
}

// GeoDistribution (GET /leads/geo-distribution)
func (h *LeadHandler) GeoDistribution(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLeadFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	leads, err := h.pipeline.ListForStats(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	phones := make([]string, 0, len(leads))
	for _, l := range leads {
		phone := l.Phone
		if phone == "" {
			phone = l.WhatsApp
		}
		phones = append(phones, phone)
	}
	writeJSON(w, http.StatusOK, h.resolver.Distribution(phones))
}

// GetLead (GET /leads/{id}) devolve lead, histórico e interações.
func (h *LeadHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	detail, err := h.pipeline.GetLeadDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if detail.StatusHistory == nil {
		detail.StatusHistory = []*entity.StatusHistoryEntry{}
	}
	if detail.Interactions == nil {
		detail.Interactions = []*entity.Interaction{}
	}
	writeJSON(w, http.StatusOK, detail)
}

// Transition (POST /leads/{id}/transition)
func (h *LeadHandler) Transition(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req TransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lead, err := h.pipeline.Transition(r.Context(), usecase.TransitionInput{
		LeadID:       chi.URLParam(r, "id"),
		Status:       req.Status,
		ActingUserID: userID,
		Reason:       req.Reason,
		Notes:        req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.RecordTransition(string(lead.Status))
	writeJSON(w, http.StatusOK, lead)
}

// Assign (POST /leads/{id}/assign)
func (h *LeadHandler) Assign(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lead, err := h.pipeline.Assign(r.Context(), usecase.AssignInput{
		LeadID:       chi.URLParam(r, "id"),
		UserID:       req.UserID,
		ActingUserID: userID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// AddInteraction (POST /leads/{id}/interactions)
func (h *LeadHandler) AddInteraction(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req InteractionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	interaction, err := h.pipeline.AddInteraction(r.Context(), usecase.AddInteractionInput{
		LeadID:       chi.URLParam(r, "id"),
		Type:         req.Type,
		Content:      req.Content,
		ActingUserID: userID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.RecordInteraction(string(interaction.Type))
	writeJSON(w, http.StatusCreated, interaction)
}

// ApplyScoring (PUT /leads/{id}/scoring) recebe o snapshot do serviço de IA.
func (h *LeadHandler) ApplyScoring(w http.ResponseWriter, r *http.Request) {
	var scoring entity.LeadScoring
	if !decodeJSON(w, r, &scoring) {
		return
	}

	lead, err := h.pipeline.ApplyScoring(r.Context(), chi.URLParam(r, "id"), scoring)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func parseLeadFilter(r *http.Request) (entity.LeadFilter, error) {
	var filter entity.LeadFilter
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		status, ok := entity.ParseLeadStatus(s)
		if !ok {
			return filter, usecase.NewInvalidStatusError(s)
		}
		filter.Status = &status
	}
	if a := q.Get("assigned_to"); a != "" {
		filter.AssignedTo = &a
	}
	if t := q.Get("temperature"); t != "" {
		temp, ok := entity.ParseLeadTemperature(t)
		if !ok {
			return filter, usecase.NewValidationError("temperature must be hot, warm or cold")
		}
		filter.Temperature = &temp
	}
	if l := q.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 || limit > maxListLimit {
			return filter, usecase.NewValidationError("limit must be between 1 and " + strconv.Itoa(maxListLimit))
		}
		filter.Limit = limit
	}
	return filter, nil
}
