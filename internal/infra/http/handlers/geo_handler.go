package handlers

import (
	"net/http"

	"github.com/xavierca1/diag-leads/internal/entity"
	"github.com/xavierca1/diag-leads/internal/geo"
	"github.com/xavierca1/diag-leads/internal/usecase"
)

// GeoService é satisfeito por *geo.Resolver.
type GeoService interface {
	Resolve(rawPhone string) entity.GeoProfile
	IsValidDomesticNumber(rawPhone string) bool
	FormatDomestic(rawPhone string) string
	Distribution(phones []string) entity.DistributionStats
}

type GeoHandler struct {
	resolver      GeoService
	defaultRegion string
}

func NewGeoHandler(resolver GeoService, defaultRegion string) *GeoHandler {
	return &GeoHandler{resolver: resolver, defaultRegion: defaultRegion}
}

type ResolvePhoneRequest struct {
	Phone string `json:"phone"`
}

type ResolvePhoneResponse struct {
	Phone     string            `json:"phone"`
	Profile   entity.GeoProfile `json:"profile"`
	Valid     bool              `json:"valid_domestic"`
	Formatted string            `json:"formatted"`
	E164      string            `json:"e164"`
}

type DistributionRequest struct {
	Phones []string `json:"phones"`
}

// Resolve (POST /geo/resolve) nunca falha por número desconhecido: o perfil só vem vazio.
func (h *GeoHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolvePhoneRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	writeJSON(w, http.StatusOK, ResolvePhoneResponse{
		Phone:     req.Phone,
		Profile:   h.resolver.Resolve(req.Phone),
		Valid:     h.resolver.IsValidDomesticNumber(req.Phone),
		Formatted: h.resolver.FormatDomestic(req.Phone),
		E164:      geo.NormalizeE164(req.Phone, h.defaultRegion),
	})
}

// Distribution (POST /geo/distribution)
func (h *GeoHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	var req DistributionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Phones) > 10000 {
		writeError(w, usecase.NewValidationError("at most 10000 phones per request"))
		return
	}
	writeJSON(w, http.StatusOK, h.resolver.Distribution(req.Phones))
}
