package usecase

import (
	"context"

	"github.com/xavierca1/diag-leads/internal/entity"
)

// Notifier recebe eventos depois do commit. Erro aqui nunca desfaz a operação.
type Notifier interface {
	Notify(ctx context.Context, event entity.LeadEvent) error
}

type GeoResolver interface {
	Resolve(rawPhone string) entity.GeoProfile
}

type CaptureLeadInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp"`
	Company  string `json:"company"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
	Message  string `json:"message"`
	Source   string `json:"source"`
}

type TransitionInput struct {
	LeadID       string
	Status       string
	ActingUserID string
	Reason       string
	Notes        string
}

type AssignInput struct {
	LeadID       string
	UserID       string
	ActingUserID string
}

type AddInteractionInput struct {
	LeadID       string
	Type         string
	Content      string
	ActingUserID string
}

type LeadDetail struct {
	Lead          *entity.Lead                 `json:"lead"`
	StatusHistory []*entity.StatusHistoryEntry `json:"status_history"`
	Interactions  []*entity.Interaction        `json:"interactions"`
}
