package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StatusHistoryEntry é append-only: nunca é alterado nem removido.
type StatusHistoryEntry struct {
	ID        string      `json:"id"`
	LeadID    string      `json:"lead_id"`
	OldStatus *LeadStatus `json:"old_status"`
	NewStatus LeadStatus  `json:"new_status"`
	Reason    string      `json:"reason,omitempty"`
	Notes     string      `json:"notes,omitempty"`
	ChangedBy string      `json:"changed_by"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewStatusHistoryEntry(leadID string, oldStatus *LeadStatus, newStatus LeadStatus, reason, notes, changedBy string, at time.Time) *StatusHistoryEntry {
	return &StatusHistoryEntry{
		ID:        uuid.New().String(),
		LeadID:    leadID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Reason:    reason,
		Notes:     notes,
		ChangedBy: changedBy,
		CreatedAt: at,
	}
}

type InteractionType string

const (
	InteractionNote     InteractionType = "note"
	InteractionCall     InteractionType = "call"
	InteractionEmail    InteractionType = "email"
	InteractionWhatsApp InteractionType = "whatsapp"
)

func ParseInteractionType(s string) (InteractionType, bool) {
	switch t := InteractionType(strings.ToLower(strings.TrimSpace(s))); t {
	case InteractionNote, InteractionCall, InteractionEmail, InteractionWhatsApp:
		return t, true
	}
	return "", false
}

type Interaction struct {
	ID        string          `json:"id"`
	LeadID    string          `json:"lead_id"`
	Type      InteractionType `json:"type"`
	Content   string          `json:"content"`
	UserID    string          `json:"user_id"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewInteraction(leadID string, kind InteractionType, content, userID string, at time.Time) *Interaction {
	return &Interaction{
		ID:        uuid.New().String(),
		LeadID:    leadID,
		Type:      kind,
		Content:   content,
		UserID:    userID,
		CreatedAt: at,
	}
}
