package entity

import "time"

type LeadEventType string

const (
	EventLeadCaptured     LeadEventType = "lead.captured"
	EventStatusChanged    LeadEventType = "lead.status_changed"
	EventLeadAssigned     LeadEventType = "lead.assigned"
	EventInteractionAdded LeadEventType = "lead.interaction_added"
	EventLeadStale        LeadEventType = "lead.stale"
)

// LeadEvent é o sinal fire-and-forget enviado depois do commit.
type LeadEvent struct {
	Type       LeadEventType `json:"type"`
	LeadID     string        `json:"lead_id"`
	ActorID    string        `json:"actor_id,omitempty"`
	OldStatus  *LeadStatus   `json:"old_status,omitempty"`
	NewStatus  LeadStatus    `json:"new_status,omitempty"`
	AssignedTo string        `json:"assigned_to,omitempty"`
	Lead       *Lead         `json:"lead,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
