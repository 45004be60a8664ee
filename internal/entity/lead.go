package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLeadNotFound = errors.New("lead não encontrado")
	ErrUserNotFound = errors.New("usuário não encontrado")
)

type LeadStatus string

const (
	StatusNew         LeadStatus = "new"
	StatusContacted   LeadStatus = "contacted"
	StatusQualified   LeadStatus = "qualified"
	StatusProposal    LeadStatus = "proposal"
	StatusNegotiation LeadStatus = "negotiation"
	StatusClosedWon   LeadStatus = "closed_won"
	StatusClosedLost  LeadStatus = "closed_lost"
	StatusNurturing   LeadStatus = "nurturing"
)

// LeadStatuses segue a ordem das colunas do Kanban.
var LeadStatuses = []LeadStatus{
	StatusNew,
	StatusContacted,
	StatusQualified,
	StatusProposal,
	StatusNegotiation,
	StatusNurturing,
	StatusClosedWon,
	StatusClosedLost,
}

func ParseLeadStatus(s string) (LeadStatus, bool) {
	status := LeadStatus(strings.TrimSpace(s))
	for _, known := range LeadStatuses {
		if status == known {
			return status, true
		}
	}
	return "", false
}

// IsTerminal: closed_won e closed_lost não aceitam transição comum.
func (s LeadStatus) IsTerminal() bool {
	return s == StatusClosedWon || s == StatusClosedLost
}

type LeadTemperature string

const (
	TemperatureHot  LeadTemperature = "hot"
	TemperatureWarm LeadTemperature = "warm"
	TemperatureCold LeadTemperature = "cold"
)

func ParseLeadTemperature(s string) (LeadTemperature, bool) {
	switch t := LeadTemperature(strings.TrimSpace(s)); t {
	case TemperatureHot, TemperatureWarm, TemperatureCold:
		return t, true
	}
	return "", false
}

type Lead struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	WhatsApp string `json:"whatsapp,omitempty"`
	Company  string `json:"company,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
	Message  string `json:"message,omitempty"`
	Source   string `json:"source,omitempty"`

	Status     LeadStatus `json:"status"`
	AssignedTo *string    `json:"assigned_to"`

	// Preenchidos pelo serviço externo de scoring
	LeadScore               *int             `json:"lead_score"`
	LeadTemperature         *LeadTemperature `json:"lead_temperature"`
	PredictedConversionRate *float64         `json:"predicted_conversion_rate"`
	AISuggestions           []string         `json:"ai_suggestions"`

	// Colunas geográficas desnormalizadas (GeoProfile achatado)
	DDD        string `json:"ddd,omitempty"`
	DDI        string `json:"ddi,omitempty"`
	Estado     string `json:"estado,omitempty"`
	Cidade     string `json:"cidade,omitempty"`
	Pais       string `json:"pais,omitempty"`
	Continente string `json:"continente,omitempty"`
	Regiao     string `json:"regiao,omitempty"`

	InteractionCount int        `json:"interaction_count"`
	LastInteraction  *time.Time `json:"last_interaction"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewLead cria um lead vindo do formulário de contato: status new, sem histórico.
func NewLead(name, email, phone string) *Lead {
	now := time.Now().UTC()
	return &Lead{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		Status:    StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyGeo copia o perfil resolvido para as colunas desnormalizadas.
func (l *Lead) ApplyGeo(p GeoProfile) {
	l.DDD = p.AreaCode
	l.DDI = p.CountryCallingCode
	l.Estado = p.StateCode
	l.Cidade = p.CityName
	l.Pais = p.Country
	l.Continente = p.Continent
	l.Regiao = p.Region
}

// LastActivity devolve a última interação, ou a criação quando nunca houve contato.
func (l *Lead) LastActivity() time.Time {
	if l.LastInteraction != nil {
		return *l.LastInteraction
	}
	return l.CreatedAt
}

// LeadScoring é o snapshot gravado pelo serviço de IA.
type LeadScoring struct {
	LeadScore               *int             `json:"lead_score"`
	LeadTemperature         *LeadTemperature `json:"lead_temperature"`
	PredictedConversionRate *float64         `json:"predicted_conversion_rate"`
	AISuggestions           []string         `json:"ai_suggestions"`
}

type LeadFilter struct {
	Status      *LeadStatus
	AssignedTo  *string
	Temperature *LeadTemperature
	Limit       int
	// Unbounded desliga o teto padrão da listagem quando Limit é zero (agregações).
	Unbounded bool
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, filter LeadFilter) ([]*Lead, error)
	ListStale(ctx context.Context, before time.Time) ([]*Lead, error)
	ListStatusHistory(ctx context.Context, leadID string) ([]*StatusHistoryEntry, error)
	ListInteractions(ctx context.Context, leadID string) ([]*Interaction, error)
	UpdateScoring(ctx context.Context, leadID string, scoring LeadScoring) (*Lead, error)

	// WithinTx executa fn numa única transação; erro em fn desfaz tudo.
	WithinTx(ctx context.Context, fn func(tx LeadTx) error) error
}

// LeadTx são as escritas do pipeline. LockLead serializa escritas concorrentes na mesma linha.
type LeadTx interface {
	LockLead(ctx context.Context, id string) (*Lead, error)
	UpdateStatus(ctx context.Context, leadID string, status LeadStatus, at time.Time) error
	UpdateAssignee(ctx context.Context, leadID, userID string, at time.Time) error
	InsertStatusHistory(ctx context.Context, entry *StatusHistoryEntry) error
	InsertInteraction(ctx context.Context, interaction *Interaction) error
	RegisterInteraction(ctx context.Context, leadID string, at time.Time) (int, error)
}
