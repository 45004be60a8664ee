// Package memory guarda leads em processo. Usado no modo de desenvolvimento e nos testes.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/xavierca1/diag-leads/internal/entity"
)

// LeadStore serializa todas as escritas num único mutex, o que equivale a lock por linha.
type LeadStore struct {
	mu           sync.Mutex
	leads        map[string]*entity.Lead
	seq          map[string]int
	nextSeq      int
	history      map[string][]*entity.StatusHistoryEntry
	interactions map[string][]*entity.Interaction
	now          func() time.Time
}

func NewLeadStore() *LeadStore {
	return &LeadStore{
		leads:        make(map[string]*entity.Lead),
		seq:          make(map[string]int),
		history:      make(map[string][]*entity.StatusHistoryEntry),
		interactions: make(map[string][]*entity.Interaction),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *LeadStore) Create(ctx context.Context, lead *entity.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.leads[lead.ID]; exists {
		return eris.Errorf("memory: lead %s already exists", lead.ID)
	}
	s.leads[lead.ID] = cloneLead(lead)
	s.seq[lead.ID] = s.nextSeq
	s.nextSeq++
	return nil
}

func (s *LeadStore) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	return cloneLead(lead), nil
}

// List ordena por created_at decrescente; empate cai na ordem de inserção.
func (s *LeadStore) List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*entity.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		if !matches(lead, filter) {
			continue
		}
		result = append(result, cloneLead(lead))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return s.seq[result[i].ID] > s.seq[result[j].ID]
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func matches(lead *entity.Lead, filter entity.LeadFilter) bool {
	if filter.Status != nil && lead.Status != *filter.Status {
		return false
	}
	if filter.AssignedTo != nil && (lead.AssignedTo == nil || *lead.AssignedTo != *filter.AssignedTo) {
		return false
	}
	if filter.Temperature != nil && (lead.LeadTemperature == nil || *lead.LeadTemperature != *filter.Temperature) {
		return false
	}
	return true
}

func (s *LeadStore) ListStale(ctx context.Context, before time.Time) ([]*entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*entity.Lead
	for _, lead := range s.leads {
		if lead.Status.IsTerminal() {
			continue
		}
		if lead.LastActivity().Before(before) {
			stale = append(stale, cloneLead(lead))
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].LastActivity().Before(stale[j].LastActivity())
	})
	return stale, nil
}

// ListStatusHistory devolve do mais antigo para o mais novo.
func (s *LeadStore) ListStatusHistory(ctx context.Context, leadID string) ([]*entity.StatusHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[leadID]; !ok {
		return nil, entity.ErrLeadNotFound
	}
	entries := s.history[leadID]
	out := make([]*entity.StatusHistoryEntry, len(entries))
	for i, e := range entries {
		c := *e
		out[i] = &c
	}
	return out, nil
}

// ListInteractions devolve da mais nova para a mais antiga.
func (s *LeadStore) ListInteractions(ctx context.Context, leadID string) ([]*entity.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[leadID]; !ok {
		return nil, entity.ErrLeadNotFound
	}
	items := s.interactions[leadID]
	out := make([]*entity.Interaction, len(items))
	for i, it := range items {
		c := *it
		out[len(items)-1-i] = &c
	}
	return out, nil
}

func (s *LeadStore) UpdateScoring(ctx context.Context, leadID string, scoring entity.LeadScoring) (*entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[leadID]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	lead.LeadScore = copyPtr(scoring.LeadScore)
	lead.LeadTemperature = copyPtr(scoring.LeadTemperature)
	lead.PredictedConversionRate = copyPtr(scoring.PredictedConversionRate)
	lead.AISuggestions = append([]string(nil), scoring.AISuggestions...)
	lead.UpdatedAt = s.now()
	return cloneLead(lead), nil
}

// WithinTx segura o mutex durante fn. As escritas ficam num rascunho e só são
// aplicadas se fn terminar sem erro.
func (s *LeadStore) WithinTx(ctx context.Context, fn func(tx entity.LeadTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &leadTx{store: s, touched: make(map[string]*entity.Lead)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "memory: transaction aborted")
	}

	for id, lead := range tx.touched {
		s.leads[id] = lead
	}
	for _, e := range tx.history {
		s.history[e.LeadID] = append(s.history[e.LeadID], e)
	}
	for _, it := range tx.interactions {
		s.interactions[it.LeadID] = append(s.interactions[it.LeadID], it)
	}
	return nil
}

type leadTx struct {
	store        *LeadStore
	touched      map[string]*entity.Lead
	history      []*entity.StatusHistoryEntry
	interactions []*entity.Interaction
}

func (tx *leadTx) draft(id string) (*entity.Lead, error) {
	if lead, ok := tx.touched[id]; ok {
		return lead, nil
	}
	lead, ok := tx.store.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	d := cloneLead(lead)
	tx.touched[id] = d
	return d, nil
}

func (tx *leadTx) LockLead(ctx context.Context, id string) (*entity.Lead, error) {
	lead, err := tx.draft(id)
	if err != nil {
		return nil, err
	}
	return cloneLead(lead), nil
}

func (tx *leadTx) UpdateStatus(ctx context.Context, leadID string, status entity.LeadStatus, at time.Time) error {
	lead, err := tx.draft(leadID)
	if err != nil {
		return err
	}
	lead.Status = status
	lead.UpdatedAt = at
	return nil
}

func (tx *leadTx) UpdateAssignee(ctx context.Context, leadID, userID string, at time.Time) error {
	lead, err := tx.draft(leadID)
	if err != nil {
		return err
	}
	lead.AssignedTo = &userID
	lead.UpdatedAt = at
	return nil
}

func (tx *leadTx) InsertStatusHistory(ctx context.Context, entry *entity.StatusHistoryEntry) error {
	if _, err := tx.draft(entry.LeadID); err != nil {
		return err
	}
	c := *entry
	tx.history = append(tx.history, &c)
	return nil
}

func (tx *leadTx) InsertInteraction(ctx context.Context, interaction *entity.Interaction) error {
	if _, err := tx.draft(interaction.LeadID); err != nil {
		return err
	}
	c := *interaction
	tx.interactions = append(tx.interactions, &c)
	return nil
}

func (tx *leadTx) RegisterInteraction(ctx context.Context, leadID string, at time.Time) (int, error) {
	lead, err := tx.draft(leadID)
	if err != nil {
		return 0, err
	}
	lead.InteractionCount++
	last := at
	lead.LastInteraction = &last
	lead.UpdatedAt = at
	return lead.InteractionCount, nil
}

func cloneLead(l *entity.Lead) *entity.Lead {
	c := *l
	c.AssignedTo = copyPtr(l.AssignedTo)
	c.LeadScore = copyPtr(l.LeadScore)
	c.LeadTemperature = copyPtr(l.LeadTemperature)
	c.PredictedConversionRate = copyPtr(l.PredictedConversionRate)
	c.LastInteraction = copyPtr(l.LastInteraction)
	if l.AISuggestions != nil {
		c.AISuggestions = append([]string(nil), l.AISuggestions...)
	}
	return &c
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
