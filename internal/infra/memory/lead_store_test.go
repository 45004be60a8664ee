package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/diag-leads/internal/entity"
)

func seedLead(t *testing.T, s *LeadStore, name string, createdAt time.Time) *entity.Lead {
	t.Helper()
	lead := entity.NewLead(name, name+"@example.com", "")
	lead.CreatedAt = createdAt
	lead.UpdatedAt = createdAt
	require.NoError(t, s.Create(context.Background(), lead))
	return lead
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	s := NewLeadStore()
	lead := seedLead(t, s, "ana", time.Now())

	err := s.Create(context.Background(), lead)
	assert.Error(t, err)
}

func TestFindByIDReturnsCopy(t *testing.T) {
	s := NewLeadStore()
	lead := seedLead(t, s, "ana", time.Now())

	found, err := s.FindByID(context.Background(), lead.ID)
	require.NoError(t, err)
	found.Status = entity.StatusClosedWon

	again, err := s.FindByID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNew, again.Status)

	_, err = s.FindByID(context.Background(), "nao-existe")
	assert.ErrorIs(t, err, entity.ErrLeadNotFound)
}

// TestWithinTxRollsBackOnError - erro no meio não deixa escrita parcial
func TestWithinTxRollsBackOnError(t *testing.T) {
	s := NewLeadStore()
	lead := seedLead(t, s, "ana", time.Now())
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(tx entity.LeadTx) error {
		require.NoError(t, tx.UpdateStatus(context.Background(), lead.ID, entity.StatusContacted, time.Now()))
		old := entity.StatusNew
		require.NoError(t, tx.InsertStatusHistory(context.Background(),
			entity.NewStatusHistoryEntry(lead.ID, &old, entity.StatusContacted, "", "", "u1", time.Now())))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found, _ := s.FindByID(context.Background(), lead.ID)
	assert.Equal(t, entity.StatusNew, found.Status)
	history, _ := s.ListStatusHistory(context.Background(), lead.ID)
	assert.Empty(t, history)
}

func TestWithinTxCommits(t *testing.T) {
	s := NewLeadStore()
	lead := seedLead(t, s, "ana", time.Now())
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err := s.WithinTx(context.Background(), func(tx entity.LeadTx) error {
		require.NoError(t, tx.InsertInteraction(context.Background(),
			entity.NewInteraction(lead.ID, entity.InteractionCall, "ligou", "u1", at)))
		count, err := tx.RegisterInteraction(context.Background(), lead.ID, at)
		assert.Equal(t, 1, count)
		return err
	})
	require.NoError(t, err)

	found, _ := s.FindByID(context.Background(), lead.ID)
	assert.Equal(t, 1, found.InteractionCount)
	require.NotNil(t, found.LastInteraction)
	assert.True(t, at.Equal(*found.LastInteraction))
}

func TestListFiltersAndOrders(t *testing.T) {
	s := NewLeadStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	older := seedLead(t, s, "velho", base)
	newer := seedLead(t, s, "novo", base.Add(time.Hour))

	hot := entity.TemperatureHot
	_, err := s.UpdateScoring(context.Background(), older.ID, entity.LeadScoring{LeadTemperature: &hot})
	require.NoError(t, err)

	all, err := s.List(context.Background(), entity.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)

	onlyHot, _ := s.List(context.Background(), entity.LeadFilter{Temperature: &hot})
	require.Len(t, onlyHot, 1)
	assert.Equal(t, older.ID, onlyHot[0].ID)

	limited, _ := s.List(context.Background(), entity.LeadFilter{Limit: 1})
	assert.Len(t, limited, 1)

	contacted := entity.StatusContacted
	none, _ := s.List(context.Background(), entity.LeadFilter{Status: &contacted})
	assert.Empty(t, none)
}

func TestListStaleSkipsTerminalAndRecent(t *testing.T) {
	s := NewLeadStore()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	stale := seedLead(t, s, "parado", now.Add(-100*time.Hour))
	seedLead(t, s, "recente", now.Add(-time.Hour))
	closed := seedLead(t, s, "fechado", now.Add(-200*time.Hour))

	require.NoError(t, s.WithinTx(context.Background(), func(tx entity.LeadTx) error {
		return tx.UpdateStatus(context.Background(), closed.ID, entity.StatusClosedLost, now)
	}))

	leads, err := s.ListStale(context.Background(), now.Add(-72*time.Hour))
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, stale.ID, leads[0].ID)
}

func TestListInteractionsNewestFirst(t *testing.T) {
	s := NewLeadStore()
	lead := seedLead(t, s, "ana", time.Now())
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, content := range []string{"primeira", "segunda"} {
		at := t0.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.WithinTx(context.Background(), func(tx entity.LeadTx) error {
			return tx.InsertInteraction(context.Background(), entity.NewInteraction(lead.ID, entity.InteractionNote, content, "u1", at))
		}))
	}

	items, err := s.ListInteractions(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "segunda", items[0].Content)
	assert.Equal(t, "primeira", items[1].Content)
}

func TestUserDirectory(t *testing.T) {
	d := NewUserDirectory(entity.User{ID: "u1", Name: "Vendedor", Email: "v@example.com"})

	u, err := d.FindUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Vendedor", u.Name)

	_, err = d.FindUser(context.Background(), "u2")
	assert.ErrorIs(t, err, entity.ErrUserNotFound)

	d.Add(entity.User{ID: "u2"})
	_, err = d.FindUser(context.Background(), "u2")
	assert.NoError(t, err)
}
