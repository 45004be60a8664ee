package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/diag-leads/internal/entity"
	"github.com/xavierca1/diag-leads/internal/usecase"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var leadColumnNames = []string{
	"id", "name", "email", "phone", "whatsapp", "company", "city", "state", "country", "message", "source",
	"status", "assigned_to", "lead_score", "lead_temperature", "predicted_conversion_rate", "ai_suggestions",
	"ddd", "ddi", "estado", "cidade", "pais", "continente", "regiao",
	"interaction_count", "last_interaction", "created_at", "updated_at",
}

var createdAt = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

func leadRows(status string) *pgxmock.Rows {
	score := 72
	temp := "warm"
	rate := 0.35
	return pgxmock.NewRows(leadColumnNames).AddRow(
		"lead-1", "Oficina do Zé", "ze@oficina.com.br", "+5511987654321", "", "Oficina do Zé LTDA",
		"São Paulo", "SP", "Brasil", "", "site",
		status, (*string)(nil), &score, &temp, &rate, []string{"ligar de manhã"},
		"11", "+55", "SP", "São Paulo", "Brasil", "América do Sul", "Sudeste",
		0, (*time.Time)(nil), createdAt, createdAt,
	)
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

// ============ LEITURA ============

func TestFindByID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)

	mock.ExpectQuery("FROM leads WHERE id = \\$1").
		WithArgs("lead-1").
		WillReturnRows(leadRows("qualified"))

	lead, err := repo.FindByID(context.Background(), "lead-1")

	require.NoError(t, err)
	assert.Equal(t, entity.StatusQualified, lead.Status)
	assert.Equal(t, 72, *lead.LeadScore)
	assert.Equal(t, entity.TemperatureWarm, *lead.LeadTemperature)
	assert.Nil(t, lead.AssignedTo)
	assert.Equal(t, "SP", lead.Estado)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)

	mock.ExpectQuery("FROM leads WHERE id = \\$1").
		WithArgs("nao-existe").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "nao-existe")

	assert.ErrorIs(t, err, entity.ErrLeadNotFound)
}

func TestListBuildsFilter(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)
	status := entity.StatusQualified
	temp := entity.TemperatureHot

	mock.ExpectQuery("WHERE status = \\$1 AND lead_temperature = \\$2 ORDER BY created_at DESC LIMIT \\$3").
		WithArgs("qualified", "hot", 25).
		WillReturnRows(leadRows("qualified"))

	leads, err := repo.List(context.Background(), entity.LeadFilter{Status: &status, Temperature: &temp, Limit: 25})

	require.NoError(t, err)
	assert.Len(t, leads, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDefaultLimit(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)

	mock.ExpectQuery("FROM leads ORDER BY created_at DESC LIMIT \\$1").
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows(leadColumnNames))

	leads, err := repo.List(context.Background(), entity.LeadFilter{})

	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUnboundedReturnsEveryLead(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)

	total := defaultListLimit + 100
	rows := pgxmock.NewRows(leadColumnNames)
	for i := 0; i < total; i++ {
		rows.AddRow(
			fmt.Sprintf("lead-%d", i), "Lead", "", "", "", "", "", "", "", "", "site",
			"new", (*string)(nil), (*int)(nil), (*string)(nil), (*float64)(nil), []string(nil),
			"", "", "", "", "", "", "",
			0, (*time.Time)(nil), createdAt, createdAt,
		)
	}
	// sem LIMIT no fim da consulta
	mock.ExpectQuery("FROM leads ORDER BY created_at DESC$").
		WillReturnRows(rows)

	leads, err := repo.List(context.Background(), entity.LeadFilter{Unbounded: true})

	require.NoError(t, err)
	assert.Len(t, leads, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUnboundedKeepsExplicitLimit(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)

	mock.ExpectQuery("ORDER BY created_at DESC LIMIT \\$1").
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows(leadColumnNames))

	_, err := repo.List(context.Background(), entity.LeadFilter{Limit: 50, Unbounded: true})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListStatusHistory(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)
	old := "new"

	mock.ExpectQuery("FROM lead_status_history").
		WithArgs("lead-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "lead_id", "old_status", "new_status", "reason", "notes", "changed_by", "created_at"}).
			AddRow("h1", "lead-1", &old, "contacted", "retorno", "", "admin-1", createdAt))

	entries, err := repo.ListStatusHistory(context.Background(), "lead-1")

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entity.StatusNew, *entries[0].OldStatus)
	assert.Equal(t, entity.StatusContacted, entries[0].NewStatus)
	assert.Equal(t, "admin-1", entries[0].ChangedBy)
}

// ============ ESCRITA ============

func TestCreateDuplicate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)

	mock.ExpectExec("INSERT INTO leads").WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), entity.NewLead("Zé", "ze@example.com", ""))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestUpdateScoringNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)
	score := 10

	mock.ExpectQuery("UPDATE leads").WillReturnError(pgx.ErrNoRows)

	_, err := repo.UpdateScoring(context.Background(), "nao-existe", entity.LeadScoring{LeadScore: &score})

	assert.ErrorIs(t, err, entity.ErrLeadNotFound)
}

// TestTransitionCommitsInOneTransaction - lock, update e histórico na mesma transação
func TestTransitionCommitsInOneTransaction(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)
	pipeline := usecase.NewLeadPipeline(repo, NewUserRepository(mock), nil)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM leads WHERE id = \\$1 FOR UPDATE").
		WithArgs("lead-1").
		WillReturnRows(leadRows("contacted"))
	mock.ExpectExec("UPDATE leads SET status").
		WithArgs("lead-1", "qualified", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO lead_status_history").
		WithArgs(pgxmock.AnyArg(), "lead-1", pgxmock.AnyArg(), "qualified", "bom fit", "", "admin-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	lead, err := pipeline.Transition(context.Background(), usecase.TransitionInput{
		LeadID: "lead-1", Status: "qualified", ActingUserID: "admin-1", Reason: "bom fit",
	})

	require.NoError(t, err)
	assert.Equal(t, entity.StatusQualified, lead.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestTransitionTerminalRollsBack - lead fechado: nada é escrito e a transação é desfeita
func TestTransitionTerminalRollsBack(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)
	pipeline := usecase.NewLeadPipeline(repo, NewUserRepository(mock), nil)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("lead-1").WillReturnRows(leadRows("closed_lost"))
	mock.ExpectRollback()

	_, err := pipeline.Transition(context.Background(), usecase.TransitionInput{
		LeadID: "lead-1", Status: "contacted", ActingUserID: "admin-1",
	})

	assert.True(t, usecase.IsTerminalState(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnHistoryFailure(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE leads SET status").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO lead_status_history").WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx entity.LeadTx) error {
		if err := tx.UpdateStatus(context.Background(), "lead-1", entity.StatusContacted, createdAt); err != nil {
			return err
		}
		old := entity.StatusNew
		return tx.InsertStatusHistory(context.Background(),
			entity.NewStatusHistoryEntry("lead-1", &old, entity.StatusContacted, "", "", "u1", createdAt))
	})

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusMissingRow(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE leads SET status").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx entity.LeadTx) error {
		return tx.UpdateStatus(context.Background(), "nao-existe", entity.StatusContacted, createdAt)
	})

	assert.ErrorIs(t, err, entity.ErrLeadNotFound)
}

func TestAddInteractionIncrementsCounter(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)
	pipeline := usecase.NewLeadPipeline(repo, NewUserRepository(mock), nil)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("lead-1").WillReturnRows(leadRows("contacted"))
	mock.ExpectExec("INSERT INTO lead_interactions").
		WithArgs(pgxmock.AnyArg(), "lead-1", "call", "retornou a ligação", "seller-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SET interaction_count = interaction_count \\+ 1").
		WithArgs("lead-1", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"interaction_count"}).AddRow(1))
	mock.ExpectCommit()

	interaction, err := pipeline.AddInteraction(context.Background(), usecase.AddInteractionInput{
		LeadID: "lead-1", Type: "call", Content: "retornou a ligação", ActingUserID: "seller-1",
	})

	require.NoError(t, err)
	assert.Equal(t, entity.InteractionCall, interaction.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ============ USUÁRIOS ============

func TestFindUser(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("SELECT id, name, email, role FROM users").
		WithArgs("seller-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "role"}).
			AddRow("seller-1", "Vendedora", "vendas@example.com", "sales"))
	mock.ExpectQuery("SELECT id, name, email, role FROM users").
		WithArgs("fantasma").
		WillReturnError(pgx.ErrNoRows)

	u, err := repo.FindUser(context.Background(), "seller-1")
	require.NoError(t, err)
	assert.Equal(t, "vendas@example.com", u.Email)

	_, err = repo.FindUser(context.Background(), "fantasma")
	assert.ErrorIs(t, err, entity.ErrUserNotFound)
}
