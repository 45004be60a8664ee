package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/diag-leads/internal/entity"
)

const leadColumns = `id, name, email, phone, whatsapp, company, city, state, country, message, source,
	status, assigned_to, lead_score, lead_temperature, predicted_conversion_rate, ai_suggestions,
	ddd, ddi, estado, cidade, pais, continente, regiao,
	interaction_count, last_interaction, created_at, updated_at`

const defaultListLimit = 500

type LeadRepository struct {
	Pool Pool
}

func NewLeadRepository(pool Pool) *LeadRepository {
	return &LeadRepository{Pool: pool}
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	`
	_, err := r.Pool.Exec(ctx, query,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.WhatsApp, lead.Company,
		lead.City, lead.State, lead.Country, lead.Message, lead.Source,
		string(lead.Status), lead.AssignedTo, lead.LeadScore, temperatureArg(lead.LeadTemperature),
		lead.PredictedConversionRate, lead.AISuggestions,
		lead.DDD, lead.DDI, lead.Estado, lead.Cidade, lead.Pais, lead.Continente, lead.Regiao,
		lead.InteractionCount, lead.LastInteraction, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return eris.Wrapf(err, "leads: lead %s already exists", lead.ID)
		}
		return eris.Wrap(err, "leads: insert")
	}
	return nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrLeadNotFound
		}
		return nil, eris.Wrapf(err, "leads: find %s", id)
	}
	return lead, nil
}

func (r *LeadRepository) List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		where = append(where, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if filter.Temperature != nil {
		args = append(args, string(*filter.Temperature))
		where = append(where, fmt.Sprintf("lead_temperature = $%d", len(args)))
	}

	query := `SELECT ` + leadColumns + ` FROM leads`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 && !filter.Unbounded {
		limit = defaultListLimit
	}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	return r.queryLeads(ctx, "list", query, args...)
}

// ListStale devolve leads abertos sem atividade desde before.
func (r *LeadRepository) ListStale(ctx context.Context, before time.Time) ([]*entity.Lead, error) {
	query := `
		SELECT ` + leadColumns + ` FROM leads
		WHERE status NOT IN ('closed_won', 'closed_lost')
		  AND COALESCE(last_interaction, created_at) < $1
		ORDER BY COALESCE(last_interaction, created_at)
	`
	return r.queryLeads(ctx, "list stale", query, before)
}

func (r *LeadRepository) queryLeads(ctx context.Context, op, query string, args ...any) ([]*entity.Lead, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "leads: %s", op)
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "leads: %s scan", op)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "leads: %s rows", op)
	}
	return leads, nil
}

func (r *LeadRepository) ListStatusHistory(ctx context.Context, leadID string) ([]*entity.StatusHistoryEntry, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT id, lead_id, old_status, new_status, reason, notes, changed_by, created_at
		FROM lead_status_history
		WHERE lead_id = $1
		ORDER BY seq ASC
	`, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "leads: list status history")
	}
	defer rows.Close()

	var entries []*entity.StatusHistoryEntry
	for rows.Next() {
		var (
			e         entity.StatusHistoryEntry
			oldStatus *string
			newStatus string
		)
		if err := rows.Scan(&e.ID, &e.LeadID, &oldStatus, &newStatus, &e.Reason, &e.Notes, &e.ChangedBy, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "leads: scan status history")
		}
		if oldStatus != nil {
			s := entity.LeadStatus(*oldStatus)
			e.OldStatus = &s
		}
		e.NewStatus = entity.LeadStatus(newStatus)
		entries = append(entries, &e)
	}
	return entries, eris.Wrap(rows.Err(), "leads: status history rows")
}

func (r *LeadRepository) ListInteractions(ctx context.Context, leadID string) ([]*entity.Interaction, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT id, lead_id, type, content, user_id, created_at
		FROM lead_interactions
		WHERE lead_id = $1
		ORDER BY seq DESC
	`, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "leads: list interactions")
	}
	defer rows.Close()

	var interactions []*entity.Interaction
	for rows.Next() {
		var (
			i    entity.Interaction
			kind string
		)
		if err := rows.Scan(&i.ID, &i.LeadID, &kind, &i.Content, &i.UserID, &i.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "leads: scan interaction")
		}
		i.Type = entity.InteractionType(kind)
		interactions = append(interactions, &i)
	}
	return interactions, eris.Wrap(rows.Err(), "leads: interaction rows")
}

// UpdateScoring é escrita simples de campos, fora da transação do pipeline.
func (r *LeadRepository) UpdateScoring(ctx context.Context, leadID string, scoring entity.LeadScoring) (*entity.Lead, error) {
	row := r.Pool.QueryRow(ctx, `
		UPDATE leads
		SET lead_score = $2, lead_temperature = $3, predicted_conversion_rate = $4,
			ai_suggestions = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		leadID, scoring.LeadScore, temperatureArg(scoring.LeadTemperature),
		scoring.PredictedConversionRate, scoring.AISuggestions,
	)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrLeadNotFound
		}
		return nil, eris.Wrapf(err, "leads: update scoring %s", leadID)
	}
	return lead, nil
}

// WithinTx abre uma transação e desfaz tudo se fn ou o commit falharem.
func (r *LeadRepository) WithinTx(ctx context.Context, fn func(tx entity.LeadTx) error) (err error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "leads: begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(&leadTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "leads: commit")
	}
	return nil
}

type leadTx struct {
	tx pgx.Tx
}

// LockLead usa SELECT ... FOR UPDATE: duas transições no mesmo lead ficam em fila.
func (t *leadTx) LockLead(ctx context.Context, id string) (*entity.Lead, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrLeadNotFound
		}
		return nil, eris.Wrapf(err, "leads: lock %s", id)
	}
	return lead, nil
}

func (t *leadTx) UpdateStatus(ctx context.Context, leadID string, status entity.LeadStatus, at time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE leads SET status = $2, updated_at = $3 WHERE id = $1`,
		leadID, string(status), at,
	)
	if err != nil {
		return eris.Wrap(err, "leads: update status")
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

func (t *leadTx) UpdateAssignee(ctx context.Context, leadID, userID string, at time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE leads SET assigned_to = $2, updated_at = $3 WHERE id = $1`,
		leadID, userID, at,
	)
	if err != nil {
		return eris.Wrap(err, "leads: update assignee")
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

func (t *leadTx) InsertStatusHistory(ctx context.Context, e *entity.StatusHistoryEntry) error {
	var oldStatus *string
	if e.OldStatus != nil {
		s := string(*e.OldStatus)
		oldStatus = &s
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO lead_status_history (id, lead_id, old_status, new_status, reason, notes, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.LeadID, oldStatus, string(e.NewStatus), e.Reason, e.Notes, e.ChangedBy, e.CreatedAt)
	return eris.Wrap(err, "leads: insert status history")
}

func (t *leadTx) InsertInteraction(ctx context.Context, i *entity.Interaction) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO lead_interactions (id, lead_id, type, content, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, i.ID, i.LeadID, string(i.Type), i.Content, i.UserID, i.CreatedAt)
	return eris.Wrap(err, "leads: insert interaction")
}

func (t *leadTx) RegisterInteraction(ctx context.Context, leadID string, at time.Time) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx, `
		UPDATE leads
		SET interaction_count = interaction_count + 1, last_interaction = $2, updated_at = $2
		WHERE id = $1
		RETURNING interaction_count
	`, leadID, at).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, entity.ErrLeadNotFound
		}
		return 0, eris.Wrap(err, "leads: register interaction")
	}
	return count, nil
}

func scanLead(row pgx.Row) (*entity.Lead, error) {
	var (
		l           entity.Lead
		status      string
		temperature *string
	)
	err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.WhatsApp, &l.Company,
		&l.City, &l.State, &l.Country, &l.Message, &l.Source,
		&status, &l.AssignedTo, &l.LeadScore, &temperature,
		&l.PredictedConversionRate, &l.AISuggestions,
		&l.DDD, &l.DDI, &l.Estado, &l.Cidade, &l.Pais, &l.Continente, &l.Regiao,
		&l.InteractionCount, &l.LastInteraction, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Status = entity.LeadStatus(status)
	if temperature != nil {
		t := entity.LeadTemperature(*temperature)
		l.LeadTemperature = &t
	}
	return &l, nil
}

func temperatureArg(t *entity.LeadTemperature) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
