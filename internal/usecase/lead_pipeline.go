package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/diag-leads/internal/entity"
)

// LeadPipeline é dono das transições de status, atribuição e interações de um lead.
// Toda escrita passa por uma transação do repositório; notificações só saem depois do commit.
type LeadPipeline struct {
	repo     entity.LeadRepositoryInterface
	users    entity.UserDirectoryInterface
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewLeadPipeline(
	repo entity.LeadRepositoryInterface,
	users entity.UserDirectoryInterface,
	notifier Notifier,
) *LeadPipeline {
	return &LeadPipeline{
		repo:     repo,
		users:    users,
		notifier: notifier,
		logger:   zap.L().With(zap.String("component", "lead_pipeline")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Transition muda o status e grava o histórico na mesma transação.
// Transição para o mesmo status também é registrada.
// Falhas na ordem: lead inexistente, lead encerrado, status inválido.
func (p *LeadPipeline) Transition(ctx context.Context, input TransitionInput) (*entity.Lead, error) {
	if strings.TrimSpace(input.ActingUserID) == "" {
		return nil, NewValidationError("acting user is required")
	}

	var (
		updated   *entity.Lead
		oldStatus entity.LeadStatus
		newStatus entity.LeadStatus
	)
	err := p.repo.WithinTx(ctx, func(tx entity.LeadTx) error {
		lead, err := tx.LockLead(ctx, input.LeadID)
		if err != nil {
			return err
		}
		if lead.Status.IsTerminal() {
			return NewTerminalStateError(string(lead.Status))
		}
		parsed, ok := entity.ParseLeadStatus(input.Status)
		if !ok {
			return NewInvalidStatusError(input.Status)
		}
		newStatus = parsed

		now := p.now()
		oldStatus = lead.Status
		if err := tx.UpdateStatus(ctx, lead.ID, newStatus, now); err != nil {
			return err
		}
		entry := entity.NewStatusHistoryEntry(lead.ID, &oldStatus, newStatus, input.Reason, input.Notes, input.ActingUserID, now)
		if err := tx.InsertStatusHistory(ctx, entry); err != nil {
			return err
		}

		lead.Status = newStatus
		lead.UpdatedAt = now
		updated = lead
		return nil
	})
	if err != nil {
		return nil, p.translate("transition", input.LeadID, err)
	}

	p.logger.Info("status do lead alterado",
		zap.String("lead_id", updated.ID),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(newStatus)),
		zap.String("changed_by", input.ActingUserID),
	)

	old := oldStatus
	p.dispatch(ctx, entity.LeadEvent{
		Type:       entity.EventStatusChanged,
		LeadID:     updated.ID,
		ActorID:    input.ActingUserID,
		OldStatus:  &old,
		NewStatus:  newStatus,
		Lead:       updated,
		OccurredAt: updated.UpdatedAt,
	})
	return updated, nil
}

// Assign troca o responsável. Não gera histórico de status.
func (p *LeadPipeline) Assign(ctx context.Context, input AssignInput) (*entity.Lead, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, NewValidationError("user_id is required")
	}
	if strings.TrimSpace(input.ActingUserID) == "" {
		return nil, NewValidationError("acting user is required")
	}

	if _, err := p.users.FindUser(ctx, input.UserID); err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, NewNotFoundError("usuário não encontrado: "+input.UserID, err)
		}
		return nil, p.translate("assign", input.LeadID, err)
	}

	var updated *entity.Lead
	err := p.repo.WithinTx(ctx, func(tx entity.LeadTx) error {
		lead, err := tx.LockLead(ctx, input.LeadID)
		if err != nil {
			return err
		}
		now := p.now()
		if err := tx.UpdateAssignee(ctx, lead.ID, input.UserID, now); err != nil {
			return err
		}
		assignee := input.UserID
		lead.AssignedTo = &assignee
		lead.UpdatedAt = now
		updated = lead
		return nil
	})
	if err != nil {
		return nil, p.translate("assign", input.LeadID, err)
	}

	p.logger.Info("lead atribuído",
		zap.String("lead_id", updated.ID),
		zap.String("assigned_to", input.UserID),
		zap.String("assigned_by", input.ActingUserID),
	)

	p.dispatch(ctx, entity.LeadEvent{
		Type:       entity.EventLeadAssigned,
		LeadID:     updated.ID,
		ActorID:    input.ActingUserID,
		AssignedTo: input.UserID,
		Lead:       updated,
		OccurredAt: updated.UpdatedAt,
	})
	return updated, nil
}

// AddInteraction é o único caminho que altera interaction_count e last_interaction.
func (p *LeadPipeline) AddInteraction(ctx context.Context, input AddInteractionInput) (*entity.Interaction, error) {
	kind, ok := entity.ParseInteractionType(input.Type)
	if !ok {
		return nil, NewValidationError("invalid interaction type: " + input.Type)
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, NewValidationError("content must not be empty")
	}
	if strings.TrimSpace(input.ActingUserID) == "" {
		return nil, NewValidationError("acting user is required")
	}

	var interaction *entity.Interaction
	err := p.repo.WithinTx(ctx, func(tx entity.LeadTx) error {
		lead, err := tx.LockLead(ctx, input.LeadID)
		if err != nil {
			return err
		}
		now := p.now()
		interaction = entity.NewInteraction(lead.ID, kind, content, input.ActingUserID, now)
		if err := tx.InsertInteraction(ctx, interaction); err != nil {
			return err
		}
		_, err = tx.RegisterInteraction(ctx, lead.ID, now)
		return err
	})
	if err != nil {
		return nil, p.translate("add_interaction", input.LeadID, err)
	}

	p.dispatch(ctx, entity.LeadEvent{
		Type:       entity.EventInteractionAdded,
		LeadID:     interaction.LeadID,
		ActorID:    input.ActingUserID,
		OccurredAt: interaction.CreatedAt,
	})
	return interaction, nil
}

// ApplyScoring grava o snapshot do serviço de IA. Nunca mexe em status.
func (p *LeadPipeline) ApplyScoring(ctx context.Context, leadID string, scoring entity.LeadScoring) (*entity.Lead, error) {
	if err := foldValidationErrors(ValidateScoring(scoring)); err != nil {
		return nil, err
	}

	lead, err := p.repo.UpdateScoring(ctx, leadID, scoring)
	if err != nil {
		return nil, p.translate("apply_scoring", leadID, err)
	}

	p.logger.Debug("scoring aplicado", zap.String("lead_id", leadID))
	return lead, nil
}

func (p *LeadPipeline) GetLeadDetail(ctx context.Context, leadID string) (*LeadDetail, error) {
	lead, err := p.repo.FindByID(ctx, leadID)
	if err != nil {
		return nil, p.translate("get_lead", leadID, err)
	}
	history, err := p.repo.ListStatusHistory(ctx, leadID)
	if err != nil {
		return nil, p.translate("get_lead", leadID, err)
	}
	interactions, err := p.repo.ListInteractions(ctx, leadID)
	if err != nil {
		return nil, p.translate("get_lead", leadID, err)
	}
	return &LeadDetail{
		Lead:          lead,
		StatusHistory: history,
		Interactions:  interactions,
	}, nil
}

func (p *LeadPipeline) ListLeads(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	leads, err := p.repo.List(ctx, filter)
	if err != nil {
		return nil, p.translate("list_leads", "", err)
	}
	return leads, nil
}

// ListForStats devolve todos os leads do filtro, sem o teto da listagem.
// Alimenta os painéis de estatística e distribuição geográfica.
func (p *LeadPipeline) ListForStats(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	filter.Unbounded = true
	leads, err := p.repo.List(ctx, filter)
	if err != nil {
		return nil, p.translate("list_for_stats", "", err)
	}
	return leads, nil
}

// translate converte erros do repositório na taxonomia do domínio.
func (p *LeadPipeline) translate(op, leadID string, err error) error {
	if IsDomainError(err) {
		return err
	}
	if errors.Is(err, entity.ErrLeadNotFound) {
		return NewNotFoundError("lead não encontrado: "+leadID, err)
	}
	if errors.Is(err, entity.ErrUserNotFound) {
		return NewNotFoundError("usuário não encontrado", err)
	}

	p.logger.Error("erro de armazenamento",
		zap.String("operation", op),
		zap.String("lead_id", leadID),
		zap.Error(err),
	)
	return &TechnicalError{Code: CodeDatabase, Message: "erro ao acessar o armazenamento de leads", Err: err}
}

func (p *LeadPipeline) dispatch(ctx context.Context, event entity.LeadEvent) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(context.WithoutCancel(ctx), event); err != nil {
		p.logger.Warn("falha ao notificar evento (ignorada)",
			zap.String("event", string(event.Type)),
			zap.String("lead_id", event.LeadID),
			zap.Error(err),
		)
	}
}
