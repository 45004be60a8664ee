package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/diag-leads/internal/entity"
	"github.com/xavierca1/diag-leads/internal/usecase"
)

type StaleLeadWorker struct {
	repo         entity.LeadRepositoryInterface
	notifier     usecase.Notifier
	staleAfter   time.Duration
	tickInterval time.Duration
	now          func() time.Time
	logger       *zap.Logger

	// última atividade já avisada por lead, para não repetir o aviso a cada tick
	notified map[string]time.Time
}

func NewStaleLeadWorker(repo entity.LeadRepositoryInterface, notifier usecase.Notifier, staleAfter, tickInterval time.Duration) *StaleLeadWorker {
	return &StaleLeadWorker{
		repo:         repo,
		notifier:     notifier,
		staleAfter:   staleAfter,   // 72h por padrão
		tickInterval: tickInterval, // 1h por padrão
		now:          func() time.Time { return time.Now().UTC() },
		logger:       zap.L().With(zap.String("component", "stale_lead_worker")),
		notified:     make(map[string]time.Time),
	}
}

// Start roda até o contexto ser cancelado.
func (w *StaleLeadWorker) Start(ctx context.Context) error {
	w.logger.Info("worker de leads parados iniciado",
		zap.Duration("stale_after", w.staleAfter),
		zap.Duration("tick", w.tickInterval),
	)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker de leads parados encerrado")
			return nil
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce avisa cada lead aberto sem atividade há mais de staleAfter. Devolve quantos avisos saíram.
func (w *StaleLeadWorker) RunOnce(ctx context.Context) int {
	now := w.now()
	leads, err := w.repo.ListStale(ctx, now.Add(-w.staleAfter))
	if err != nil {
		w.logger.Error("erro ao buscar leads parados", zap.Error(err))
		return 0
	}

	seen := make(map[string]bool, len(leads))
	sent := 0
	for _, lead := range leads {
		seen[lead.ID] = true
		activity := lead.LastActivity()
		if last, ok := w.notified[lead.ID]; ok && last.Equal(activity) {
			continue
		}

		err := w.notifier.Notify(ctx, entity.LeadEvent{
			Type:       entity.EventLeadStale,
			LeadID:     lead.ID,
			NewStatus:  lead.Status,
			AssignedTo: deref(lead.AssignedTo),
			Lead:       lead,
			OccurredAt: now,
		})
		if err != nil {
			w.logger.Warn("falha ao avisar lead parado", zap.String("lead_id", lead.ID), zap.Error(err))
			continue
		}
		w.notified[lead.ID] = activity
		sent++
	}

	// lead que voltou a ter atividade (ou fechou) pode ser avisado de novo no futuro
	for id := range w.notified {
		if !seen[id] {
			delete(w.notified, id)
		}
	}

	if sent > 0 {
		w.logger.Info("leads parados avisados", zap.Int("count", sent))
	}
	return sent
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
