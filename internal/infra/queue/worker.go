package queue

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/diag-leads/internal/entity"
	"github.com/xavierca1/diag-leads/internal/usecase"
)

// ScoringMessage é o que o serviço de IA publica em lead.scored.
type ScoringMessage struct {
	LeadID string `json:"lead_id"`
	entity.LeadScoring
}

type ScoringApplier interface {
	ApplyScoring(ctx context.Context, leadID string, scoring entity.LeadScoring) (*entity.Lead, error)
}

// Consumer é satisfeito por *amqp.Channel.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type ScoringWorker struct {
	Channel Consumer
	Applier ScoringApplier
	Queue   string

	logger *zap.Logger
}

func NewScoringWorker(ch Consumer, applier ScoringApplier) *ScoringWorker {
	return &ScoringWorker{
		Channel: ch,
		Applier: applier,
		Queue:   ScoringQueue,
		logger:  zap.L().With(zap.String("component", "scoring_worker")),
	}
}

// Start consome até o contexto ser cancelado ou o canal fechar.
func (w *ScoringWorker) Start(ctx context.Context) error {
	msgs, err := w.Channel.Consume(
		w.Queue, // fila
		"",      // consumer
		false,   // auto-ack (manual é mais seguro)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return eris.Wrap(err, "falha ao registrar consumidor RabbitMQ")
	}

	w.logger.Info("worker aguardando na fila", zap.String("queue", w.Queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return eris.New("canal de consumo fechado")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *ScoringWorker) handle(ctx context.Context, d amqp.Delivery) {
	var msg ScoringMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.LeadID == "" {
		w.logger.Warn("mensagem de scoring inválida", zap.Error(err))
		// Mensagem podre: vai para a DLQ sem requeue
		_ = d.Nack(false, false)
		return
	}

	_, err := w.Applier.ApplyScoring(ctx, msg.LeadID, msg.LeadScoring)
	switch {
	case err == nil:
		w.logger.Debug("scoring aplicado", zap.String("lead_id", msg.LeadID))
		_ = d.Ack(false)
	case usecase.IsDomainError(err):
		// Repetir não resolve: lead inexistente ou payload fora da faixa
		w.logger.Warn("scoring rejeitado", zap.String("lead_id", msg.LeadID), zap.Error(err))
		_ = d.Nack(false, false)
	case !d.Redelivered:
		w.logger.Warn("falha temporária, devolvendo para a fila", zap.String("lead_id", msg.LeadID), zap.Error(err))
		_ = d.Nack(false, true)
	default:
		w.logger.Error("falha repetida, mandando para a DLQ", zap.String("lead_id", msg.LeadID), zap.Error(err))
		_ = d.Nack(false, false)
	}
}
