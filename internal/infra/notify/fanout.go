// Package notify distribui cada evento de lead para vários destinos (fila, websocket, e-mail).
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/diag-leads/internal/entity"
	"github.com/xavierca1/diag-leads/internal/usecase"
)

const sinkTimeout = 5 * time.Second

type Sink struct {
	Name     string
	Notifier usecase.Notifier
}

// Fanout entrega para todos os destinos, em ordem. Falha de um não impede os outros
// e nunca volta para o chamador.
type Fanout struct {
	sinks  []Sink
	logger *zap.Logger
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{
		sinks:  sinks,
		logger: zap.L().With(zap.String("component", "notify")),
	}
}

func (f *Fanout) Add(name string, n usecase.Notifier) {
	f.sinks = append(f.sinks, Sink{Name: name, Notifier: n})
}

func (f *Fanout) Notify(ctx context.Context, event entity.LeadEvent) error {
	for _, sink := range f.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		err := sink.Notifier.Notify(sinkCtx, event)
		cancel()
		if err != nil {
			f.logger.Warn("falha ao notificar",
				zap.String("sink", sink.Name),
				zap.String("event", string(event.Type)),
				zap.String("lead_id", event.LeadID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// LogNotifier só registra o evento. Usado quando nenhum destino externo está configurado.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: zap.L().With(zap.String("component", "events"))}
}

func (n *LogNotifier) Notify(ctx context.Context, event entity.LeadEvent) error {
	n.logger.Info("evento de lead",
		zap.String("event", string(event.Type)),
		zap.String("lead_id", event.LeadID),
		zap.String("actor_id", event.ActorID),
	)
	return nil
}
