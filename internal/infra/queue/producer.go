package queue

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/diag-leads/internal/entity"
)

// Publisher é satisfeito por *amqp.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// EventProducer publica os eventos do pipeline no exchange de leads.
type EventProducer struct {
	Ch       Publisher
	Exchange string
}

func NewEventProducer(ch Publisher) *EventProducer {
	return &EventProducer{Ch: ch, Exchange: LeadsExchange}
}

func (p *EventProducer) Notify(ctx context.Context, event entity.LeadEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return eris.Wrap(err, "erro ao converter evento")
	}

	err = p.Ch.PublishWithContext(ctx,
		p.Exchange,         // ex.leads
		string(event.Type), // lead.status_changed, lead.assigned...
		false,              // Mandatory
		false,              // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    uuid.New().String(),
			Type:         string(event.Type),
			Timestamp:    event.OccurredAt,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return eris.Wrapf(err, "falha ao publicar %s no RabbitMQ", event.Type)
	}
	return nil
}
