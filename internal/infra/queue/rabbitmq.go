package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/diag-leads/internal/entity"
)

const (
	LeadsExchange = "ex.leads" // topic: routing key = tipo do evento
	DLXName       = "ex.dlx"   // Dead Letter Exchange

	// Resultado do serviço de IA volta por aqui
	ScoringQueue      = "q.lead_scoring"
	ScoringDLQ        = "q.lead_scoring.dlq"
	ScoringRoutingKey = "lead.scored"

	// Pedido de scoring: o serviço de IA consome leads recém-capturados
	ScoringRequestQueue = "q.lead_scoring_requests"
)

// TopologyChannel é a parte do *amqp.Channel usada para declarar a topologia.
type TopologyChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, eris.Wrap(err, "falha ao conectar no RabbitMQ")
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "falha ao abrir canal")
	}

	if err := SetupTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func (r *RabbitMQ) IsClosed() bool {
	return r.Conn == nil || r.Conn.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.Ch != nil {
		_ = r.Ch.Close()
	}
	if r.Conn != nil {
		return r.Conn.Close()
	}
	return nil
}

// SetupTopology declara exchanges, filas e DLQ. Idempotente.
func SetupTopology(ch TopologyChannel) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return eris.Wrap(err, "declare dlx")
	}
	if _, err := ch.QueueDeclare(ScoringDLQ, true, false, false, false, nil); err != nil {
		return eris.Wrap(err, "declare scoring dlq")
	}
	if err := ch.QueueBind(ScoringDLQ, ScoringRoutingKey, DLXName, false, nil); err != nil {
		return eris.Wrap(err, "bind scoring dlq")
	}

	if err := ch.ExchangeDeclare(LeadsExchange, "topic", true, false, false, false, nil); err != nil {
		return eris.Wrap(err, "declare leads exchange")
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName,           // Se der Nack, manda pra DLX
		"x-dead-letter-routing-key": ScoringRoutingKey, // Com essa chave
	}
	if _, err := ch.QueueDeclare(ScoringQueue, true, false, false, false, args); err != nil {
		return eris.Wrap(err, "declare scoring queue")
	}
	if err := ch.QueueBind(ScoringQueue, ScoringRoutingKey, LeadsExchange, false, nil); err != nil {
		return eris.Wrap(err, "bind scoring queue")
	}

	if _, err := ch.QueueDeclare(ScoringRequestQueue, true, false, false, false, nil); err != nil {
		return eris.Wrap(err, "declare scoring request queue")
	}
	if err := ch.QueueBind(ScoringRequestQueue, string(entity.EventLeadCaptured), LeadsExchange, false, nil); err != nil {
		return eris.Wrap(err, "bind scoring request queue")
	}

	return nil
}
