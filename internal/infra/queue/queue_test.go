package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/diag-leads/internal/entity"
	"github.com/xavierca1/diag-leads/internal/usecase"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// MockPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, msg)
	return args.Error(0)
}

// MockApplier
type MockApplier struct {
	mock.Mock
}

func (m *MockApplier) ApplyScoring(ctx context.Context, leadID string, scoring entity.LeadScoring) (*entity.Lead, error) {
	args := m.Called(ctx, leadID, scoring)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

type ackResult struct {
	acked    bool
	nacked   bool
	requeued bool
}

type fakeAck struct {
	result ackResult
}

func (f *fakeAck) Ack(tag uint64, multiple bool) error {
	f.result.acked = true
	return nil
}

func (f *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	f.result.nacked = true
	f.result.requeued = requeue
	return nil
}

func (f *fakeAck) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

type recordingTopology struct {
	exchanges map[string]string
	queues    map[string]amqp.Table
	bindings  []string
}

func newRecordingTopology() *recordingTopology {
	return &recordingTopology{exchanges: map[string]string{}, queues: map[string]amqp.Table{}}
}

func (r *recordingTopology) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	r.exchanges[name] = kind
	return nil
}

func (r *recordingTopology) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	r.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (r *recordingTopology) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	r.bindings = append(r.bindings, exchange+"/"+key+"->"+name)
	return nil
}

// ============ TOPOLOGIA ============

func TestSetupTopology(t *testing.T) {
	top := newRecordingTopology()

	require.NoError(t, SetupTopology(top))

	assert.Equal(t, "topic", top.exchanges[LeadsExchange])
	assert.Equal(t, "direct", top.exchanges[DLXName])
	assert.Equal(t, DLXName, top.queues[ScoringQueue]["x-dead-letter-exchange"])
	assert.Contains(t, top.bindings, "ex.leads/lead.scored->q.lead_scoring")
	assert.Contains(t, top.bindings, "ex.dlx/lead.scored->q.lead_scoring.dlq")
	assert.Contains(t, top.bindings, "ex.leads/lead.captured->q.lead_scoring_requests")
}

// ============ PRODUTOR ============

func TestEventProducerPublishesWithEventRoutingKey(t *testing.T) {
	pub := new(MockPublisher)
	producer := NewEventProducer(pub)
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	event := entity.LeadEvent{Type: entity.EventLeadAssigned, LeadID: "lead-1", AssignedTo: "seller-1", OccurredAt: at}

	pub.On("PublishWithContext", mock.Anything, "ex.leads", "lead.assigned", mock.MatchedBy(func(msg amqp.Publishing) bool {
		var decoded entity.LeadEvent
		if err := json.Unmarshal(msg.Body, &decoded); err != nil {
			return false
		}
		return decoded.AssignedTo == "seller-1" &&
			msg.DeliveryMode == amqp.Persistent &&
			msg.ContentType == "application/json" &&
			msg.Timestamp.Equal(at)
	})).Return(nil)

	require.NoError(t, producer.Notify(context.Background(), event))
	pub.AssertExpectations(t)
}

func TestEventProducerWrapsError(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(amqp.ErrClosed)

	err := NewEventProducer(pub).Notify(context.Background(), entity.LeadEvent{Type: entity.EventStatusChanged})

	require.Error(t, err)
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

// ============ WORKER DE SCORING ============

func delivery(t *testing.T, body any, redelivered bool) (amqp.Delivery, *fakeAck) {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	ack := &fakeAck{}
	return amqp.Delivery{Acknowledger: ack, Body: raw, Redelivered: redelivered}, ack
}

func TestScoringWorkerAcksOnSuccess(t *testing.T) {
	applier := new(MockApplier)
	w := NewScoringWorker(nil, applier)
	score := 90
	applier.On("ApplyScoring", mock.Anything, "lead-1", mock.MatchedBy(func(s entity.LeadScoring) bool {
		return s.LeadScore != nil && *s.LeadScore == 90
	})).Return(&entity.Lead{ID: "lead-1"}, nil)

	d, ack := delivery(t, ScoringMessage{LeadID: "lead-1", LeadScoring: entity.LeadScoring{LeadScore: &score}}, false)
	w.handle(context.Background(), d)

	assert.Equal(t, ackResult{acked: true}, ack.result)
	applier.AssertExpectations(t)
}

func TestScoringWorkerRejectsMalformed(t *testing.T) {
	applier := new(MockApplier)
	w := NewScoringWorker(nil, applier)

	d, ack := delivery(t, []byte("{não é json"), false)
	w.handle(context.Background(), d)

	assert.Equal(t, ackResult{nacked: true}, ack.result)
	applier.AssertNotCalled(t, "ApplyScoring", mock.Anything, mock.Anything, mock.Anything)

	d, ack = delivery(t, map[string]any{"lead_score": 10}, false)
	w.handle(context.Background(), d)
	assert.Equal(t, ackResult{nacked: true}, ack.result)
}

func TestScoringWorkerDomainErrorGoesToDLQ(t *testing.T) {
	applier := new(MockApplier)
	w := NewScoringWorker(nil, applier)
	applier.On("ApplyScoring", mock.Anything, "nao-existe", mock.Anything).
		Return(nil, usecase.NewNotFoundError("lead não encontrado", entity.ErrLeadNotFound))

	d, ack := delivery(t, ScoringMessage{LeadID: "nao-existe"}, false)
	w.handle(context.Background(), d)

	assert.Equal(t, ackResult{nacked: true}, ack.result)
}

func TestScoringWorkerTechnicalErrorRequeuesOnce(t *testing.T) {
	applier := new(MockApplier)
	w := NewScoringWorker(nil, applier)
	applier.On("ApplyScoring", mock.Anything, "lead-1", mock.Anything).
		Return(nil, &usecase.TechnicalError{Code: usecase.CodeDatabase, Message: "db", Err: errors.New("timeout")})

	d, ack := delivery(t, ScoringMessage{LeadID: "lead-1"}, false)
	w.handle(context.Background(), d)
	assert.Equal(t, ackResult{nacked: true, requeued: true}, ack.result)

	d, ack = delivery(t, ScoringMessage{LeadID: "lead-1"}, true)
	w.handle(context.Background(), d)
	assert.Equal(t, ackResult{nacked: true}, ack.result)
}

type fakeConsumer struct {
	msgs chan amqp.Delivery
}

func (f *fakeConsumer) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.msgs, nil
}

func TestScoringWorkerStartStopsOnCancel(t *testing.T) {
	applier := new(MockApplier)
	applier.On("ApplyScoring", mock.Anything, "lead-1", mock.Anything).Return(&entity.Lead{ID: "lead-1"}, nil)
	consumer := &fakeConsumer{msgs: make(chan amqp.Delivery, 1)}
	w := NewScoringWorker(consumer, applier)

	d, ack := delivery(t, ScoringMessage{LeadID: "lead-1"}, false)
	consumer.msgs <- d

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	assert.Eventually(t, func() bool { return len(consumer.msgs) == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker não parou após cancelamento")
	}
	applier.AssertExpectations(t)
	assert.True(t, ack.result.acked)
}

func TestScoringWorkerStartClosedChannel(t *testing.T) {
	consumer := &fakeConsumer{msgs: make(chan amqp.Delivery)}
	close(consumer.msgs)
	w := NewScoringWorker(consumer, new(MockApplier))

	err := w.Start(context.Background())

	assert.Error(t, err)
}
