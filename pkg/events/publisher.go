package events

import (
	"encoding/json"
	"quiz_backend/pkg/logger"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	AnswerRecorded  = "answer.recorded"
	FeedbackAI      = "feedback.ai_attached"
	FeedbackManual  = "feedback.instructor_attached"
	contentTypeJSON = "application/json"
)

// Publisher emits domain events. Publishing is best effort: callers log the
// error and carry on.
type Publisher interface {
	Publish(eventType string, payload interface{}) error
	Close()
}

type envelope struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// AMQPPublisher publishes JSON events to a topic exchange, routed by type.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewAMQPPublisher(amqpURL, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(eventType string, payload interface{}) error {
	body, err := json.Marshal(envelope{Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.Publish(p.exchange, eventType, false, false, amqp.Publishing{
		ContentType: contentTypeJSON,
		Body:        body,
	})
	if err != nil {
		return err
	}
	logger.Log.Debug("Event published", zap.String("type", eventType))
	return nil
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// NopPublisher drops every event. Used when events are disabled and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(string, interface{}) error { return nil }
func (NopPublisher) Close()                            {}
