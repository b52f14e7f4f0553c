package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 3 * time.Second

// Publisher is the part of an AMQP channel the handoff uses
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPHandoff publishes orders to a topic exchange for an order service to pick up
type AMQPHandoff struct {
	pub        Publisher
	exchange   string
	routingKey string
	logger     *zap.Logger
	close      func() error
}

// NewAMQPHandoff creates a handoff on an open channel
func NewAMQPHandoff(pub Publisher, exchange, routingKey string, logger *zap.Logger) *AMQPHandoff {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPHandoff{
		pub:        pub,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger.Named("checkout.amqp"),
	}
}

// DialAMQP connects to the broker, declares the exchange and returns a
// handoff that owns the connection
func DialAMQP(url, exchange, routingKey string, logger *zap.Logger) (*AMQPHandoff, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	h := NewAMQPHandoff(ch, exchange, routingKey, logger)
	h.close = func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return h, nil
}

// Name implements Handoff
func (h *AMQPHandoff) Name() string { return "amqp" }

// Send implements Handoff. The returned reference is the message id.
func (h *AMQPHandoff) Send(ctx context.Context, order Order) (string, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msgID := order.ID.String()
	err = h.pub.PublishWithContext(pubCtx, h.exchange, h.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msgID,
		Timestamp:    order.CreatedAt,
		Type:         "OrderPlaced",
		Body:         body,
	})
	if err != nil {
		return "", fmt.Errorf("publish order: %w", err)
	}

	h.logger.Info("order published",
		zap.String("order_id", msgID),
		zap.String("exchange", h.exchange),
		zap.String("routing_key", h.routingKey),
	)
	return msgID, nil
}

// Close releases the broker connection when the handoff owns one
func (h *AMQPHandoff) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}
