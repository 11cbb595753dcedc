// Package notify delivers customer emails. The core hands over a rendered
// message; delivery itself is done by a mail worker consuming the queue.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"pickup-kitchen/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

// channelPublisher is satisfied by *amqp.Channel.
type channelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier queues mail jobs on a RabbitMQ exchange.
type AMQPNotifier struct {
	conn     *amqp.Connection
	ch       channelPublisher
	exchange string
}

const mailRoutingKey = "mail.send"

// DialAMQP connects and declares the notifications exchange.
func DialAMQP(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &AMQPNotifier{conn: conn, ch: ch, exchange: exchange}, nil
}

func NewAMQPNotifier(ch channelPublisher, exchange string) *AMQPNotifier {
	return &AMQPNotifier{ch: ch, exchange: exchange}
}

func (n *AMQPNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	body, err := json.Marshal(Message{To: to, Subject: subject, HTMLBody: htmlBody})
	if err != nil {
		return fmt.Errorf("failed to marshal mail job: %w", err)
	}
	err = n.ch.PublishWithContext(ctx, n.exchange, mailRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish mail job: %w", err)
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}

// LogNotifier only records what would have been sent. Used when no broker
// is configured.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, _ string) error {
	n.log.Info("email_skipped", "no mail transport configured",
		slog.String("to", to), slog.String("subject", subject))
	return nil
}
