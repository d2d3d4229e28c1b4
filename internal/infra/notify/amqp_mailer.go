package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*AMQPMailer)(nil)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp091.Publishing) error
	Close() error
}

// RabbitPublisher publishes to one durable direct exchange.
type RabbitPublisher struct {
	conn     *amqp091.Connection
	exchange string
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if exchange != "" {
		if err := ch.ExchangeDeclare(
			exchange,
			"direct",
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			conn.Close()
			return nil, fmt.Errorf("declare exchange: %w", err)
		}
	}

	return &RabbitPublisher{conn: conn, exchange: exchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, msg amqp091.Publishing) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	return ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
}

func (p *RabbitPublisher) Close() error {
	return p.conn.Close()
}

// emailEnvelope is the message a mail relay consumes.
type emailEnvelope struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	Template string `json:"template"`
	OrderID  string `json:"order_id,omitempty"`
	EventID  string `json:"event_id,omitempty"`
}

// AMQPMailer hands rendered e-mails to a relay over RabbitMQ.
type AMQPMailer struct {
	pub        Publisher
	routingKey string
	from       string
	now        func() time.Time
}

func NewAMQPMailer(pub Publisher, routingKey, from string) *AMQPMailer {
	return &AMQPMailer{pub: pub, routingKey: routingKey, from: from, now: time.Now}
}

func (m *AMQPMailer) Name() string { return "amqp" }

func (m *AMQPMailer) Send(ctx context.Context, msg *model.OutboundEmail) error {
	body, err := json.Marshal(emailEnvelope{
		From:     m.from,
		To:       msg.To,
		Subject:  msg.Subject,
		HTMLBody: msg.HTMLBody,
		Template: string(msg.Template),
		OrderID:  msg.OrderID,
		EventID:  msg.EventID,
	})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}
	err = m.pub.Publish(ctx, m.routingKey, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    messageID(msg),
		Timestamp:    m.now(),
		Type:         string(msg.Template),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish email: %w", err)
	}
	return nil
}

// messageID lets the relay drop a repeat of the same e-mail for the same event.
func messageID(msg *model.OutboundEmail) string {
	if msg.EventID == "" {
		return ""
	}
	return msg.EventID + ":" + string(msg.Template) + ":" + msg.To
}
