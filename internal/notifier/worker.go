package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/clinicbook/clinicbook-api/internal/domain/patient"
	"github.com/clinicbook/clinicbook-api/internal/events"
)

// PatientLookup resolves the recipient of a notification.
type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// envelope mirrors events.Envelope with the payload left raw so it can be
// decoded per event type.
type envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Worker consumes appointment events from the broker and emails the patient.
// It binds its own queue to appointment.* so the API keeps publishing even
// when no worker is running.
type Worker struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	patients PatientLookup
	sender   EmailSender
	log      *zap.Logger
}

func NewWorker(amqpURI, exchange, queue string, patients PatientLookup, sender EmailSender, log *zap.Logger) (*Worker, error) {
	conn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, err
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}
	if err := channel.QueueBind(queue, "appointment.*", exchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}
	return &Worker{
		conn:     conn,
		channel:  channel,
		queue:    queue,
		patients: patients,
		sender:   sender,
		log:      log,
	}, nil
}

// Start consumes until the context is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context) error {
	deliveries, err := w.channel.Consume(w.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("starting consumer: %w", err)
	}
	w.log.Info("notification worker started", zap.String("queue", w.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				return nil
			}
			if err := w.handle(ctx, msg); err != nil {
				w.log.Error("failed to handle event",
					zap.String("routing_key", msg.RoutingKey),
					zap.Error(err),
				)
				msg.Nack(false, false)
				continue
			}
			msg.Ack(false)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg amqp.Delivery) error {
	var env envelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		return fmt.Errorf("decoding envelope: %w", err)
	}
	var p events.AppointmentPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}

	pat, err := w.patients.Get(ctx, p.PatientID)
	if err != nil {
		return fmt.Errorf("looking up patient %s: %w", p.PatientID, err)
	}
	if pat.Email == "" {
		w.log.Warn("patient has no email, skipping notification", zap.String("patient_id", pat.ID.String()))
		return nil
	}

	subject, body := composeEmail(env.Type, p, pat.FirstName+" "+pat.LastName)
	if err := w.sender.Send(ctx, pat.Email, subject, body); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

func (w *Worker) Stop() error {
	if w == nil || w.channel == nil {
		return nil
	}
	if err := w.channel.Close(); err != nil {
		return err
	}
	return w.conn.Close()
}
