package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook-api/internal/domain"
	"github.com/clinicbook/clinicbook-api/internal/domain/appointment"
)

const (
	TypeAppointmentCreated     = "appointment.created"
	TypeAppointmentRescheduled = "appointment.rescheduled"
	TypeAppointmentCancelled   = "appointment.cancelled"

	TypePatientCreated = "patient.created"
	TypePatientUpdated = "patient.updated"

	TypeDoctorCreated = "doctor.created"
	TypeDoctorUpdated = "doctor.updated"
	TypeDoctorDeleted = "doctor.deleted"
)

// Publisher fans workflow outcomes out to the message broker. Publishing is
// fire-and-forget: delivery guarantees belong to the broker, and a failed
// publish never fails the operation that produced it.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}

// Envelope is the wire format: the routing key doubles as the type.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// AppointmentPayload is the appointment event body. The notification worker
// consumes it to address and compose patient email.
type AppointmentPayload struct {
	ID           uuid.UUID          `json:"id"`
	PatientID    uuid.UUID          `json:"patientId"`
	DoctorID     uuid.UUID          `json:"doctorId"`
	Specialty    domain.Specialty   `json:"specialty"`
	StartAt      time.Time          `json:"startAt"`
	EndAt        time.Time          `json:"endAt"`
	Status       appointment.Status `json:"status"`
	Notes        string             `json:"notes,omitempty"`
	AutoAdjusted bool               `json:"autoAdjusted"`
}

// NopPublisher drops every event. Used when messaging is disabled and in
// tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) {}
