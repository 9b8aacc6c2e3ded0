package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Update persists interval, doctor, status and notes changes.
	Update(ctx context.Context, a *Appointment) error

	// UpdateStatus persists a status-only transition.
	UpdateStatus(ctx context.Context, a *Appointment) error

	List(ctx context.Context, q *ListQuery) (*PagedAppointments, error)

	// DoctorHasOverlap reports whether the doctor already has an active
	// appointment overlapping [start, end). excludeID, when non-nil, removes
	// the row being moved from consideration so a reschedule does not
	// conflict with itself.
	DoctorHasOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)

	// PatientHasOverlap is the patient-side twin of DoctorHasOverlap.
	PatientHasOverlap(ctx context.Context, patientID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)

	// ListByDoctorBetween returns the doctor's active appointments whose
	// start falls in [from, to), ordered by start.
	ListByDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error)
}
