package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook-api/internal/domain"
)

// State transitions:
//
//	scheduled   → rescheduled | cancelled
//	rescheduled → rescheduled | cancelled
//	cancelled   → (terminal)
//
// Creation may land directly in rescheduled when the requested interval was
// busy and the booking was auto-shifted to the next free slot.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusRescheduled Status = "rescheduled"
	StatusCancelled   Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusRescheduled, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the appointment occupies its interval for overlap
// purposes. Cancelled appointments block nothing.
func (s Status) IsActive() bool {
	return s == StatusScheduled || s == StatusRescheduled
}

const (
	MinDurationMins = 10
	MaxDurationMins = 180
	MaxNotesLen     = 240
)

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID uuid.UUID        `gorm:"column:patient_id;type:uuid;not null;index:idx_patient_start"`
	DoctorID  uuid.UUID        `gorm:"column:doctor_id;type:uuid;not null;index:idx_doctor_start"`
	Specialty domain.Specialty `gorm:"column:specialty;type:varchar(40);not null"`

	StartAt time.Time `gorm:"column:start_at;not null;index:idx_doctor_start;index:idx_patient_start"`
	EndAt   time.Time `gorm:"column:end_at;not null"`

	Status Status `gorm:"column:status;type:varchar(20);not null;default:'scheduled';index"`
	Notes  string `gorm:"column:notes;type:varchar(240)"`
}

func (Appointment) TableName() string {
	return "booking.appointments"
}

func (a *Appointment) DurationMins() int {
	return int(a.EndAt.Sub(a.StartAt) / time.Minute)
}

// Overlaps applies the half-open interval rule against [start, end).
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartAt.Before(end) && start.Before(a.EndAt)
}

func (a *Appointment) CanTransitionTo(next Status) bool {
	allowed := map[Status][]Status{
		StatusScheduled:   {StatusRescheduled, StatusCancelled},
		StatusRescheduled: {StatusRescheduled, StatusCancelled},
		StatusCancelled:   {},
	}
	for _, s := range allowed[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}

type CreateCommand struct {
	PatientID    uuid.UUID
	DoctorID     *uuid.UUID // nil: pick the first doctor of the specialty
	Specialty    domain.Specialty
	StartAt      time.Time
	DurationMins int
	Notes        string
}

// CreateByDateCommand books from a civil date + wall-clock time in a named
// zone. This is the strict path: it never auto-shifts.
type CreateByDateCommand struct {
	PatientID    uuid.UUID
	DoctorID     *uuid.UUID
	Specialty    domain.Specialty
	Date         time.Time // only year/month/day are used
	Hour, Minute int
	Zone         string // empty: configured default
	DurationMins int
	Notes        string
}

type RescheduleCommand struct {
	DoctorID     *uuid.UUID
	StartAt      *time.Time
	DurationMins *int
	Notes        *string
}

type ListQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *Status
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

type PagedAppointments struct {
	Appointments []*Appointment
	TotalCount   int64
	Page         int
	PageSize     int
	TotalPages   int
}
