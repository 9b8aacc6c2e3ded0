package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicbook/clinicbook-api/internal/domain"
	"github.com/clinicbook/clinicbook-api/internal/domain/appointment"
	"github.com/clinicbook/clinicbook-api/internal/domain/doctor"
	"github.com/clinicbook/clinicbook-api/internal/domain/patient"
	"github.com/clinicbook/clinicbook-api/internal/events"
	"github.com/clinicbook/clinicbook-api/internal/scheduling"
)

// BookingLocker serializes the availability check and the write against
// other writers for the same doctor or the same patient. Without it two
// concurrent bookings sharing either owner can both observe "free" and both
// commit, breaking the no-overlap invariant.
type BookingLocker interface {
	WithBookingLock(ctx context.Context, doctorID, patientID uuid.UUID, fn func(ctx context.Context) error) error
}

// SchedulingDefaults are the configured fallbacks threaded in at
// construction rather than read from ambient state.
type SchedulingDefaults struct {
	SlotMinutes       int
	DurationMins      int
	WorkStart         scheduling.ClockTime
	WorkEnd           scheduling.ClockTime
	Zone              *time.Location
	AutoAdjustRetries int
}

// BookingResult pairs the persisted appointment with the auto-adjust flag so
// callers know the booked time may differ from the request.
type BookingResult struct {
	Appointment  *appointment.Appointment
	AutoAdjusted bool
}

type AppointmentService struct {
	repo     appointment.Repository
	engine   *scheduling.Engine
	patients PatientDirectory
	doctors  DoctorDirectory
	events   events.Publisher
	locker   BookingLocker
	defaults SchedulingDefaults
	log      *zap.Logger
}

func NewAppointmentService(
	repo appointment.Repository,
	engine *scheduling.Engine,
	patients PatientDirectory,
	doctors DoctorDirectory,
	publisher events.Publisher,
	locker BookingLocker,
	defaults SchedulingDefaults,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		repo:     repo,
		engine:   engine,
		patients: patients,
		doctors:  doctors,
		events:   publisher,
		locker:   locker,
		defaults: defaults,
		log:      log,
	}
}

// Book creates an appointment from an absolute start plus a duration. When
// the requested interval is busy it shifts forward to the next candidate slot
// (attempt budget from config) instead of failing; the result is then marked
// auto-adjusted and starts life as rescheduled.
func (s *AppointmentService) Book(ctx context.Context, cmd *appointment.CreateCommand) (*BookingResult, error) {
	durationMins, err := normalizeDuration(cmd.DurationMins, s.defaults.DurationMins)
	if err != nil {
		return nil, err
	}
	if err := validateBookingFields(cmd.Specialty, cmd.Notes); err != nil {
		return nil, err
	}
	if cmd.StartAt.IsZero() {
		return nil, appointment.ErrInvalidInterval
	}

	doc, err := s.resolveDoctor(ctx, cmd.DoctorID, cmd.Specialty)
	if err != nil {
		return nil, err
	}
	if err := s.verifyPatient(ctx, cmd.PatientID); err != nil {
		return nil, err
	}

	start := cmd.StartAt
	end := start.Add(time.Duration(durationMins) * time.Minute)
	duration := time.Duration(durationMins) * time.Minute

	a := &appointment.Appointment{
		PatientID: cmd.PatientID,
		DoctorID:  doc.ID,
		Specialty: cmd.Specialty,
		Notes:     cmd.Notes,
	}
	auto := false

	err = s.locker.WithBookingLock(ctx, doc.ID, cmd.PatientID, func(ctx context.Context) error {
		free, err := s.engine.IsFree(ctx, doc.ID, cmd.PatientID, start, end, nil)
		if err != nil {
			return err
		}
		if !free {
			iv, found, err := s.engine.NextAvailable(ctx, doc.ID, cmd.PatientID, start, duration, s.defaults.AutoAdjustRetries)
			if err != nil {
				return err
			}
			if !found {
				// Best-effort fallback: book the last candidate anyway and
				// flag it, rather than failing the request.
				s.log.Warn("auto-adjust budget exhausted, booking last candidate",
					zap.String("doctor_id", doc.ID.String()),
					zap.Time("start", iv.Start),
				)
			}
			start, end = iv.Start, iv.End
			auto = true
		}

		a.StartAt = start
		a.EndAt = end
		if auto {
			a.Status = appointment.StatusRescheduled
		} else {
			a.Status = appointment.StatusScheduled
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("booking appointment: %w", err)
	}

	s.events.Publish(ctx, events.TypeAppointmentCreated, toPayload(a, auto))
	return &BookingResult{Appointment: a, AutoAdjusted: auto}, nil
}

// BookExact creates an appointment from a civil date, wall-clock time and
// named zone. This is the strict path behind slot-picking UIs: if the
// interval is occupied it fails instead of shifting.
func (s *AppointmentService) BookExact(ctx context.Context, cmd *appointment.CreateByDateCommand) (*BookingResult, error) {
	durationMins, err := normalizeDuration(cmd.DurationMins, s.defaults.DurationMins)
	if err != nil {
		return nil, err
	}
	if err := validateBookingFields(cmd.Specialty, cmd.Notes); err != nil {
		return nil, err
	}
	// time.Date would silently normalize 25:90 onto the next civil day;
	// out-of-range wall-clock input is a malformed request.
	if cmd.Hour < 0 || cmd.Hour > 23 || cmd.Minute < 0 || cmd.Minute > 59 {
		return nil, fmt.Errorf("%w: %02d:%02d is not a valid wall-clock time", appointment.ErrInvalidInterval, cmd.Hour, cmd.Minute)
	}

	loc := s.defaults.Zone
	if cmd.Zone != "" {
		loc, err = time.LoadLocation(cmd.Zone)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", appointment.ErrUnknownTimeZone, cmd.Zone)
		}
	}
	start := time.Date(cmd.Date.Year(), cmd.Date.Month(), cmd.Date.Day(), cmd.Hour, cmd.Minute, 0, 0, loc)
	end := start.Add(time.Duration(durationMins) * time.Minute)

	doc, err := s.resolveDoctor(ctx, cmd.DoctorID, cmd.Specialty)
	if err != nil {
		return nil, err
	}
	if err := s.verifyPatient(ctx, cmd.PatientID); err != nil {
		return nil, err
	}

	a := &appointment.Appointment{
		PatientID: cmd.PatientID,
		DoctorID:  doc.ID,
		Specialty: cmd.Specialty,
		StartAt:   start,
		EndAt:     end,
		Status:    appointment.StatusScheduled,
		Notes:     cmd.Notes,
	}

	err = s.locker.WithBookingLock(ctx, doc.ID, cmd.PatientID, func(ctx context.Context) error {
		free, err := s.engine.IsFree(ctx, doc.ID, cmd.PatientID, start, end, nil)
		if err != nil {
			return err
		}
		if !free {
			return appointment.ErrIntervalOccupied
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.TypeAppointmentCreated, toPayload(a, false))
	return &BookingResult{Appointment: a}, nil
}

func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AppointmentService) List(ctx context.Context, q *appointment.ListQuery) (*appointment.PagedAppointments, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}

// Reschedule moves an appointment, defaulting doctor, start and duration to
// their current values. The appointment's own row is excluded from the
// overlap check so moving within one's own slot never conflicts with itself.
func (s *AppointmentService) Reschedule(ctx context.Context, id uuid.UUID, cmd *appointment.RescheduleCommand) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.CanTransitionTo(appointment.StatusRescheduled) {
		return nil, appointment.ErrInvalidStatusChange
	}

	doctorID := a.DoctorID
	if cmd.DoctorID != nil && *cmd.DoctorID != a.DoctorID {
		doc, err := s.doctors.Get(ctx, *cmd.DoctorID)
		if err != nil {
			return nil, err
		}
		if doc.Specialty != a.Specialty {
			return nil, doctor.ErrSpecialtyMismatch
		}
		doctorID = doc.ID
	}

	start := a.StartAt
	if cmd.StartAt != nil {
		start = *cmd.StartAt
	}
	durationMins := a.DurationMins()
	if cmd.DurationMins != nil {
		durationMins = *cmd.DurationMins
	}
	if durationMins < appointment.MinDurationMins || durationMins > appointment.MaxDurationMins {
		return nil, appointment.ErrInvalidDuration
	}
	end := start.Add(time.Duration(durationMins) * time.Minute)

	if cmd.Notes != nil {
		if len(*cmd.Notes) > appointment.MaxNotesLen {
			return nil, appointment.ErrNotesTooLong
		}
		a.Notes = *cmd.Notes
	}

	err = s.locker.WithBookingLock(ctx, doctorID, a.PatientID, func(ctx context.Context) error {
		free, err := s.engine.IsFree(ctx, doctorID, a.PatientID, start, end, &a.ID)
		if err != nil {
			return err
		}
		if !free {
			return appointment.ErrIntervalOccupied
		}
		a.DoctorID = doctorID
		a.StartAt = start
		a.EndAt = end
		a.Status = appointment.StatusRescheduled
		return s.repo.Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.TypeAppointmentRescheduled, toPayload(a, false))
	return a, nil
}

// Cancel is terminal and idempotent: cancelling an already cancelled
// appointment succeeds without re-emitting the event. Cancellation never
// consults availability.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == appointment.StatusCancelled {
		return a, nil
	}

	a.Status = appointment.StatusCancelled
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("cancelling appointment: %w", err)
	}

	s.events.Publish(ctx, events.TypeAppointmentCancelled, toPayload(a, false))
	return a, nil
}

// DailyAvailability returns the doctor's reservations and free slots for one
// civil day. Slot step, duration and zone are overridable per request and
// default from config; the working window always comes from config.
func (s *AppointmentService) DailyAvailability(ctx context.Context, doctorID uuid.UUID, date time.Time, zone string, slotMinutes, durationMins int) (*scheduling.DailyAvailability, error) {
	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		return nil, err
	}

	loc := s.defaults.Zone
	if zone != "" {
		var err error
		loc, err = time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", appointment.ErrUnknownTimeZone, zone)
		}
	}
	if slotMinutes <= 0 {
		slotMinutes = s.defaults.SlotMinutes
	}
	if durationMins <= 0 {
		durationMins = s.defaults.DurationMins
	}

	return s.engine.DailyAvailability(ctx, scheduling.DayQuery{
		DoctorID:     doctorID,
		Date:         date,
		Location:     loc,
		SlotMinutes:  slotMinutes,
		WorkStart:    s.defaults.WorkStart,
		WorkEnd:      s.defaults.WorkEnd,
		DurationMins: durationMins,
	})
}

// resolveDoctor returns the explicit doctor when given (verifying the
// specialty matches) or the first doctor registered for the specialty.
func (s *AppointmentService) resolveDoctor(ctx context.Context, id *uuid.UUID, sp domain.Specialty) (*doctor.Doctor, error) {
	if id == nil {
		docs, err := s.doctors.FindBySpecialty(ctx, sp)
		if err != nil {
			return nil, fmt.Errorf("finding doctors by specialty: %w", err)
		}
		if len(docs) == 0 {
			return nil, doctor.ErrNoDoctorForSpecialty
		}
		return docs[0], nil
	}

	doc, err := s.doctors.Get(ctx, *id)
	if err != nil {
		return nil, err
	}
	if doc.Specialty != sp {
		return nil, doctor.ErrSpecialtyMismatch
	}
	return doc, nil
}

func (s *AppointmentService) verifyPatient(ctx context.Context, id uuid.UUID) error {
	p, err := s.patients.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("verifying patient: %w", err)
	}
	if !p.IsActive() {
		return patient.ErrPatientInactive
	}
	return nil
}

func normalizeDuration(mins, fallback int) (int, error) {
	if mins == 0 {
		mins = fallback
	}
	if mins < appointment.MinDurationMins || mins > appointment.MaxDurationMins {
		return 0, appointment.ErrInvalidDuration
	}
	return mins, nil
}

func validateBookingFields(sp domain.Specialty, notes string) error {
	if !sp.IsValid() {
		return appointment.ErrInvalidSpecialty
	}
	if len(notes) > appointment.MaxNotesLen {
		return appointment.ErrNotesTooLong
	}
	return nil
}

func toPayload(a *appointment.Appointment, auto bool) events.AppointmentPayload {
	return events.AppointmentPayload{
		ID:           a.ID,
		PatientID:    a.PatientID,
		DoctorID:     a.DoctorID,
		Specialty:    a.Specialty,
		StartAt:      a.StartAt,
		EndAt:        a.EndAt,
		Status:       a.Status,
		Notes:        a.Notes,
		AutoAdjusted: auto,
	}
}
