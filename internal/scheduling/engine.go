package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook-api/internal/domain/appointment"
)

// Store is the slice of the appointment store the engine needs: two overlap
// predicates scoped to active appointments, and a day-window listing. The
// excludeID parameter removes the row being rescheduled from consideration so
// an appointment never conflicts with itself.
type Store interface {
	DoctorHasOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	PatientHasOverlap(ctx context.Context, patientID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	ListByDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*appointment.Appointment, error)
}

const DefaultSlotMinutes = 30

// Engine answers free/busy questions and generates bookable slots. It holds
// no mutable state beyond store queries and is safe for concurrent use.
type Engine struct {
	store    Store
	slotStep time.Duration
}

func NewEngine(store Store, slotStep time.Duration) *Engine {
	if slotStep <= 0 {
		slotStep = DefaultSlotMinutes * time.Minute
	}
	return &Engine{store: store, slotStep: slotStep}
}

// IsFree reports whether both the doctor and the patient are unbooked over
// [start, end). Both checks are required: a doctor cannot double-book and a
// patient cannot be in two places at once.
func (e *Engine) IsFree(ctx context.Context, doctorID, patientID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	busy, err := e.store.DoctorHasOverlap(ctx, doctorID, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("checking doctor overlap: %w", err)
	}
	if busy {
		return false, nil
	}
	busy, err = e.store.PatientHasOverlap(ctx, patientID, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("checking patient overlap: %w", err)
	}
	return !busy, nil
}

// NextAvailable walks forward from preferredStart in slot-step increments
// looking for a free interval of the given duration. When the attempt budget
// runs out it returns the last candidate with found=false; the caller decides
// whether to book it anyway or surface the exhaustion.
func (e *Engine) NextAvailable(ctx context.Context, doctorID, patientID uuid.UUID, preferredStart time.Time, duration time.Duration, maxAttempts int) (Interval, bool, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	start := preferredStart
	for i := 0; i < maxAttempts; i++ {
		end := start.Add(duration)
		free, err := e.IsFree(ctx, doctorID, patientID, start, end, nil)
		if err != nil {
			return Interval{}, false, err
		}
		if free {
			return Interval{Start: start, End: end}, true, nil
		}
		start = start.Add(e.slotStep)
	}
	return Interval{Start: start, End: start.Add(duration)}, false, nil
}

// DayQuery parameterizes DailyAvailability. Zero SlotMinutes or DurationMins
// fall back to the 30-minute default.
type DayQuery struct {
	DoctorID     uuid.UUID
	Date         time.Time // civil date; only year/month/day are used
	Location     *time.Location
	SlotMinutes  int
	WorkStart    ClockTime
	WorkEnd      ClockTime
	DurationMins int
}

// DailyAvailability is derived, never persisted: the day's reservations for a
// doctor plus the free intervals of the requested duration around them.
type DailyAvailability struct {
	Reserved  []*appointment.Appointment
	Available []Interval
}

// DailyAvailability resolves the civil day to absolute instants, fetches the
// doctor's reservations in that window, then walks the working-hours grid in
// slot-step increments keeping every candidate whose full duration fits
// before work end and overlaps no reservation. The scan is O(slots ×
// reservations), both bounded by a single day.
func (e *Engine) DailyAvailability(ctx context.Context, q DayQuery) (*DailyAvailability, error) {
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	slotStep := time.Duration(q.SlotMinutes) * time.Minute
	if slotStep <= 0 {
		slotStep = e.slotStep
	}
	duration := time.Duration(q.DurationMins) * time.Minute
	if duration <= 0 {
		duration = DefaultSlotMinutes * time.Minute
	}

	dayStart := time.Date(q.Date.Year(), q.Date.Month(), q.Date.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	reserved, err := e.store.ListByDoctorBetween(ctx, q.DoctorID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}

	workStart := q.WorkStart.On(q.Date, loc)
	workEnd := q.WorkEnd.On(q.Date, loc)

	var available []Interval
	for s := workStart; !s.Add(duration).After(workEnd); s = s.Add(slotStep) {
		candidate := Interval{Start: s, End: s.Add(duration)}
		if !overlapsAny(candidate, reserved) {
			available = append(available, candidate)
		}
	}

	return &DailyAvailability{Reserved: reserved, Available: available}, nil
}

func overlapsAny(candidate Interval, reserved []*appointment.Appointment) bool {
	for _, a := range reserved {
		if a.Overlaps(candidate.Start, candidate.End) {
			return true
		}
	}
	return false
}
