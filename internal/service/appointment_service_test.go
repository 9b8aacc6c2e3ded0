package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicbook/clinicbook-api/internal/domain"
	"github.com/clinicbook/clinicbook-api/internal/domain/appointment"
	"github.com/clinicbook/clinicbook-api/internal/domain/doctor"
	"github.com/clinicbook/clinicbook-api/internal/domain/patient"
	"github.com/clinicbook/clinicbook-api/internal/scheduling"
)

// ---------- Fakes ----------

type fakeApptRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*appointment.Appointment
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{appts: make(map[uuid.UUID]*appointment.Appointment)}
}

func (r *fakeApptRepo) Create(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = uuid.New()
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	r.appts[a.ID] = &cp
	return nil
}

func (r *fakeApptRepo) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeApptRepo) Update(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appts[a.ID]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	a.UpdatedAt = time.Now()
	cp := *a
	r.appts[a.ID] = &cp
	return nil
}

func (r *fakeApptRepo) UpdateStatus(ctx context.Context, a *appointment.Appointment) error {
	return r.Update(ctx, a)
}

func (r *fakeApptRepo) List(_ context.Context, q *appointment.ListQuery) (*appointment.PagedAppointments, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range r.appts {
		if q.DoctorID != nil && a.DoctorID != *q.DoctorID {
			continue
		}
		if q.PatientID != nil && a.PatientID != *q.PatientID {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return &appointment.PagedAppointments{
		Appointments: out,
		TotalCount:   int64(len(out)),
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   1,
	}, nil
}

func (r *fakeApptRepo) DoctorHasOverlap(_ context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appts {
		if a.DoctorID != doctorID || !a.Status.IsActive() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeApptRepo) PatientHasOverlap(_ context.Context, patientID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appts {
		if a.PatientID != patientID || !a.Status.IsActive() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeApptRepo) ListByDoctorBetween(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range r.appts {
		if a.DoctorID != doctorID || !a.Status.IsActive() {
			continue
		}
		if a.StartAt.Before(from) || !a.StartAt.Before(to) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (r *fakeApptRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.appts)
}

type fakePatients struct {
	patients map[uuid.UUID]*patient.Patient
}

func (f *fakePatients) Get(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return p, nil
}

type fakeDoctors struct {
	doctors map[uuid.UUID]*doctor.Doctor
}

func (f *fakeDoctors) Get(_ context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, doctor.ErrDoctorNotFound
	}
	return d, nil
}

func (f *fakeDoctors) FindBySpecialty(_ context.Context, sp domain.Specialty) ([]*doctor.Doctor, error) {
	var out []*doctor.Doctor
	for _, d := range f.doctors {
		if d.Specialty == sp {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	return out, nil
}

type capturedEvent struct {
	Type    string
	Payload any
}

type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *capturePublisher) Publish(_ context.Context, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Type: eventType, Payload: payload})
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// passLocker runs the critical section directly; lock semantics are the
// postgres repository's concern.
type passLocker struct{}

func (passLocker) WithBookingLock(ctx context.Context, _, _ uuid.UUID, fn func(context.Context) error) error {
	return fn(ctx)
}

// recordLocker remembers which owners each critical section asked to lock.
type recordLocker struct {
	doctorIDs  []uuid.UUID
	patientIDs []uuid.UUID
}

func (l *recordLocker) WithBookingLock(ctx context.Context, doctorID, patientID uuid.UUID, fn func(context.Context) error) error {
	l.doctorIDs = append(l.doctorIDs, doctorID)
	l.patientIDs = append(l.patientIDs, patientID)
	return fn(ctx)
}

// ---------- Fixture ----------

type fixture struct {
	svc     *AppointmentService
	repo    *fakeApptRepo
	pub     *capturePublisher
	patient *patient.Patient
	doctor  *doctor.Doctor
	altDoc  *doctor.Doctor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p := &patient.Patient{ID: uuid.New(), FirstName: "Ana", LastName: "Reyes", Email: "ana@example.com", Status: patient.StatusActive}
	d := &doctor.Doctor{ID: uuid.New(), FirstName: "Luis", LastName: "Acosta", Specialty: domain.SpecialtyCardiology}
	alt := &doctor.Doctor{ID: uuid.New(), FirstName: "Mara", LastName: "Benitez", Specialty: domain.SpecialtyCardiology}

	repo := newFakeApptRepo()
	pub := &capturePublisher{}
	engine := scheduling.NewEngine(repo, 30*time.Minute)
	svc := NewAppointmentService(
		repo,
		engine,
		&fakePatients{patients: map[uuid.UUID]*patient.Patient{p.ID: p}},
		&fakeDoctors{doctors: map[uuid.UUID]*doctor.Doctor{d.ID: d, alt.ID: alt}},
		pub,
		passLocker{},
		SchedulingDefaults{
			SlotMinutes:       30,
			DurationMins:      30,
			WorkStart:         scheduling.ClockTime{Hour: 8},
			WorkEnd:           scheduling.ClockTime{Hour: 17},
			Zone:              time.UTC,
			AutoAdjustRetries: 10,
		},
		zap.NewNop(),
	)
	return &fixture{svc: svc, repo: repo, pub: pub, patient: p, doctor: d, altDoc: alt}
}

func mustBook(t *testing.T, f *fixture, start time.Time) *appointment.Appointment {
	t.Helper()
	res, err := f.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID:    f.patient.ID,
		DoctorID:     &f.doctor.ID,
		Specialty:    domain.SpecialtyCardiology,
		StartAt:      start,
		DurationMins: 30,
	})
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	return res.Appointment
}

func dayAt(hour, min int) time.Time {
	return time.Date(2026, time.March, 9, hour, min, 0, 0, time.UTC)
}

// ---------- Book ----------

func TestBook_FreeInterval(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID:    f.patient.ID,
		DoctorID:     &f.doctor.ID,
		Specialty:    domain.SpecialtyCardiology,
		StartAt:      dayAt(9, 0),
		DurationMins: 30,
		Notes:        "first visit",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := res.Appointment
	if a.Status != appointment.StatusScheduled {
		t.Errorf("status = %s, want scheduled", a.Status)
	}
	if res.AutoAdjusted {
		t.Error("free interval must not be auto-adjusted")
	}
	if !a.EndAt.Equal(dayAt(9, 30)) {
		t.Errorf("end = %s, want 09:30", a.EndAt)
	}
	if got := f.pub.types(); len(got) != 1 || got[0] != "appointment.created" {
		t.Errorf("published events = %v, want [appointment.created]", got)
	}
}

func TestBook_BusyIntervalAutoShifts(t *testing.T) {
	f := newFixture(t)
	mustBook(t, f, dayAt(9, 0)) // occupies 09:00-09:30
	f.pub.events = nil

	otherPatient := &patient.Patient{ID: uuid.New(), FirstName: "Bo", LastName: "Diaz", Status: patient.StatusActive}
	f.svc.patients.(*fakePatients).patients[otherPatient.ID] = otherPatient

	res, err := f.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID:    otherPatient.ID,
		DoctorID:     &f.doctor.ID,
		Specialty:    domain.SpecialtyCardiology,
		StartAt:      dayAt(9, 15),
		DurationMins: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.AutoAdjusted {
		t.Fatal("expected auto-adjustment")
	}
	a := res.Appointment
	if a.Status != appointment.StatusRescheduled {
		t.Errorf("status = %s, want rescheduled", a.Status)
	}
	if !a.StartAt.Equal(dayAt(9, 45)) || !a.EndAt.Equal(dayAt(10, 15)) {
		t.Errorf("booked %s-%s, want 09:45-10:15", a.StartAt, a.EndAt)
	}
}

func TestBook_UnknownPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID:    uuid.New(),
		DoctorID:     &f.doctor.ID,
		Specialty:    domain.SpecialtyCardiology,
		StartAt:      dayAt(9, 0),
		DurationMins: 30,
	})
	if !errors.Is(err, patient.ErrPatientNotFound) {
		t.Fatalf("error = %v, want ErrPatientNotFound", err)
	}
	if f.repo.count() != 0 {
		t.Error("no record may be created when the patient lookup fails")
	}
	if len(f.pub.types()) != 0 {
		t.Error("no event may be emitted when the patient lookup fails")
	}
}

func TestBook_InactivePatient(t *testing.T) {
	f := newFixture(t)
	f.patient.Status = patient.StatusInactive

	_, err := f.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID:    f.patient.ID,
		DoctorID:     &f.doctor.ID,
		Specialty:    domain.SpecialtyCardiology,
		StartAt:      dayAt(9, 0),
		DurationMins: 30,
	})
	if !errors.Is(err, patient.ErrPatientInactive) {
		t.Fatalf("error = %v, want ErrPatientInactive", err)
	}
}

func TestBook_PicksFirstDoctorOfSpecialty(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID:    f.patient.ID,
		Specialty:    domain.SpecialtyCardiology,
		StartAt:      dayAt(9, 0),
		DurationMins: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Acosta sorts before Benitez.
	if res.Appointment.DoctorID != f.doctor.ID {
		t.Errorf("doctor = %s, want the first match for the specialty", res.Appointment.DoctorID)
	}
}

func TestBook_SpecialtyMismatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID:    f.patient.ID,
		DoctorID:     &f.doctor.ID,
		Specialty:    domain.SpecialtyDermatology,
		StartAt:      dayAt(9, 0),
		DurationMins: 30,
	})
	if !errors.Is(err, doctor.ErrSpecialtyMismatch) {
		t.Fatalf("error = %v, want ErrSpecialtyMismatch", err)
	}
}

func TestBook_NoDoctorForSpecialty(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID:    f.patient.ID,
		Specialty:    domain.SpecialtyPediatrics,
		StartAt:      dayAt(9, 0),
		DurationMins: 30,
	})
	if !errors.Is(err, doctor.ErrNoDoctorForSpecialty) {
		t.Fatalf("error = %v, want ErrNoDoctorForSpecialty", err)
	}
}

func TestBook_InvalidDuration(t *testing.T) {
	f := newFixture(t)

	for _, mins := range []int{5, 181, -30} {
		_, err := f.svc.Book(context.Background(), &appointment.CreateCommand{
			PatientID:    f.patient.ID,
			DoctorID:     &f.doctor.ID,
			Specialty:    domain.SpecialtyCardiology,
			StartAt:      dayAt(9, 0),
			DurationMins: mins,
		})
		if !errors.Is(err, appointment.ErrInvalidDuration) {
			t.Errorf("duration %d: error = %v, want ErrInvalidDuration", mins, err)
		}
	}
}

func TestBook_ZeroDurationFallsBackToDefault(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID: f.patient.ID,
		DoctorID:  &f.doctor.ID,
		Specialty: domain.SpecialtyCardiology,
		StartAt:   dayAt(9, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Appointment.DurationMins(); got != 30 {
		t.Errorf("duration = %dm, want the 30m default", got)
	}
}

// ---------- BookExact ----------

func TestBookExact_OccupiedIntervalFails(t *testing.T) {
	f := newFixture(t)
	mustBook(t, f, dayAt(9, 0))
	f.pub.events = nil
	persisted := f.repo.count()

	otherPatient := &patient.Patient{ID: uuid.New(), FirstName: "Bo", LastName: "Diaz", Status: patient.StatusActive}
	f.svc.patients.(*fakePatients).patients[otherPatient.ID] = otherPatient

	_, err := f.svc.BookExact(context.Background(), &appointment.CreateByDateCommand{
		PatientID:    otherPatient.ID,
		DoctorID:     &f.doctor.ID,
		Specialty:    domain.SpecialtyCardiology,
		Date:         dayAt(0, 0),
		Hour:         9,
		Minute:       15,
		DurationMins: 30,
	})
	if !errors.Is(err, appointment.ErrIntervalOccupied) {
		t.Fatalf("error = %v, want ErrIntervalOccupied", err)
	}
	if f.repo.count() != persisted {
		t.Error("strict create must not persist on conflict")
	}
	if len(f.pub.types()) != 0 {
		t.Error("strict create must not emit events on conflict")
	}
}

func TestBookExact_ResolvesZone(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.BookExact(context.Background(), &appointment.CreateByDateCommand{
		PatientID:    f.patient.ID,
		DoctorID:     &f.doctor.ID,
		Specialty:    domain.SpecialtyCardiology,
		Date:         dayAt(0, 0),
		Hour:         10,
		Minute:       0,
		Zone:         "America/Guayaquil", // UTC-5, no DST
		DurationMins: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Appointment.StartAt.UTC(); !got.Equal(dayAt(15, 0)) {
		t.Errorf("start = %s UTC, want 15:00 UTC", got)
	}
	if res.Appointment.Status != appointment.StatusScheduled {
		t.Errorf("status = %s, want scheduled", res.Appointment.Status)
	}
}

func TestBookExact_UnknownZone(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.BookExact(context.Background(), &appointment.CreateByDateCommand{
		PatientID:    f.patient.ID,
		DoctorID:     &f.doctor.ID,
		Specialty:    domain.SpecialtyCardiology,
		Date:         dayAt(0, 0),
		Hour:         10,
		Zone:         "Mars/Olympus",
		DurationMins: 30,
	})
	if !errors.Is(err, appointment.ErrUnknownTimeZone) {
		t.Fatalf("error = %v, want ErrUnknownTimeZone", err)
	}
}

func TestBookExact_RejectsOutOfRangeClock(t *testing.T) {
	f := newFixture(t)

	// 25:90 must be rejected, not normalized onto the next civil day.
	_, err := f.svc.BookExact(context.Background(), &appointment.CreateByDateCommand{
		PatientID:    f.patient.ID,
		DoctorID:     &f.doctor.ID,
		Specialty:    domain.SpecialtyCardiology,
		Date:         dayAt(0, 0),
		Hour:         25,
		Minute:       90,
		DurationMins: 30,
	})
	if !errors.Is(err, appointment.ErrInvalidInterval) {
		t.Fatalf("error = %v, want ErrInvalidInterval", err)
	}
	if f.repo.count() != 0 {
		t.Error("out-of-range wall-clock input must not persist anything")
	}
	if len(f.pub.types()) != 0 {
		t.Error("out-of-range wall-clock input must not emit events")
	}

	for _, tt := range []struct{ hour, minute int }{
		{-1, 0}, {24, 0}, {0, -1}, {0, 60},
	} {
		_, err := f.svc.BookExact(context.Background(), &appointment.CreateByDateCommand{
			PatientID:    f.patient.ID,
			DoctorID:     &f.doctor.ID,
			Specialty:    domain.SpecialtyCardiology,
			Date:         dayAt(0, 0),
			Hour:         tt.hour,
			Minute:       tt.minute,
			DurationMins: 30,
		})
		if !errors.Is(err, appointment.ErrInvalidInterval) {
			t.Errorf("%02d:%02d: error = %v, want ErrInvalidInterval", tt.hour, tt.minute, err)
		}
	}
}

// Every write path must lock both owners of the interval. Locking only the
// doctor would let two bookings for the same patient under different doctors
// race past each other's overlap check.
func TestWritePathsLockDoctorAndPatient(t *testing.T) {
	f := newFixture(t)
	lk := &recordLocker{}
	f.svc.locker = lk

	a := mustBook(t, f, dayAt(9, 0))

	if _, err := f.svc.BookExact(context.Background(), &appointment.CreateByDateCommand{
		PatientID:    f.patient.ID,
		DoctorID:     &f.altDoc.ID,
		Specialty:    domain.SpecialtyCardiology,
		Date:         dayAt(0, 0),
		Hour:         11,
		Minute:       0,
		DurationMins: 30,
	}); err != nil {
		t.Fatalf("strict create: %v", err)
	}

	newStart := dayAt(14, 0)
	if _, err := f.svc.Reschedule(context.Background(), a.ID, &appointment.RescheduleCommand{StartAt: &newStart}); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	if len(lk.doctorIDs) != 3 {
		t.Fatalf("locked %d critical sections, want 3", len(lk.doctorIDs))
	}
	wantDoctors := []uuid.UUID{f.doctor.ID, f.altDoc.ID, f.doctor.ID}
	for i, want := range wantDoctors {
		if lk.doctorIDs[i] != want {
			t.Errorf("write %d locked doctor %s, want %s", i, lk.doctorIDs[i], want)
		}
		if lk.patientIDs[i] != f.patient.ID {
			t.Errorf("write %d locked patient %s, want %s", i, lk.patientIDs[i], f.patient.ID)
		}
	}
}

// ---------- Reschedule ----------

func TestReschedule_WithinOwnSlot(t *testing.T) {
	f := newFixture(t)
	a := mustBook(t, f, dayAt(9, 0))
	f.pub.events = nil

	// 09:15 overlaps the appointment's own 09:00-09:30 interval; the move
	// must still succeed because the row being moved is excluded.
	newStart := dayAt(9, 15)
	got, err := f.svc.Reschedule(context.Background(), a.ID, &appointment.RescheduleCommand{StartAt: &newStart})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != appointment.StatusRescheduled {
		t.Errorf("status = %s, want rescheduled", got.Status)
	}
	if !got.StartAt.Equal(newStart) || !got.EndAt.Equal(dayAt(9, 45)) {
		t.Errorf("moved to %s-%s, want 09:15-09:45", got.StartAt, got.EndAt)
	}
	if got := f.pub.types(); len(got) != 1 || got[0] != "appointment.rescheduled" {
		t.Errorf("published events = %v, want [appointment.rescheduled]", got)
	}
}

func TestReschedule_ConflictWithOtherAppointment(t *testing.T) {
	f := newFixture(t)
	mustBook(t, f, dayAt(9, 0))

	otherPatient := &patient.Patient{ID: uuid.New(), FirstName: "Bo", LastName: "Diaz", Status: patient.StatusActive}
	f.svc.patients.(*fakePatients).patients[otherPatient.ID] = otherPatient
	res, err := f.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID:    otherPatient.ID,
		DoctorID:     &f.doctor.ID,
		Specialty:    domain.SpecialtyCardiology,
		StartAt:      dayAt(10, 0),
		DurationMins: 30,
	})
	if err != nil {
		t.Fatalf("booking second appointment: %v", err)
	}

	// Move the second appointment onto the first one's interval.
	newStart := dayAt(9, 0)
	_, err = f.svc.Reschedule(context.Background(), res.Appointment.ID, &appointment.RescheduleCommand{StartAt: &newStart})
	if !errors.Is(err, appointment.ErrIntervalOccupied) {
		t.Fatalf("error = %v, want ErrIntervalOccupied", err)
	}
	// The stored row is untouched.
	stored, err := f.svc.Get(context.Background(), res.Appointment.ID)
	if err != nil {
		t.Fatalf("reloading: %v", err)
	}
	if !stored.StartAt.Equal(dayAt(10, 0)) {
		t.Errorf("stored start = %s, want unchanged 10:00", stored.StartAt)
	}
}

func TestReschedule_DefaultsFromCurrentRow(t *testing.T) {
	f := newFixture(t)
	a := mustBook(t, f, dayAt(9, 0))

	newDur := 60
	got, err := f.svc.Reschedule(context.Background(), a.ID, &appointment.RescheduleCommand{DurationMins: &newDur})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.StartAt.Equal(dayAt(9, 0)) {
		t.Errorf("start = %s, want unchanged 09:00", got.StartAt)
	}
	if !got.EndAt.Equal(dayAt(10, 0)) {
		t.Errorf("end = %s, want 10:00 after extending to 60m", got.EndAt)
	}
	if got.DoctorID != f.doctor.ID {
		t.Error("doctor must default to the current value")
	}
}

func TestReschedule_ToDifferentDoctor(t *testing.T) {
	f := newFixture(t)
	a := mustBook(t, f, dayAt(9, 0))

	got, err := f.svc.Reschedule(context.Background(), a.ID, &appointment.RescheduleCommand{DoctorID: &f.altDoc.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DoctorID != f.altDoc.ID {
		t.Errorf("doctor = %s, want the new doctor", got.DoctorID)
	}
}

func TestReschedule_MissingAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Reschedule(context.Background(), uuid.New(), &appointment.RescheduleCommand{})
	if !errors.Is(err, appointment.ErrAppointmentNotFound) {
		t.Fatalf("error = %v, want ErrAppointmentNotFound", err)
	}
}

func TestReschedule_CancelledAppointment(t *testing.T) {
	f := newFixture(t)
	a := mustBook(t, f, dayAt(9, 0))
	if _, err := f.svc.Cancel(context.Background(), a.ID); err != nil {
		t.Fatalf("cancelling: %v", err)
	}

	_, err := f.svc.Reschedule(context.Background(), a.ID, &appointment.RescheduleCommand{})
	if !errors.Is(err, appointment.ErrInvalidStatusChange) {
		t.Fatalf("error = %v, want ErrInvalidStatusChange", err)
	}
}

// ---------- Cancel ----------

func TestCancel_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	a := mustBook(t, f, dayAt(9, 0))
	f.pub.events = nil

	first, err := f.svc.Cancel(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if first.Status != appointment.StatusCancelled {
		t.Errorf("status = %s, want cancelled", first.Status)
	}

	second, err := f.svc.Cancel(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("second cancel must be a no-op success, got %v", err)
	}
	if second.Status != appointment.StatusCancelled {
		t.Errorf("status after second cancel = %s, want cancelled", second.Status)
	}
	if got := f.pub.types(); len(got) != 1 {
		t.Errorf("cancel event emitted %d times, want exactly once", len(got))
	}
}

func TestCancel_FreesTheInterval(t *testing.T) {
	f := newFixture(t)
	a := mustBook(t, f, dayAt(9, 0))
	if _, err := f.svc.Cancel(context.Background(), a.ID); err != nil {
		t.Fatalf("cancelling: %v", err)
	}

	otherPatient := &patient.Patient{ID: uuid.New(), FirstName: "Bo", LastName: "Diaz", Status: patient.StatusActive}
	f.svc.patients.(*fakePatients).patients[otherPatient.ID] = otherPatient

	res, err := f.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID:    otherPatient.ID,
		DoctorID:     &f.doctor.ID,
		Specialty:    domain.SpecialtyCardiology,
		StartAt:      dayAt(9, 0),
		DurationMins: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AutoAdjusted {
		t.Error("cancelled appointments must not block the interval")
	}
}

// ---------- DailyAvailability ----------

func TestDailyAvailability_UnknownDoctor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.DailyAvailability(context.Background(), uuid.New(), dayAt(0, 0), "", 0, 0)
	if !errors.Is(err, doctor.ErrDoctorNotFound) {
		t.Fatalf("error = %v, want ErrDoctorNotFound", err)
	}
}

func TestDailyAvailability_BookedSlotNoLongerOffered(t *testing.T) {
	f := newFixture(t)

	day, err := f.svc.DailyAvailability(context.Background(), f.doctor.ID, dayAt(0, 0), "UTC", 30, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(day.Available) != 18 {
		t.Fatalf("empty day: %d slots, want 18", len(day.Available))
	}
	slot := day.Available[2]

	if _, err := f.svc.BookExact(context.Background(), &appointment.CreateByDateCommand{
		PatientID:    f.patient.ID,
		DoctorID:     &f.doctor.ID,
		Specialty:    domain.SpecialtyCardiology,
		Date:         dayAt(0, 0),
		Hour:         slot.Start.Hour(),
		Minute:       slot.Start.Minute(),
		Zone:         "UTC",
		DurationMins: 30,
	}); err != nil {
		t.Fatalf("booking offered slot: %v", err)
	}

	after, err := f.svc.DailyAvailability(context.Background(), f.doctor.ID, dayAt(0, 0), "UTC", 30, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(after.Available) != 17 {
		t.Fatalf("after booking: %d slots, want 17", len(after.Available))
	}
	for _, iv := range after.Available {
		if iv.Start.Equal(slot.Start) {
			t.Errorf("booked slot %s is still offered", iv.Start)
		}
	}
	if len(after.Reserved) != 1 {
		t.Errorf("reserved = %d entries, want 1", len(after.Reserved))
	}
}
