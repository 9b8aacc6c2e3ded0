package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicbook/clinicbook-api/internal/domain"
	"github.com/clinicbook/clinicbook-api/internal/domain/doctor"
	"github.com/clinicbook/clinicbook-api/internal/domain/patient"
)

type fakeDoctorRepo struct {
	doctors map[uuid.UUID]*doctor.Doctor
}

func newFakeDoctorRepo() *fakeDoctorRepo {
	return &fakeDoctorRepo{doctors: make(map[uuid.UUID]*doctor.Doctor)}
}

func (r *fakeDoctorRepo) Create(_ context.Context, d *doctor.Doctor) error {
	d.ID = uuid.New()
	cp := *d
	r.doctors[d.ID] = &cp
	return nil
}

func (r *fakeDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	d, ok := r.doctors[id]
	if !ok {
		return nil, doctor.ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDoctorRepo) FindBySpecialty(_ context.Context, sp domain.Specialty) ([]*doctor.Doctor, error) {
	var out []*doctor.Doctor
	for _, d := range r.doctors {
		if d.Specialty == sp {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	return out, nil
}

func (r *fakeDoctorRepo) Update(_ context.Context, d *doctor.Doctor) error {
	if _, ok := r.doctors[d.ID]; !ok {
		return doctor.ErrDoctorNotFound
	}
	cp := *d
	r.doctors[d.ID] = &cp
	return nil
}

func (r *fakeDoctorRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.doctors, id)
	return nil
}

func (r *fakeDoctorRepo) List(_ context.Context, q *doctor.ListQuery) (*doctor.PagedDoctors, error) {
	var out []*doctor.Doctor
	for _, d := range r.doctors {
		if q.Specialty != nil && d.Specialty != *q.Specialty {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return &doctor.PagedDoctors{Doctors: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize, TotalPages: 1}, nil
}

func (r *fakeDoctorRepo) ExistsByEmail(_ context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	for _, d := range r.doctors {
		if excludeID != nil && d.ID == *excludeID {
			continue
		}
		if d.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeDoctorRepo) ExistsByLicense(_ context.Context, license string, excludeID *uuid.UUID) (bool, error) {
	for _, d := range r.doctors {
		if excludeID != nil && d.ID == *excludeID {
			continue
		}
		if d.LicenseNumber == license {
			return true, nil
		}
	}
	return false, nil
}

func validDoctorCmd() *doctor.CreateCommand {
	return &doctor.CreateCommand{
		FirstName:     "Luis",
		LastName:      "Acosta",
		Email:         "luis@example.com",
		LicenseNumber: "MED-1001",
		Specialty:     domain.SpecialtyCardiology,
	}
}

func TestDoctorCreate(t *testing.T) {
	pub := &capturePublisher{}
	svc := NewDoctorService(newFakeDoctorRepo(), pub, zap.NewNop())

	d, err := svc.Create(context.Background(), validDoctorCmd())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID == uuid.Nil {
		t.Error("created doctor has no ID")
	}
	if got := pub.types(); len(got) != 1 || got[0] != "doctor.created" {
		t.Errorf("published events = %v, want [doctor.created]", got)
	}
}

func TestDoctorCreate_DuplicateEmail(t *testing.T) {
	svc := NewDoctorService(newFakeDoctorRepo(), &capturePublisher{}, zap.NewNop())
	if _, err := svc.Create(context.Background(), validDoctorCmd()); err != nil {
		t.Fatalf("first create: %v", err)
	}

	dup := validDoctorCmd()
	dup.LicenseNumber = "MED-1002"
	_, err := svc.Create(context.Background(), dup)
	if !errors.Is(err, doctor.ErrEmailTaken) {
		t.Fatalf("error = %v, want ErrEmailTaken", err)
	}
}

func TestDoctorCreate_MissingFields(t *testing.T) {
	svc := NewDoctorService(newFakeDoctorRepo(), &capturePublisher{}, zap.NewNop())

	_, err := svc.Create(context.Background(), &doctor.CreateCommand{Specialty: "sorcery"})
	var validErr *ValidationError
	if !errors.As(err, &validErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if len(validErr.Fields) != 5 {
		t.Errorf("reported %d problems, want all 5 at once: %v", len(validErr.Fields), validErr.Fields)
	}
}

func TestDoctorUpdate_KeepingOwnEmail(t *testing.T) {
	svc := NewDoctorService(newFakeDoctorRepo(), &capturePublisher{}, zap.NewNop())
	d, err := svc.Create(context.Background(), validDoctorCmd())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Updating without changing email or license must not trip the
	// uniqueness checks against the doctor's own row.
	updated, err := svc.Update(context.Background(), d.ID, &doctor.UpdateCommand{
		FirstName:     "Luis",
		LastName:      "Acosta Vera",
		Email:         d.Email,
		LicenseNumber: d.LicenseNumber,
		Specialty:     d.Specialty,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.LastName != "Acosta Vera" {
		t.Errorf("last name = %q, want the updated value", updated.LastName)
	}
}

func TestDoctorDelete_Idempotent(t *testing.T) {
	pub := &capturePublisher{}
	svc := NewDoctorService(newFakeDoctorRepo(), pub, zap.NewNop())
	d, err := svc.Create(context.Background(), validDoctorCmd())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pub.events = nil

	if err := svc.Delete(context.Background(), d.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := svc.Delete(context.Background(), d.ID); err != nil {
		t.Fatalf("deleting an absent doctor must be a no-op, got %v", err)
	}
	if got := pub.types(); len(got) != 1 || got[0] != "doctor.deleted" {
		t.Errorf("published events = %v, want [doctor.deleted] exactly once", got)
	}
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (r *fakePatientRepo) Create(_ context.Context, p *patient.Patient) error {
	p.ID = uuid.New()
	cp := *p
	r.patients[p.ID] = &cp
	return nil
}

func (r *fakePatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePatientRepo) Update(_ context.Context, p *patient.Patient) error {
	cp := *p
	r.patients[p.ID] = &cp
	return nil
}

func (r *fakePatientRepo) UpdateStatus(ctx context.Context, p *patient.Patient) error {
	return r.Update(ctx, p)
}

func (r *fakePatientRepo) List(_ context.Context, q *patient.ListQuery) (*patient.PagedPatients, error) {
	var out []*patient.Patient
	for _, p := range r.patients {
		if q.Status != nil && p.Status != *q.Status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return &patient.PagedPatients{Patients: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize, TotalPages: 1}, nil
}

func (r *fakePatientRepo) ExistsByEmail(_ context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	for _, p := range r.patients {
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		if p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePatientRepo) ExistsByNationalID(_ context.Context, nationalID string, excludeID *uuid.UUID) (bool, error) {
	for _, p := range r.patients {
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		if p.NationalID == nationalID {
			return true, nil
		}
	}
	return false, nil
}

func TestPatientCreate_StartsActive(t *testing.T) {
	svc := NewPatientService(newFakePatientRepo(), &capturePublisher{}, zap.NewNop())

	p, err := svc.Create(context.Background(), &patient.CreateCommand{
		FirstName:  "Ana",
		LastName:   "Reyes",
		Email:      "ana@example.com",
		NationalID: "0912345678",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != patient.StatusActive {
		t.Errorf("status = %s, want active", p.Status)
	}
}

func TestPatientCreate_DuplicateNationalID(t *testing.T) {
	svc := NewPatientService(newFakePatientRepo(), &capturePublisher{}, zap.NewNop())
	if _, err := svc.Create(context.Background(), &patient.CreateCommand{
		FirstName: "Ana", LastName: "Reyes", Email: "ana@example.com", NationalID: "0912345678",
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.Create(context.Background(), &patient.CreateCommand{
		FirstName: "Bea", LastName: "Rios", Email: "bea@example.com", NationalID: "0912345678",
	})
	if !errors.Is(err, patient.ErrNationalIDTaken) {
		t.Fatalf("error = %v, want ErrNationalIDTaken", err)
	}
}

func TestPatientDeactivate_Idempotent(t *testing.T) {
	pub := &capturePublisher{}
	svc := NewPatientService(newFakePatientRepo(), pub, zap.NewNop())
	p, err := svc.Create(context.Background(), &patient.CreateCommand{
		FirstName: "Ana", LastName: "Reyes", Email: "ana@example.com", NationalID: "0912345678",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pub.events = nil

	first, err := svc.Deactivate(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("first deactivate: %v", err)
	}
	if first.Status != patient.StatusInactive {
		t.Errorf("status = %s, want inactive", first.Status)
	}

	if _, err := svc.Deactivate(context.Background(), p.ID); err != nil {
		t.Fatalf("second deactivate must pass through, got %v", err)
	}
	if got := pub.types(); len(got) != 1 {
		t.Errorf("deactivation published %d events, want exactly one", len(got))
	}
}
