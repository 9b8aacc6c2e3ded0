package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicbook/clinicbook-api/internal/domain"
	"github.com/clinicbook/clinicbook-api/internal/domain/doctor"
	"github.com/clinicbook/clinicbook-api/internal/events"
)

type DoctorService struct {
	repo   doctor.Repository
	events events.Publisher
	log    *zap.Logger
}

func NewDoctorService(repo doctor.Repository, publisher events.Publisher, log *zap.Logger) *DoctorService {
	return &DoctorService{repo: repo, events: publisher, log: log}
}

func (s *DoctorService) Create(ctx context.Context, cmd *doctor.CreateCommand) (*doctor.Doctor, error) {
	if err := validateDoctorFields(cmd.FirstName, cmd.LastName, cmd.Email, cmd.LicenseNumber, cmd.Specialty); err != nil {
		return nil, err
	}

	if taken, err := s.repo.ExistsByEmail(ctx, cmd.Email, nil); err != nil {
		return nil, fmt.Errorf("checking email uniqueness: %w", err)
	} else if taken {
		return nil, doctor.ErrEmailTaken
	}
	if taken, err := s.repo.ExistsByLicense(ctx, cmd.LicenseNumber, nil); err != nil {
		return nil, fmt.Errorf("checking license uniqueness: %w", err)
	} else if taken {
		return nil, doctor.ErrLicenseTaken
	}

	d := &doctor.Doctor{
		FirstName:     cmd.FirstName,
		LastName:      cmd.LastName,
		Email:         cmd.Email,
		LicenseNumber: cmd.LicenseNumber,
		Specialty:     cmd.Specialty,
		Phone:         cmd.Phone,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		s.log.Error("failed to create doctor", zap.Error(err))
		return nil, fmt.Errorf("creating doctor: %w", err)
	}

	s.events.Publish(ctx, events.TypeDoctorCreated, d)
	return d, nil
}

func (s *DoctorService) Get(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DoctorService) FindBySpecialty(ctx context.Context, sp domain.Specialty) ([]*doctor.Doctor, error) {
	if !sp.IsValid() {
		return nil, &ValidationError{Fields: []string{"specialty is not recognized"}}
	}
	return s.repo.FindBySpecialty(ctx, sp)
}

func (s *DoctorService) List(ctx context.Context, q *doctor.ListQuery) (*doctor.PagedDoctors, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}

func (s *DoctorService) Update(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateCommand) (*doctor.Doctor, error) {
	if err := validateDoctorFields(cmd.FirstName, cmd.LastName, cmd.Email, cmd.LicenseNumber, cmd.Specialty); err != nil {
		return nil, err
	}

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Uniqueness is only re-checked when the value actually changes.
	if cmd.Email != d.Email {
		if taken, err := s.repo.ExistsByEmail(ctx, cmd.Email, &id); err != nil {
			return nil, fmt.Errorf("checking email uniqueness: %w", err)
		} else if taken {
			return nil, doctor.ErrEmailTaken
		}
	}
	if cmd.LicenseNumber != d.LicenseNumber {
		if taken, err := s.repo.ExistsByLicense(ctx, cmd.LicenseNumber, &id); err != nil {
			return nil, fmt.Errorf("checking license uniqueness: %w", err)
		} else if taken {
			return nil, doctor.ErrLicenseTaken
		}
	}

	d.FirstName = cmd.FirstName
	d.LastName = cmd.LastName
	d.Email = cmd.Email
	d.LicenseNumber = cmd.LicenseNumber
	d.Specialty = cmd.Specialty
	d.Phone = cmd.Phone

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("updating doctor: %w", err)
	}

	s.events.Publish(ctx, events.TypeDoctorUpdated, d)
	return d, nil
}

// Delete removes a doctor. Deleting an absent doctor is a no-op: the event is
// only emitted when a row actually existed.
func (s *DoctorService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, doctor.ErrDoctorNotFound) {
			return nil
		}
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting doctor: %w", err)
	}
	s.events.Publish(ctx, events.TypeDoctorDeleted, map[string]string{"id": id.String()})
	return nil
}

func validateDoctorFields(first, last, email, license string, sp domain.Specialty) error {
	var fields []string
	if first == "" {
		fields = append(fields, "firstName is required")
	}
	if last == "" {
		fields = append(fields, "lastName is required")
	}
	if email == "" {
		fields = append(fields, "email is required")
	}
	if license == "" {
		fields = append(fields, "licenseNumber is required")
	}
	if !sp.IsValid() {
		fields = append(fields, "specialty is not recognized")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
