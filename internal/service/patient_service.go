package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicbook/clinicbook-api/internal/domain/patient"
	"github.com/clinicbook/clinicbook-api/internal/events"
)

type PatientService struct {
	repo   patient.Repository
	events events.Publisher
	log    *zap.Logger
}

func NewPatientService(repo patient.Repository, publisher events.Publisher, log *zap.Logger) *PatientService {
	return &PatientService{repo: repo, events: publisher, log: log}
}

func (s *PatientService) Create(ctx context.Context, cmd *patient.CreateCommand) (*patient.Patient, error) {
	if err := validatePatientFields(cmd.FirstName, cmd.LastName, cmd.Email, cmd.NationalID); err != nil {
		return nil, err
	}

	if taken, err := s.repo.ExistsByEmail(ctx, cmd.Email, nil); err != nil {
		return nil, fmt.Errorf("checking email uniqueness: %w", err)
	} else if taken {
		return nil, patient.ErrEmailTaken
	}
	if taken, err := s.repo.ExistsByNationalID(ctx, cmd.NationalID, nil); err != nil {
		return nil, fmt.Errorf("checking national ID uniqueness: %w", err)
	} else if taken {
		return nil, patient.ErrNationalIDTaken
	}

	p := &patient.Patient{
		FirstName:  cmd.FirstName,
		LastName:   cmd.LastName,
		Email:      cmd.Email,
		NationalID: cmd.NationalID,
		BirthDate:  cmd.BirthDate,
		Phone:      cmd.Phone,
		Status:     patient.StatusActive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, fmt.Errorf("creating patient: %w", err)
	}

	s.events.Publish(ctx, events.TypePatientCreated, p)
	return p, nil
}

func (s *PatientService) Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PatientService) List(ctx context.Context, q *patient.ListQuery) (*patient.PagedPatients, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}

func (s *PatientService) Update(ctx context.Context, id uuid.UUID, cmd *patient.UpdateCommand) (*patient.Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cmd.Email != "" && cmd.Email != p.Email {
		if taken, err := s.repo.ExistsByEmail(ctx, cmd.Email, &id); err != nil {
			return nil, fmt.Errorf("checking email uniqueness: %w", err)
		} else if taken {
			return nil, patient.ErrEmailTaken
		}
		p.Email = cmd.Email
	}
	if cmd.FirstName != "" {
		p.FirstName = cmd.FirstName
	}
	if cmd.LastName != "" {
		p.LastName = cmd.LastName
	}
	if cmd.BirthDate != nil {
		p.BirthDate = cmd.BirthDate
	}
	if cmd.Phone != "" {
		p.Phone = cmd.Phone
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("updating patient: %w", err)
	}

	s.events.Publish(ctx, events.TypePatientUpdated, p)
	return p, nil
}

// Deactivate marks the patient inactive; inactive patients cannot book.
// Already-inactive patients pass through unchanged.
func (s *PatientService) Deactivate(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == patient.StatusInactive {
		return p, nil
	}
	p.Status = patient.StatusInactive
	if err := s.repo.UpdateStatus(ctx, p); err != nil {
		return nil, fmt.Errorf("deactivating patient: %w", err)
	}
	s.events.Publish(ctx, events.TypePatientUpdated, p)
	return p, nil
}

func validatePatientFields(first, last, email, nationalID string) error {
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
	if nationalID == "" {
		fields = append(fields, "nationalId is required")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
