package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook-api/internal/domain"
	"github.com/clinicbook/clinicbook-api/internal/domain/doctor"
	"github.com/clinicbook/clinicbook-api/internal/domain/patient"
)

// PatientDirectory resolves patient references for the booking workflow. In a
// single-binary deployment it is backed by the local repository; in a split
// deployment by the patient service's HTTP API.
type PatientDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// DoctorDirectory resolves doctor references and specialty queries.
type DoctorDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error)
	FindBySpecialty(ctx context.Context, sp domain.Specialty) ([]*doctor.Doctor, error)
}

type localPatientDirectory struct {
	repo patient.Repository
}

func NewLocalPatientDirectory(repo patient.Repository) PatientDirectory {
	return &localPatientDirectory{repo: repo}
}

func (d *localPatientDirectory) Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return d.repo.GetByID(ctx, id)
}

type localDoctorDirectory struct {
	repo doctor.Repository
}

func NewLocalDoctorDirectory(repo doctor.Repository) DoctorDirectory {
	return &localDoctorDirectory{repo: repo}
}

func (d *localDoctorDirectory) Get(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	return d.repo.GetByID(ctx, id)
}

func (d *localDoctorDirectory) FindBySpecialty(ctx context.Context, sp domain.Specialty) ([]*doctor.Doctor, error) {
	return d.repo.FindBySpecialty(ctx, sp)
}
