package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient. Returns ErrEmailTaken or
	// ErrNationalIDTaken on uniqueness violations.
	Create(ctx context.Context, p *Patient) error

	// GetByID returns ErrPatientNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	Update(ctx context.Context, p *Patient) error

	// UpdateStatus persists an activate/deactivate transition.
	UpdateStatus(ctx context.Context, p *Patient) error

	List(ctx context.Context, q *ListQuery) (*PagedPatients, error)

	ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
	ExistsByNationalID(ctx context.Context, nationalID string, excludeID *uuid.UUID) (bool, error)
}
