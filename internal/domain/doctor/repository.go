package doctor

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook-api/internal/domain"
)

type Repository interface {
	// Create persists a new doctor. Returns ErrEmailTaken or ErrLicenseTaken
	// on uniqueness violations.
	Create(ctx context.Context, d *Doctor) error

	// GetByID returns ErrDoctorNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	// FindBySpecialty returns doctors of the given specialty ordered by last
	// name. The booking workflow only needs the first match.
	FindBySpecialty(ctx context.Context, sp domain.Specialty) ([]*Doctor, error)

	Update(ctx context.Context, d *Doctor) error

	// Delete removes the doctor. Deleting an absent doctor is a no-op.
	Delete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, q *ListQuery) (*PagedDoctors, error)

	ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
	ExistsByLicense(ctx context.Context, license string, excludeID *uuid.UUID) (bool, error)
}
