package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicbook/clinicbook-api/internal/domain"
	"github.com/clinicbook/clinicbook-api/internal/domain/doctor"
)

type DoctorRepository struct {
	db *gorm.DB
}

func NewDoctorRepository(db *gorm.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

func (r *DoctorRepository) Create(ctx context.Context, d *doctor.Doctor) error {
	err := dbFromContext(ctx, r.db).Create(d).Error
	return translateDoctorConstraint(err)
}

func (r *DoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	var d doctor.Doctor
	err := dbFromContext(ctx, r.db).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, doctor.ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DoctorRepository) FindBySpecialty(ctx context.Context, sp domain.Specialty) ([]*doctor.Doctor, error) {
	var docs []*doctor.Doctor
	err := dbFromContext(ctx, r.db).
		Where("specialty = ?", sp).
		Order("last_name, first_name").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *DoctorRepository) Update(ctx context.Context, d *doctor.Doctor) error {
	err := dbFromContext(ctx, r.db).Save(d).Error
	return translateDoctorConstraint(err)
}

func (r *DoctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return dbFromContext(ctx, r.db).Delete(&doctor.Doctor{}, "id = ?", id).Error
}

func (r *DoctorRepository) List(ctx context.Context, q *doctor.ListQuery) (*doctor.PagedDoctors, error) {
	db := dbFromContext(ctx, r.db).Model(&doctor.Doctor{})
	if q.Specialty != nil {
		db = db.Where("specialty = ?", *q.Specialty)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	var docs []*doctor.Doctor
	err := db.Order("last_name, first_name").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}

	return &doctor.PagedDoctors{
		Doctors:    docs,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
	}, nil
}

func (r *DoctorRepository) ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	return r.exists(ctx, "email = ?", email, excludeID)
}

func (r *DoctorRepository) ExistsByLicense(ctx context.Context, license string, excludeID *uuid.UUID) (bool, error) {
	return r.exists(ctx, "license_number = ?", license, excludeID)
}

func (r *DoctorRepository) exists(ctx context.Context, cond string, value string, excludeID *uuid.UUID) (bool, error) {
	db := dbFromContext(ctx, r.db).Model(&doctor.Doctor{}).Where(cond, value)
	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// translateDoctorConstraint maps unique-index violations to domain sentinels.
// The service pre-checks uniqueness, so this only fires on a concurrent
// insert race.
func translateDoctorConstraint(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "idx_doctors_email"):
		return doctor.ErrEmailTaken
	case strings.Contains(msg, "idx_doctors_license_number"):
		return doctor.ErrLicenseTaken
	}
	return err
}
