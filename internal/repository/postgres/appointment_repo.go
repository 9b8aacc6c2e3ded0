package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicbook/clinicbook-api/internal/domain/appointment"
)

var activeStatuses = []appointment.Status{appointment.StatusScheduled, appointment.StatusRescheduled}

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	return dbFromContext(ctx, r.db).Create(a).Error
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := dbFromContext(ctx, r.db).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, a *appointment.Appointment) error {
	res := dbFromContext(ctx, r.db).Model(a).
		Select("doctor_id", "start_at", "end_at", "status", "notes").
		Updates(a)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, a *appointment.Appointment) error {
	res := dbFromContext(ctx, r.db).Model(a).Update("status", a.Status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListQuery) (*appointment.PagedAppointments, error) {
	db := dbFromContext(ctx, r.db).Model(&appointment.Appointment{})

	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		db = db.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}
	if q.From != nil {
		db = db.Where("start_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("start_at < ?", *q.To)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	var appts []*appointment.Appointment
	err := db.Order("start_at").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&appts).Error
	if err != nil {
		return nil, err
	}

	return &appointment.PagedAppointments{
		Appointments: appts,
		TotalCount:   total,
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
	}, nil
}

func (r *AppointmentRepository) DoctorHasOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	return r.hasOverlap(ctx, "doctor_id", doctorID, start, end, excludeID)
}

func (r *AppointmentRepository) PatientHasOverlap(ctx context.Context, patientID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	return r.hasOverlap(ctx, "patient_id", patientID, start, end, excludeID)
}

// hasOverlap runs the half-open interval predicate against active rows only.
// Served by the partial (owner, start_at, end_at) indexes.
func (r *AppointmentRepository) hasOverlap(ctx context.Context, column string, ownerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	db := dbFromContext(ctx, r.db).Model(&appointment.Appointment{}).
		Where(column+" = ? AND start_at < ? AND end_at > ? AND status IN ?", ownerID, end, start, activeStatuses)
	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *AppointmentRepository) ListByDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*appointment.Appointment, error) {
	var appts []*appointment.Appointment
	err := dbFromContext(ctx, r.db).
		Where("doctor_id = ? AND start_at >= ? AND start_at < ? AND status IN ?", doctorID, from, to, activeStatuses).
		Order("start_at").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}
