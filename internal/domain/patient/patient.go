package patient

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	FirstName string `gorm:"column:first_name;type:varchar(80);not null"`
	LastName  string `gorm:"column:last_name;type:varchar(80);not null"`
	Email     string `gorm:"column:email;type:varchar(120);uniqueIndex;not null"`

	// National identity document (cedula or passport), unique per patient.
	NationalID string `gorm:"column:national_id;type:varchar(20);uniqueIndex;not null"`

	BirthDate *time.Time `gorm:"column:birth_date;type:date"`
	Phone     string     `gorm:"column:phone;type:varchar(20)"`
	Status    Status     `gorm:"column:status;type:varchar(12);not null;default:'active';index"`
}

func (Patient) TableName() string {
	return "booking.patients"
}

func (p *Patient) IsActive() bool {
	return p.Status == StatusActive
}

type CreateCommand struct {
	FirstName  string
	LastName   string
	Email      string
	NationalID string
	BirthDate  *time.Time
	Phone      string
}

type UpdateCommand struct {
	FirstName string
	LastName  string
	Email     string
	BirthDate *time.Time
	Phone     string
}

type ListQuery struct {
	Status   *Status
	Page     int
	PageSize int
}

type PagedPatients struct {
	Patients   []*Patient
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
