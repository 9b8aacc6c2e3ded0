package doctor

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook-api/internal/domain"
)

type Doctor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	FirstName string `gorm:"column:first_name;type:varchar(80);not null"`
	LastName  string `gorm:"column:last_name;type:varchar(80);not null"`
	Email     string `gorm:"column:email;type:varchar(120);uniqueIndex;not null"`

	// Medical board registration number, unique per doctor.
	LicenseNumber string `gorm:"column:license_number;type:varchar(30);uniqueIndex;not null"`

	Specialty domain.Specialty `gorm:"column:specialty;type:varchar(40);not null;index"`
	Phone     string           `gorm:"column:phone;type:varchar(20)"`
}

func (Doctor) TableName() string {
	return "booking.doctors"
}

type CreateCommand struct {
	FirstName     string
	LastName      string
	Email         string
	LicenseNumber string
	Specialty     domain.Specialty
	Phone         string
}

type UpdateCommand struct {
	FirstName     string
	LastName      string
	Email         string
	LicenseNumber string
	Specialty     domain.Specialty
	Phone         string
}

type ListQuery struct {
	Specialty *domain.Specialty
	Page      int
	PageSize  int
}

type PagedDoctors struct {
	Doctors    []*Doctor
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
