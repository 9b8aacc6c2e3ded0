package doctor

import "errors"

var (
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrEmailTaken           = errors.New("doctor email already registered")
	ErrLicenseTaken         = errors.New("license number already registered")
	ErrSpecialtyMismatch    = errors.New("doctor does not match the requested specialty")
	ErrNoDoctorForSpecialty = errors.New("no doctor available for the requested specialty")
)
