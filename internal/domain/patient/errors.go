package patient

import "errors"

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrEmailTaken      = errors.New("patient email already registered")
	ErrNationalIDTaken = errors.New("patient with this national ID already exists")
	ErrPatientInactive = errors.New("patient is not active")
)
