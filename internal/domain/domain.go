package domain

// Specialty is the closed set of medical specialties the platform books
// appointments for. Doctors carry exactly one; appointment requests name one
// so a doctor can be resolved when none is given explicitly.
type Specialty string

const (
	SpecialtyGeneralMedicine Specialty = "general_medicine"
	SpecialtyPediatrics      Specialty = "pediatrics"
	SpecialtyGynecology      Specialty = "gynecology"
	SpecialtyCardiology      Specialty = "cardiology"
	SpecialtyDermatology     Specialty = "dermatology"
	SpecialtyDentistry       Specialty = "dentistry"
	SpecialtyTraumatology    Specialty = "traumatology"
)

func (s Specialty) IsValid() bool {
	switch s {
	case SpecialtyGeneralMedicine, SpecialtyPediatrics, SpecialtyGynecology,
		SpecialtyCardiology, SpecialtyDermatology, SpecialtyDentistry, SpecialtyTraumatology:
		return true
	}
	return false
}
