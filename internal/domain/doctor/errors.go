package doctor

import "errors"

var (
	ErrDoctorNotFound         = errors.New("doctor not found")
	ErrDoctorAlreadyExists    = errors.New("doctor with this id number already exists")
	ErrNotGeneralPractitioner = errors.New("doctor is not a general practitioner")
	ErrSpecialtyNotFound      = errors.New("specialty not found")
	ErrSpecialtyAlreadyExists = errors.New("specialty with this name already exists")
	ErrSpecialtyInUse         = errors.New("specialty is still assigned to doctors")
)
