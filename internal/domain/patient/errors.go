package patient

import "errors"

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPatientAlreadyExists = errors.New("patient with this EGN already exists")
	ErrInvalidEGN           = errors.New("invalid EGN")
)
