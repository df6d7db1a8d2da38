package apperrors

import "errors"

var (
	ErrModelNotFound      = errors.New("model artifact not found")
	ErrModelInvalid       = errors.New("model artifact invalid")
	ErrNoProfileCreator   = errors.New("no profile creator for data type")
	ErrEmptySample        = errors.New("no usable values after sampling")
	ErrColumnNotFound     = errors.New("column not found in table header")
	ErrUnsupportedFormat  = errors.New("unsupported table format")
	ErrInvalidDatasetRoot = errors.New("dataset root is not a readable directory")
)
