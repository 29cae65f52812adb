package services

import "errors"

var (
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrDisallowedExtension = errors.New("file type not allowed")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrFileTooLarge        = errors.New("file too large")
	ErrEmptyFilename       = errors.New("no file selected")
	ErrInvalidInput        = errors.New("invalid input")
)
