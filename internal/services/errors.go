package services

import "errors"

// Service errors
var (
	ErrNoFiles      = errors.New("no files in upload")
	ErrInvalidInput = errors.New("invalid input")
)
