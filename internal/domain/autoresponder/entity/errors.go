package entity

import "errors"

// Domain errors for autoresponder configuration
var (
	ErrNotFound       = errors.New("autoresponder not found")
	ErrInvalidKind    = errors.New("invalid autoresponder kind")
	ErrEmptyMessage   = errors.New("autoresponder message text cannot be empty")
	ErrMissingKeyword = errors.New("keyword matching enabled but no keywords configured")
)
