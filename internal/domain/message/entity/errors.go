package entity

import "errors"

// Domain errors for the message log
var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrEmptyMessage     = errors.New("message text cannot be empty")
	ErrMessageTooLong   = errors.New("message exceeds maximum length")
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrInvalidDirection = errors.New("invalid message direction")
)
