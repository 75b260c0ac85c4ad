package entity

import (
	"errors"
	"time"
)

// Account represents a connected Instagram business account
type Account struct {
	ID              string    `json:"id"`
	InstagramUserID string    `json:"instagram_user_id"`
	Username        string    `json:"username"`
	AccessToken     string    `json:"-"` // never serialized
	CreatedAt       time.Time `json:"created_at"`
}

// Domain errors for accounts
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrMissingToken    = errors.New("account has no access token")
)
