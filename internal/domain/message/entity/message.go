package entity

import (
	"strings"
	"time"
)

// Direction indicates who authored a message relative to the business account
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Source indicates the Instagram surface a message arrived through
type Source string

const (
	SourceDirect  Source = "dm"
	SourceComment Source = "comment"
)

// Message represents one entry in the append-only message log.
// Messages are created by webhook receipt or outbound send confirmation
// and are never mutated afterwards.
type Message struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	SenderID     string    `json:"sender_id"`
	RecipientID  string    `json:"recipient_id"`
	Text         string    `json:"text"`
	Direction    Direction `json:"direction"`
	Source       Source    `json:"source"`
	CommentID    string    `json:"comment_id,omitempty"`
	IsInvitation bool      `json:"is_invitation"`
	RawKey       string    `json:"raw_key,omitempty"` // archive key of the original webhook payload
	Timestamp    time.Time `json:"timestamp"`
	CreatedAt    time.Time `json:"created_at"`
}

// CounterpartyID returns the non-business participant of the message.
// Conversation identity is always the other side, regardless of direction.
func (m Message) CounterpartyID() string {
	if m.Direction == DirectionSent {
		return m.RecipientID
	}
	return m.SenderID
}

// BelongsTo reports whether the message is part of the conversation
// with the given counterparty.
func (m Message) BelongsTo(counterpartyID string) bool {
	return m.SenderID == counterpartyID || m.RecipientID == counterpartyID
}

// MaxMessageLength is the maximum length of an outbound text message
const MaxMessageLength = 1000

// ValidateMessageText validates the text for an outbound message
func ValidateMessageText(text string) error {
	if text == "" {
		return ErrEmptyMessage
	}
	if len(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// invitationMarkers are substrings that identify a contact-exchange message
// (phone number or meeting link handed off outside Instagram).
var invitationMarkers = []string{
	"wa.me/",
	"api.whatsapp.com",
	"calendly.com",
	"meet.google.com",
	"zoom.us/j/",
}

// ContainsInvitationMarker reports whether the text carries a known
// contact-exchange link.
func ContainsInvitationMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range invitationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
