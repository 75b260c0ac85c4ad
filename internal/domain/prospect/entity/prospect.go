package entity

import (
	"time"

	msgentity "github.com/hower/prospector/internal/domain/message/entity"
)

// State is the derived lifecycle state of a prospect.
//
// The state is always recomputable from the message log alone; there is no
// persisted status column that could drift out of sync with it.
type State string

const (
	// StateNoResponse covers both "never contacted / cold" and "counterparty
	// wrote last, business owes a reply".
	StateNoResponse State = "no_response"
	// StateFollowUp is an ongoing relationship that needs nurturing.
	StateFollowUp State = "follow_up"
	// StateInvited means contact details were exchanged outside Instagram;
	// the prospect is past the messaging stage for good.
	StateInvited State = "invited"
)

// Prospect is the aggregated, classified view of one counterparty's
// interaction history. It is derived from messages and never persisted.
type Prospect struct {
	CounterpartyID       string              `json:"counterparty_id"`
	AccountID            string              `json:"account_id"`
	DisplayName          string              `json:"display_name,omitempty"`
	State                State               `json:"state"`
	LastMessageTime      time.Time           `json:"last_message_time"`
	LastMessageDirection msgentity.Direction `json:"last_message_direction"`
	MessageCount         int                 `json:"message_count"`
}
