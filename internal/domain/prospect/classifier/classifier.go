// Package classifier derives a prospect's lifecycle state from its message
// history. All functions are pure: the state depends only on the messages
// belonging to the counterparty, so it can be recomputed at any time.
package classifier

import (
	"sort"
	"time"

	msgentity "github.com/hower/prospector/internal/domain/message/entity"
	"github.com/hower/prospector/internal/domain/prospect/entity"
)

// ColdLeadDecay is how long an unanswered first contact stays in follow_up
// before decaying back to no_response. Distinct from the dispatch cool-down:
// this decides classification, not whether an autoresponder may fire.
const ColdLeadDecay = 24 * time.Hour

// Filter splits messages into those belonging to the counterparty and the
// rest. Foreign messages indicate cross-contaminated input and must never
// silently influence classification; the caller logs when foreign > 0.
func Filter(msgs []msgentity.Message, counterpartyID string) (own, foreign []msgentity.Message) {
	for _, m := range msgs {
		if m.BelongsTo(counterpartyID) {
			own = append(own, m)
		} else {
			foreign = append(foreign, m)
		}
	}
	return own, foreign
}

// Classify derives the state for one counterparty from its message history.
// Input order does not matter; messages are sorted by timestamp internally
// because datastore write order is not guaranteed.
func Classify(msgs []msgentity.Message, counterpartyID string) entity.State {
	return ClassifyAt(msgs, counterpartyID, time.Now())
}

// ClassifyAt is Classify with an explicit "now" for the decay computation.
func ClassifyAt(msgs []msgentity.Message, counterpartyID string, now time.Time) entity.State {
	own, _ := Filter(msgs, counterpartyID)
	if len(own) == 0 {
		return entity.StateNoResponse
	}

	// An invitation sent by the business overrides everything else: once
	// contact details were exchanged off-platform, later silence or chatter
	// no longer changes the prospect's stage.
	for _, m := range own {
		if m.IsInvitation && m.Direction == msgentity.DirectionSent {
			return entity.StateInvited
		}
	}

	sorted := make([]msgentity.Message, len(own))
	copy(sorted, own)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	last := sorted[len(sorted)-1]
	if last.Direction == msgentity.DirectionReceived {
		// Counterparty wrote last: the business owes a reply.
		return entity.StateNoResponse
	}

	// Business wrote last. A warm lead (counterparty ever replied) stays in
	// follow_up no matter how much time passed; a cold one decays.
	for _, m := range sorted {
		if m.Direction == msgentity.DirectionReceived {
			return entity.StateFollowUp
		}
	}

	if now.Sub(last.Timestamp) >= ColdLeadDecay {
		return entity.StateNoResponse
	}
	return entity.StateFollowUp
}

// Build assembles the full prospect view for one counterparty. Messages are
// expected to be pre-filtered; foreign entries are discarded the same way
// Classify discards them.
func Build(msgs []msgentity.Message, accountID, counterpartyID string, now time.Time) entity.Prospect {
	own, _ := Filter(msgs, counterpartyID)

	p := entity.Prospect{
		CounterpartyID: counterpartyID,
		AccountID:      accountID,
		State:          ClassifyAt(own, counterpartyID, now),
		MessageCount:   len(own),
	}

	for _, m := range own {
		if m.Timestamp.After(p.LastMessageTime) {
			p.LastMessageTime = m.Timestamp
			p.LastMessageDirection = m.Direction
		}
	}

	return p
}
