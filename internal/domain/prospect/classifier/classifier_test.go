package classifier

import (
	"testing"
	"time"

	msgentity "github.com/hower/prospector/internal/domain/message/entity"
	"github.com/hower/prospector/internal/domain/prospect/entity"
)

const (
	business     = "17841400000000001"
	counterparty = "5550001"
	stranger     = "5559999"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func sent(id string, at time.Time) msgentity.Message {
	return msgentity.Message{
		ID:          id,
		SenderID:    business,
		RecipientID: counterparty,
		Direction:   msgentity.DirectionSent,
		Timestamp:   at,
	}
}

func received(id string, at time.Time) msgentity.Message {
	return msgentity.Message{
		ID:          id,
		SenderID:    counterparty,
		RecipientID: business,
		Direction:   msgentity.DirectionReceived,
		Timestamp:   at,
	}
}

func TestClassifyEmptyHistory(t *testing.T) {
	if got := ClassifyAt(nil, counterparty, now); got != entity.StateNoResponse {
		t.Errorf("expected no_response for empty history, got %s", got)
	}
}

func TestClassifyCounterpartyWroteLast(t *testing.T) {
	msgs := []msgentity.Message{
		sent("m1", now.Add(-2*time.Hour)),
		received("m2", now.Add(-1*time.Hour)),
	}
	if got := ClassifyAt(msgs, counterparty, now); got != entity.StateNoResponse {
		t.Errorf("expected no_response when counterparty wrote last, got %s", got)
	}
}

func TestClassifyWarmLeadNeverDecays(t *testing.T) {
	// Counterparty replied once; business wrote last. Warm leads stay in
	// follow_up whether the last send was minutes or days ago.
	for _, age := range []time.Duration{10 * time.Minute, 10 * 24 * time.Hour} {
		msgs := []msgentity.Message{
			sent("m1", now.Add(-age-2*time.Hour)),
			received("m2", now.Add(-age-time.Hour)),
			sent("m3", now.Add(-age)),
		}
		if got := ClassifyAt(msgs, counterparty, now); got != entity.StateFollowUp {
			t.Errorf("age %v: expected follow_up, got %s", age, got)
		}
	}
}

func TestClassifyColdLeadDecay(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want entity.State
	}{
		{"fresh contact", 3 * time.Hour, entity.StateFollowUp},
		{"just under threshold", 24*time.Hour - time.Minute, entity.StateFollowUp},
		{"at threshold", 24 * time.Hour, entity.StateNoResponse},
		{"stale contact", 72 * time.Hour, entity.StateNoResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := []msgentity.Message{sent("m1", now.Add(-tt.age))}
			if got := ClassifyAt(msgs, counterparty, now); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassifyInvitationOverride(t *testing.T) {
	invitation := sent("m2", now.Add(-30*24*time.Hour))
	invitation.IsInvitation = true

	// Counterparty silent for 30 days after the invitation: still invited,
	// never decays back to no_response.
	msgs := []msgentity.Message{
		received("m1", now.Add(-31*24*time.Hour)),
		invitation,
	}
	if got := ClassifyAt(msgs, counterparty, now); got != entity.StateInvited {
		t.Errorf("expected invited, got %s", got)
	}

	// Even with later traffic that would otherwise imply no_response.
	msgs = append(msgs, received("m3", now.Add(-time.Hour)))
	if got := ClassifyAt(msgs, counterparty, now); got != entity.StateInvited {
		t.Errorf("expected invited despite later inbound, got %s", got)
	}
}

func TestClassifyInvitationFromCounterpartyIgnored(t *testing.T) {
	// Only invitations sent by the business advance the state.
	inv := received("m1", now.Add(-time.Hour))
	inv.IsInvitation = true
	if got := ClassifyAt([]msgentity.Message{inv}, counterparty, now); got != entity.StateNoResponse {
		t.Errorf("expected no_response, got %s", got)
	}
}

func TestClassifyIgnoresForeignMessages(t *testing.T) {
	msgs := []msgentity.Message{sent("m1", now.Add(-time.Hour))}
	withForeign := append([]msgentity.Message{}, msgs...)
	withForeign = append(withForeign, msgentity.Message{
		ID:          "f1",
		SenderID:    stranger,
		RecipientID: business,
		Direction:   msgentity.DirectionReceived,
		Timestamp:   now.Add(-time.Minute),
	})

	if ClassifyAt(msgs, counterparty, now) != ClassifyAt(withForeign, counterparty, now) {
		t.Error("foreign message changed the classification result")
	}
}

func TestClassifyUnsortedInput(t *testing.T) {
	// Datastore write order is not guaranteed; classification must sort.
	msgs := []msgentity.Message{
		sent("m3", now.Add(-time.Hour)),
		received("m1", now.Add(-3*time.Hour)),
		sent("m2", now.Add(-2*time.Hour)),
	}
	if got := ClassifyAt(msgs, counterparty, now); got != entity.StateFollowUp {
		t.Errorf("expected follow_up, got %s", got)
	}
}

func TestFilterSplitsForeign(t *testing.T) {
	msgs := []msgentity.Message{
		sent("m1", now),
		{ID: "f1", SenderID: stranger, RecipientID: business, Direction: msgentity.DirectionReceived, Timestamp: now},
	}

	own, foreign := Filter(msgs, counterparty)
	if len(own) != 1 || own[0].ID != "m1" {
		t.Errorf("expected 1 own message, got %d", len(own))
	}
	if len(foreign) != 1 || foreign[0].ID != "f1" {
		t.Errorf("expected 1 foreign message, got %d", len(foreign))
	}
}

func TestBuildProspectView(t *testing.T) {
	msgs := []msgentity.Message{
		received("m1", now.Add(-2*time.Hour)),
		sent("m2", now.Add(-time.Hour)),
	}

	p := Build(msgs, "acc1", counterparty, now)
	if p.State != entity.StateFollowUp {
		t.Errorf("expected follow_up, got %s", p.State)
	}
	if !p.LastMessageTime.Equal(now.Add(-time.Hour)) {
		t.Errorf("unexpected last message time %v", p.LastMessageTime)
	}
	if p.LastMessageDirection != msgentity.DirectionSent {
		t.Errorf("unexpected last direction %s", p.LastMessageDirection)
	}
	if p.MessageCount != 2 {
		t.Errorf("expected 2 messages, got %d", p.MessageCount)
	}
}
