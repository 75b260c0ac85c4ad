package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	accentity "github.com/hower/prospector/internal/domain/account/entity"
	msgentity "github.com/hower/prospector/internal/domain/message/entity"
	"github.com/hower/prospector/internal/domain/prospect/entity"
	"github.com/hower/prospector/internal/eventbus"
	"github.com/hower/prospector/internal/httpx/upstream/instagram"
)

const (
	businessID   = "17841400000000001"
	counterparty = "5550001"
)

type fakeAggregator struct {
	prospects []entity.Prospect
}

func (f *fakeAggregator) List(_ string) []entity.Prospect {
	out := make([]entity.Prospect, len(f.prospects))
	copy(out, f.prospects)
	return out
}

func (f *fakeAggregator) Get(_, counterpartyID string) *entity.Prospect {
	for i := range f.prospects {
		if f.prospects[i].CounterpartyID == counterpartyID {
			return &f.prospects[i]
		}
	}
	return nil
}

func (f *fakeAggregator) Refresh(_ context.Context, _, _ string) error { return nil }

type fakeMessageRepo struct {
	messages []msgentity.Message
}

func (f *fakeMessageRepo) GetByCounterparty(_ context.Context, _, _ string) ([]msgentity.Message, error) {
	return f.messages, nil
}

func (f *fakeMessageRepo) Insert(_ context.Context, msg *msgentity.Message) (bool, error) {
	f.messages = append(f.messages, *msg)
	return true, nil
}

type fakeAccounts struct {
	accounts map[string]*accentity.Account
}

func (f *fakeAccounts) GetByInstagramUserID(_ context.Context, igID string) (*accentity.Account, error) {
	return f.accounts[igID], nil
}

type fakeGateway struct {
	profiles     map[string]instagram.GetProfileOutput
	profileCalls int
	profileErr   error
	sends        []instagram.SendMessageInput
}

func (f *fakeGateway) SendMessage(_ context.Context, in instagram.SendMessageInput) (*instagram.SendMessageOutput, error) {
	f.sends = append(f.sends, in)
	return &instagram.SendMessageOutput{MessageID: "out-1", RecipientID: in.RecipientID}, nil
}

func (f *fakeGateway) GetProfile(_ context.Context, in instagram.GetProfileInput) (*instagram.GetProfileOutput, error) {
	f.profileCalls++
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	p, ok := f.profiles[in.UserID]
	if !ok {
		return nil, &instagram.APIError{Message: "user not found", Code: 100}
	}
	return &p, nil
}

func newPolicyFixture(gateway *fakeGateway, prospects ...entity.Prospect) *Policy {
	accounts := &fakeAccounts{accounts: map[string]*accentity.Account{
		businessID: {ID: "acc-1", InstagramUserID: businessID, Username: "hower.biz", AccessToken: "tok"},
	}}
	return New(&fakeAggregator{prospects: prospects}, &fakeMessageRepo{}, accounts, gateway, eventbus.New())
}

func prospectFor(counterpartyID string) entity.Prospect {
	return entity.Prospect{
		CounterpartyID:  counterpartyID,
		AccountID:       businessID,
		State:           entity.StateNoResponse,
		LastMessageTime: time.Now(),
		MessageCount:    1,
	}
}

func TestListProspectsPopulatesDisplayNames(t *testing.T) {
	gateway := &fakeGateway{profiles: map[string]instagram.GetProfileOutput{
		counterparty: {ID: counterparty, Username: "maria.sells", Name: "María García"},
	}}
	p := newPolicyFixture(gateway, prospectFor(counterparty))

	prospects, err := p.ListProspects(context.Background(), businessID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prospects) != 1 {
		t.Fatalf("expected 1 prospect, got %d", len(prospects))
	}
	if prospects[0].DisplayName != "María García" {
		t.Errorf("DisplayName = %q, want María García", prospects[0].DisplayName)
	}
}

func TestListProspectsCachesProfileLookups(t *testing.T) {
	gateway := &fakeGateway{profiles: map[string]instagram.GetProfileOutput{
		counterparty: {ID: counterparty, Username: "maria.sells", Name: "María García"},
	}}
	p := newPolicyFixture(gateway, prospectFor(counterparty))

	for i := 0; i < 3; i++ {
		if _, err := p.ListProspects(context.Background(), businessID); err != nil {
			t.Fatal(err)
		}
	}

	if gateway.profileCalls != 1 {
		t.Errorf("expected 1 profile lookup across repeated listings, got %d", gateway.profileCalls)
	}
}

func TestListProspectsFallsBackToUsername(t *testing.T) {
	gateway := &fakeGateway{profiles: map[string]instagram.GetProfileOutput{
		counterparty: {ID: counterparty, Username: "maria.sells"},
	}}
	p := newPolicyFixture(gateway, prospectFor(counterparty))

	prospects, err := p.ListProspects(context.Background(), businessID)
	if err != nil {
		t.Fatal(err)
	}
	if prospects[0].DisplayName != "maria.sells" {
		t.Errorf("DisplayName = %q, want username fallback", prospects[0].DisplayName)
	}
}

func TestListProspectsToleratesProfileFailure(t *testing.T) {
	gateway := &fakeGateway{profileErr: errors.New("upstream down")}
	p := newPolicyFixture(gateway, prospectFor(counterparty))

	prospects, err := p.ListProspects(context.Background(), businessID)
	if err != nil {
		t.Fatalf("profile failure must not fail the listing: %v", err)
	}
	if prospects[0].DisplayName != "" {
		t.Errorf("DisplayName = %q, want empty on lookup failure", prospects[0].DisplayName)
	}

	// Failures are not cached; the next listing retries.
	gateway.profileErr = nil
	gateway.profiles = map[string]instagram.GetProfileOutput{
		counterparty: {ID: counterparty, Username: "maria.sells", Name: "María García"},
	}

	prospects, err = p.ListProspects(context.Background(), businessID)
	if err != nil {
		t.Fatal(err)
	}
	if prospects[0].DisplayName != "María García" {
		t.Errorf("DisplayName = %q after retry, want María García", prospects[0].DisplayName)
	}
}

func TestListProspectsUnknownAccount(t *testing.T) {
	p := newPolicyFixture(&fakeGateway{}, prospectFor(counterparty))

	_, err := p.ListProspects(context.Background(), "999999")
	if !errors.Is(err, accentity.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestSendMessagePersistsAndFlagsInvitation(t *testing.T) {
	gateway := &fakeGateway{}
	msgRepo := &fakeMessageRepo{}
	accounts := &fakeAccounts{accounts: map[string]*accentity.Account{
		businessID: {ID: "acc-1", InstagramUserID: businessID, Username: "hower.biz", AccessToken: "tok"},
	}}
	p := New(&fakeAggregator{}, msgRepo, accounts, gateway, eventbus.New())

	out, err := p.SendMessage(context.Background(), SendMessageInput{
		AccountID:      businessID,
		CounterpartyID: counterparty,
		Text:           "Agenda aquí: https://calendly.com/hower/demo",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.MessageID == "" {
		t.Fatal("missing message id")
	}
	if len(gateway.sends) != 1 || gateway.sends[0].RecipientID != counterparty {
		t.Errorf("unexpected sends: %+v", gateway.sends)
	}

	if len(msgRepo.messages) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(msgRepo.messages))
	}
	if !msgRepo.messages[0].IsInvitation {
		t.Error("outbound message with meeting link not flagged as invitation")
	}
}
