package policy

import (
	"context"
	"fmt"
	"sync"
	"time"

	accentity "github.com/hower/prospector/internal/domain/account/entity"
	msgentity "github.com/hower/prospector/internal/domain/message/entity"
	"github.com/hower/prospector/internal/domain/prospect/entity"
	"github.com/hower/prospector/internal/eventbus"
	"github.com/hower/prospector/internal/httpx/upstream/instagram"
)

// Aggregator defines the prospect view operations the policy needs
type Aggregator interface {
	List(accountID string) []entity.Prospect
	Get(accountID, counterpartyID string) *entity.Prospect
	Refresh(ctx context.Context, accountID, counterpartyID string) error
}

// MessageRepository defines the message log operations the policy needs
type MessageRepository interface {
	GetByCounterparty(ctx context.Context, accountID, counterpartyID string) ([]msgentity.Message, error)
	Insert(ctx context.Context, msg *msgentity.Message) (bool, error)
}

// AccountProvider resolves business accounts and their credentials
type AccountProvider interface {
	GetByInstagramUserID(ctx context.Context, instagramUserID string) (*accentity.Account, error)
}

// Gateway sends outbound messages and resolves counterparty profiles
type Gateway interface {
	SendMessage(ctx context.Context, in instagram.SendMessageInput) (*instagram.SendMessageOutput, error)
	GetProfile(ctx context.Context, in instagram.GetProfileInput) (*instagram.GetProfileOutput, error)
}

// Policy handles prospect operations with account credential resolution
type Policy struct {
	aggregator Aggregator
	msgRepo    MessageRepository
	accounts   AccountProvider
	gateway    Gateway
	bus        *eventbus.Bus

	namesMu sync.RWMutex
	names   map[string]string
}

// New creates a new prospect policy
func New(aggregator Aggregator, msgRepo MessageRepository, accounts AccountProvider, gateway Gateway, bus *eventbus.Bus) *Policy {
	return &Policy{
		aggregator: aggregator,
		msgRepo:    msgRepo,
		accounts:   accounts,
		gateway:    gateway,
		bus:        bus,
		names:      make(map[string]string),
	}
}

// ListProspects returns the account's prospects, freshest conversation first
func (p *Policy) ListProspects(ctx context.Context, accountID string) ([]entity.Prospect, error) {
	account, err := p.accounts.GetByInstagramUserID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("resolving account: %w", err)
	}
	if account == nil {
		return nil, accentity.ErrAccountNotFound
	}

	prospects := p.aggregator.List(accountID)
	for i := range prospects {
		prospects[i].DisplayName = p.displayName(ctx, account, prospects[i].CounterpartyID)
	}

	return prospects, nil
}

// displayName resolves a counterparty's profile name, cached for the life of
// the process. A failed lookup leaves the name empty and the next listing
// retries it.
func (p *Policy) displayName(ctx context.Context, account *accentity.Account, counterpartyID string) string {
	p.namesMu.RLock()
	name, ok := p.names[counterpartyID]
	p.namesMu.RUnlock()
	if ok {
		return name
	}

	profile, err := p.gateway.GetProfile(ctx, instagram.GetProfileInput{
		UserID:      counterpartyID,
		AccessToken: account.AccessToken,
	})
	if err != nil {
		return ""
	}

	name = profile.Name
	if name == "" {
		name = profile.Username
	}

	p.namesMu.Lock()
	p.names[counterpartyID] = name
	p.namesMu.Unlock()

	return name
}

// GetConversation returns the full message history with one counterparty
func (p *Policy) GetConversation(ctx context.Context, accountID, counterpartyID string) ([]msgentity.Message, error) {
	return p.msgRepo.GetByCounterparty(ctx, accountID, counterpartyID)
}

// SendMessageInput represents input for a manual send
type SendMessageInput struct {
	AccountID      string
	CounterpartyID string
	Text           string
	IsInvitation   bool
}

// SendMessageOutput represents output from a manual send
type SendMessageOutput struct {
	MessageID string
}

// SendMessage sends a manual message to a counterparty, persists the
// outbound record and refreshes the prospect view. A message carrying a
// contact-exchange link is flagged as an invitation even when the caller
// forgot to set the flag.
func (p *Policy) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	if err := msgentity.ValidateMessageText(in.Text); err != nil {
		return nil, err
	}

	account, err := p.accounts.GetByInstagramUserID(ctx, in.AccountID)
	if err != nil {
		return nil, fmt.Errorf("resolving account: %w", err)
	}
	if account == nil {
		return nil, accentity.ErrAccountNotFound
	}
	if account.AccessToken == "" {
		return nil, accentity.ErrMissingToken
	}

	out, err := p.gateway.SendMessage(ctx, instagram.SendMessageInput{
		UserID:      account.InstagramUserID,
		AccessToken: account.AccessToken,
		RecipientID: in.CounterpartyID,
		Text:        in.Text,
	})
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}

	if _, err := p.msgRepo.Insert(ctx, &msgentity.Message{
		ID:           out.MessageID,
		AccountID:    in.AccountID,
		SenderID:     account.InstagramUserID,
		RecipientID:  in.CounterpartyID,
		Text:         in.Text,
		Direction:    msgentity.DirectionSent,
		Source:       msgentity.SourceDirect,
		IsInvitation: in.IsInvitation || msgentity.ContainsInvitationMarker(in.Text),
		Timestamp:    time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("persisting outbound message: %w", err)
	}

	p.bus.Publish(eventbus.MessageChange{
		AccountID:      in.AccountID,
		CounterpartyID: in.CounterpartyID,
		MessageID:      out.MessageID,
	})

	return &SendMessageOutput{MessageID: out.MessageID}, nil
}
