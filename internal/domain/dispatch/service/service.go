package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	accentity "github.com/hower/prospector/internal/domain/account/entity"
	arentity "github.com/hower/prospector/internal/domain/autoresponder/entity"
	arservice "github.com/hower/prospector/internal/domain/autoresponder/service"
	msgentity "github.com/hower/prospector/internal/domain/message/entity"
	"github.com/hower/prospector/internal/eventbus"
	"github.com/hower/prospector/internal/httpx/upstream/instagram"
)

// CooldownWindow is the minimum gap between two inbound messages from the
// same counterparty before another autoresponder may fire. Intentionally
// distinct from the classifier's 24h cold-lead decay: this suppresses
// duplicate automated greetings, the other decides lead staleness.
const CooldownWindow = 12 * time.Hour

// ErrMalformedEvent marks an inbound event missing required fields. The
// webhook controller logs it and still answers 2xx so the delivery system
// does not retry-storm.
var ErrMalformedEvent = errors.New("malformed inbound event")

// MessageRepository defines the message log operations the dispatcher needs
type MessageRepository interface {
	Insert(ctx context.Context, msg *msgentity.Message) (bool, error)
	GetRecentInbound(ctx context.Context, accountID, counterpartyID string, limit int) ([]msgentity.Message, error)
}

// AccountResolver resolves business accounts from Instagram user ids
type AccountResolver interface {
	GetByInstagramUserID(ctx context.Context, instagramUserID string) (*accentity.Account, error)
}

// AutoresponderSource provides active autoresponders in priority order
type AutoresponderSource interface {
	ListActiveByAccount(ctx context.Context, accountID string) ([]arentity.Autoresponder, error)
}

// SentLogger appends to the autoresponder sent log
type SentLogger interface {
	Append(ctx context.Context, e *arentity.SentLogEntry) error
}

// Gateway sends outbound messages through the Instagram messaging API
type Gateway interface {
	SendMessage(ctx context.Context, in instagram.SendMessageInput) (*instagram.SendMessageOutput, error)
	ReplyToComment(ctx context.Context, in instagram.ReplyToCommentInput) (*instagram.ReplyToCommentOutput, error)
}

// Outcome is the terminal state of one inbound event
type Outcome string

const (
	OutcomeSent            Outcome = "sent"
	OutcomeSkippedCooldown Outcome = "skipped_cooldown"
	OutcomeNoMatch         Outcome = "no_match"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeUnknownAccount  Outcome = "unknown_account"
)

// Result describes how an inbound event was resolved
type Result struct {
	Outcome           Outcome
	AutoresponderID   string
	OutboundMessageID string
}

// Service orchestrates inbound webhook events: persist, cool-down check,
// match, send, log. Every step failure is returned as an error, never a
// panic; the inbound message stays persisted regardless of what happens
// downstream.
type Service struct {
	msgRepo    MessageRepository
	accounts   AccountResolver
	responders AutoresponderSource
	sentLog    SentLogger
	gateway    Gateway
	bus        *eventbus.Bus
	logger     *slog.Logger
}

// New creates a new dispatch service
func New(
	msgRepo MessageRepository,
	accounts AccountResolver,
	responders AutoresponderSource,
	sentLog SentLogger,
	gateway Gateway,
	bus *eventbus.Bus,
	logger *slog.Logger,
) *Service {
	return &Service{
		msgRepo:    msgRepo,
		accounts:   accounts,
		responders: responders,
		sentLog:    sentLog,
		gateway:    gateway,
		bus:        bus,
		logger:     logger,
	}
}

// InboundMessage is a direct message event extracted from a webhook payload
type InboundMessage struct {
	MessageID   string
	SenderID    string
	RecipientID string
	Text        string
	Timestamp   time.Time
	RawKey      string
}

// InboundComment is a comment event extracted from a webhook payload
type InboundComment struct {
	CommentID   string
	MediaID     string
	SenderID    string
	RecipientID string
	Text        string
	Timestamp   time.Time
	RawKey      string
}

// HandleMessage processes one inbound direct message:
// persist → cool-down → match → send → log.
func (s *Service) HandleMessage(ctx context.Context, ev InboundMessage) (*Result, error) {
	if ev.MessageID == "" || ev.SenderID == "" || ev.RecipientID == "" || ev.Text == "" || ev.Timestamp.IsZero() {
		// Text is required too: attachment-only and reaction events carry
		// none and must never reach a catch-all responder.
		return nil, ErrMalformedEvent
	}

	// The message log is the source of truth and must be complete whatever
	// the automation decides; account ids in the log are the business
	// Instagram user ids, so persistence needs no account lookup.
	inserted, err := s.msgRepo.Insert(ctx, &msgentity.Message{
		ID:          ev.MessageID,
		AccountID:   ev.RecipientID,
		SenderID:    ev.SenderID,
		RecipientID: ev.RecipientID,
		Text:        ev.Text,
		Direction:   msgentity.DirectionReceived,
		Source:      msgentity.SourceDirect,
		RawKey:      ev.RawKey,
		Timestamp:   ev.Timestamp,
	})
	if err != nil {
		// Cannot safely proceed without a durable record.
		return nil, fmt.Errorf("persisting inbound message: %w", err)
	}
	if !inserted {
		// At-least-once delivery replayed a known message id.
		return &Result{Outcome: OutcomeDuplicate}, nil
	}

	s.bus.Publish(eventbus.MessageChange{
		AccountID:      ev.RecipientID,
		CounterpartyID: ev.SenderID,
		MessageID:      ev.MessageID,
	})

	account, err := s.accounts.GetByInstagramUserID(ctx, ev.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("resolving account: %w", err)
	}
	if account == nil {
		return &Result{Outcome: OutcomeUnknownAccount}, nil
	}

	allowed, err := s.cooldownAllows(ctx, ev.RecipientID, ev.SenderID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return &Result{Outcome: OutcomeSkippedCooldown}, nil
	}

	candidates, err := s.responders.ListActiveByAccount(ctx, ev.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("loading autoresponders: %w", err)
	}

	var eligible []arentity.Autoresponder
	for _, c := range candidates {
		if c.Kind == arentity.KindDirectMessage {
			eligible = append(eligible, c)
		}
	}

	match := arservice.Select(ev.Text, eligible)
	if match == nil {
		return &Result{Outcome: OutcomeNoMatch}, nil
	}

	out, err := s.gateway.SendMessage(ctx, instagram.SendMessageInput{
		UserID:      account.InstagramUserID,
		AccessToken: account.AccessToken,
		RecipientID: ev.SenderID,
		Text:        match.MessageText,
	})
	if err != nil {
		return nil, fmt.Errorf("sending autoresponse: %w", err)
	}

	return s.recordSend(ctx, account, match, ev.SenderID, out.MessageID, "")
}

// HandleComment processes one inbound comment event. A matching responder
// answers with a private reply (addressed by comment id) and, when a public
// reply template is configured, a comment reply as well.
func (s *Service) HandleComment(ctx context.Context, ev InboundComment) (*Result, error) {
	if ev.CommentID == "" || ev.SenderID == "" || ev.RecipientID == "" || ev.Text == "" || ev.Timestamp.IsZero() {
		return nil, ErrMalformedEvent
	}

	inserted, err := s.msgRepo.Insert(ctx, &msgentity.Message{
		ID:          ev.CommentID,
		AccountID:   ev.RecipientID,
		SenderID:    ev.SenderID,
		RecipientID: ev.RecipientID,
		Text:        ev.Text,
		Direction:   msgentity.DirectionReceived,
		Source:      msgentity.SourceComment,
		CommentID:   ev.CommentID,
		RawKey:      ev.RawKey,
		Timestamp:   ev.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("persisting inbound comment: %w", err)
	}
	if !inserted {
		return &Result{Outcome: OutcomeDuplicate}, nil
	}

	s.bus.Publish(eventbus.MessageChange{
		AccountID:      ev.RecipientID,
		CounterpartyID: ev.SenderID,
		MessageID:      ev.CommentID,
	})

	account, err := s.accounts.GetByInstagramUserID(ctx, ev.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("resolving account: %w", err)
	}
	if account == nil {
		return &Result{Outcome: OutcomeUnknownAccount}, nil
	}

	allowed, err := s.cooldownAllows(ctx, ev.RecipientID, ev.SenderID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return &Result{Outcome: OutcomeSkippedCooldown}, nil
	}

	candidates, err := s.responders.ListActiveByAccount(ctx, ev.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("loading autoresponders: %w", err)
	}

	match := arservice.SelectForComment(ev.Text, ev.MediaID, candidates)
	if match == nil {
		return &Result{Outcome: OutcomeNoMatch}, nil
	}

	out, err := s.gateway.SendMessage(ctx, instagram.SendMessageInput{
		UserID:      account.InstagramUserID,
		AccessToken: account.AccessToken,
		CommentID:   ev.CommentID,
		Text:        match.MessageText,
	})
	if err != nil {
		return nil, fmt.Errorf("sending private reply: %w", err)
	}

	if match.ReplyText != "" {
		// The private reply already went out; a failed public reply is not
		// worth failing the whole event over.
		if _, err := s.gateway.ReplyToComment(ctx, instagram.ReplyToCommentInput{
			CommentID:   ev.CommentID,
			AccessToken: account.AccessToken,
			Message:     match.ReplyText,
		}); err != nil {
			s.logger.Warn("public comment reply failed",
				"comment_id", ev.CommentID,
				"autoresponder_id", match.ID,
				"error", err,
			)
		}
	}

	return s.recordSend(ctx, account, match, ev.SenderID, out.MessageID, ev.CommentID)
}

// cooldownAllows checks the gap between the two most recent inbound messages
// from the counterparty (the current one included, since it was just
// persisted). Fewer than two means first contact: always dispatch.
func (s *Service) cooldownAllows(ctx context.Context, accountID, counterpartyID string) (bool, error) {
	recent, err := s.msgRepo.GetRecentInbound(ctx, accountID, counterpartyID, 2)
	if err != nil {
		return false, fmt.Errorf("checking cool-down: %w", err)
	}
	if len(recent) < 2 {
		return true, nil
	}

	gap := recent[0].Timestamp.Sub(recent[1].Timestamp)
	if gap < 0 {
		gap = -gap
	}
	return gap >= CooldownWindow, nil
}

// recordSend persists the outbound message and appends the sent log entry
// after a successful gateway send.
func (s *Service) recordSend(ctx context.Context, account *accentity.Account, match *arentity.Autoresponder, counterpartyID, messageID, commentID string) (*Result, error) {
	now := time.Now()
	source := msgentity.SourceDirect
	if commentID != "" {
		source = msgentity.SourceComment
	}

	if _, err := s.msgRepo.Insert(ctx, &msgentity.Message{
		ID:           messageID,
		AccountID:    account.InstagramUserID,
		SenderID:     account.InstagramUserID,
		RecipientID:  counterpartyID,
		Text:         match.MessageText,
		Direction:    msgentity.DirectionSent,
		Source:       source,
		CommentID:    commentID,
		IsInvitation: msgentity.ContainsInvitationMarker(match.MessageText),
		Timestamp:    now,
	}); err != nil {
		return nil, fmt.Errorf("persisting outbound message: %w", err)
	}

	if err := s.sentLog.Append(ctx, &arentity.SentLogEntry{
		AutoresponderID: match.ID,
		AccountID:       account.InstagramUserID,
		CounterpartyID:  counterpartyID,
		SentAt:          now,
	}); err != nil {
		return nil, fmt.Errorf("appending sent log: %w", err)
	}

	s.bus.Publish(eventbus.MessageChange{
		AccountID:      account.InstagramUserID,
		CounterpartyID: counterpartyID,
		MessageID:      messageID,
	})

	s.logger.Info("autoresponder dispatched",
		"account_id", account.InstagramUserID,
		"counterparty_id", counterpartyID,
		"autoresponder_id", match.ID,
		"message_id", messageID,
	)

	return &Result{
		Outcome:           OutcomeSent,
		AutoresponderID:   match.ID,
		OutboundMessageID: messageID,
	}, nil
}
