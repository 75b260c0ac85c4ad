package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	msgentity "github.com/hower/prospector/internal/domain/message/entity"
	"github.com/hower/prospector/internal/domain/prospect/classifier"
	"github.com/hower/prospector/internal/domain/prospect/entity"
	"github.com/hower/prospector/internal/eventbus"
)

// MessageRepository defines the message log queries the aggregator needs
type MessageRepository interface {
	GetByAccount(ctx context.Context, accountID string) ([]msgentity.Message, error)
	GetByCounterparty(ctx context.Context, accountID, counterpartyID string) ([]msgentity.Message, error)
	ListAccountIDs(ctx context.Context) ([]string, error)
}

// Service is the prospect aggregator: an in-memory, always-recomputable view
// over the message log, grouped by counterparty and kept fresh through the
// change bus. It never performs sends.
type Service struct {
	msgRepo MessageRepository
	logger  *slog.Logger

	mu        sync.RWMutex
	prospects map[string]map[string]entity.Prospect // accountID -> counterpartyID -> view
}

// New creates a new prospect aggregator
func New(msgRepo MessageRepository, logger *slog.Logger) *Service {
	return &Service{
		msgRepo:   msgRepo,
		logger:    logger,
		prospects: make(map[string]map[string]entity.Prospect),
	}
}

// Rebuild recomputes every account's prospect views from scratch
func (s *Service) Rebuild(ctx context.Context) error {
	accountIDs, err := s.msgRepo.ListAccountIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing accounts for rebuild: %w", err)
	}

	for _, accountID := range accountIDs {
		if err := s.RebuildAccount(ctx, accountID); err != nil {
			return err
		}
	}

	return nil
}

// RebuildAccount recomputes one account's prospect views from its full
// message log.
func (s *Service) RebuildAccount(ctx context.Context, accountID string) error {
	messages, err := s.msgRepo.GetByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("loading messages for rebuild: %w", err)
	}

	now := time.Now()
	byCounterparty := make(map[string][]msgentity.Message)
	for _, m := range messages {
		cp := m.CounterpartyID()
		byCounterparty[cp] = append(byCounterparty[cp], m)
	}

	views := make(map[string]entity.Prospect, len(byCounterparty))
	for cp, msgs := range byCounterparty {
		views[cp] = classifier.Build(msgs, accountID, cp, now)
	}

	s.mu.Lock()
	s.prospects[accountID] = views
	s.mu.Unlock()

	return nil
}

// Refresh recomputes the view for a single counterparty by re-querying its
// conversation. This bounds the cost of a change event to one partition
// instead of the whole log.
func (s *Service) Refresh(ctx context.Context, accountID, counterpartyID string) error {
	messages, err := s.msgRepo.GetByCounterparty(ctx, accountID, counterpartyID)
	if err != nil {
		return fmt.Errorf("loading conversation for refresh: %w", err)
	}

	own, foreign := classifier.Filter(messages, counterpartyID)
	if len(foreign) > 0 {
		// Cross-contaminated query result must never silently pass through.
		s.logger.Warn("foreign messages in conversation query",
			"account_id", accountID,
			"counterparty_id", counterpartyID,
			"foreign_count", len(foreign),
		)
	}

	view := classifier.Build(own, accountID, counterpartyID, time.Now())

	s.mu.Lock()
	if s.prospects[accountID] == nil {
		s.prospects[accountID] = make(map[string]entity.Prospect)
	}
	if len(own) == 0 {
		delete(s.prospects[accountID], counterpartyID)
	} else {
		s.prospects[accountID][counterpartyID] = view
	}
	s.mu.Unlock()

	return nil
}

// List returns the account's prospects sorted by last message time descending
func (s *Service) List(accountID string) []entity.Prospect {
	s.mu.RLock()
	views := s.prospects[accountID]
	out := make([]entity.Prospect, 0, len(views))
	for _, p := range views {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageTime.After(out[j].LastMessageTime)
	})

	return out
}

// Get returns one prospect view, or nil if unknown
func (s *Service) Get(accountID, counterpartyID string) *entity.Prospect {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.prospects[accountID][counterpartyID]; ok {
		return &p
	}
	return nil
}

// Consume drains the change bus, refreshing one affected partition per event.
// Blocks until the channel closes or the context ends; run it in a goroutine.
func (s *Service) Consume(ctx context.Context, events <-chan eventbus.MessageChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.Refresh(ctx, ev.AccountID, ev.CounterpartyID); err != nil {
				s.logger.Error("prospect refresh failed",
					"account_id", ev.AccountID,
					"counterparty_id", ev.CounterpartyID,
					"error", err,
				)
			}
		}
	}
}
