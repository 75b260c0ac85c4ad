package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hower/prospector/internal/domain/autoresponder/entity"
)

// Repository defines the interface for autoresponder configuration storage
type Repository interface {
	Create(ctx context.Context, a *entity.Autoresponder) error
	GetByID(ctx context.Context, id string) (*entity.Autoresponder, error)
	ListByAccount(ctx context.Context, accountID string) ([]entity.Autoresponder, error)
	ListActiveByAccount(ctx context.Context, accountID string) ([]entity.Autoresponder, error)
	Update(ctx context.Context, a *entity.Autoresponder) error
	Delete(ctx context.Context, id string) error
}

// Service handles autoresponder configuration business logic
type Service struct {
	repo Repository
}

// New creates a new autoresponder service
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput represents input for creating an autoresponder
type CreateInput struct {
	AccountID   string
	Kind        entity.Kind
	Name        string
	IsActive    bool
	UseKeywords bool
	Keywords    []string
	MessageText string
	ReplyText   string
	MediaIDs    []string
}

// Create validates and stores a new autoresponder
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Autoresponder, error) {
	if err := validateConfig(in.Kind, in.MessageText, in.UseKeywords, in.Keywords); err != nil {
		return nil, err
	}

	a := &entity.Autoresponder{
		ID:          uuid.New().String(),
		AccountID:   in.AccountID,
		Kind:        in.Kind,
		Name:        in.Name,
		IsActive:    in.IsActive,
		UseKeywords: in.UseKeywords,
		Keywords:    in.Keywords,
		MessageText: in.MessageText,
		ReplyText:   in.ReplyText,
		MediaIDs:    in.MediaIDs,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

// UpdateInput represents input for updating an autoresponder
type UpdateInput struct {
	ID          string
	Name        string
	IsActive    bool
	UseKeywords bool
	Keywords    []string
	MessageText string
	ReplyText   string
	MediaIDs    []string
	Position    *int
}

// Update validates and stores changes to an existing autoresponder.
// The kind is immutable: changing a responder's variant in place would
// silently reinterpret its templates.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*entity.Autoresponder, error) {
	a, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, entity.ErrNotFound
	}

	if err := validateConfig(a.Kind, in.MessageText, in.UseKeywords, in.Keywords); err != nil {
		return nil, err
	}

	a.Name = in.Name
	a.IsActive = in.IsActive
	a.UseKeywords = in.UseKeywords
	a.Keywords = in.Keywords
	a.MessageText = in.MessageText
	a.ReplyText = in.ReplyText
	a.MediaIDs = in.MediaIDs
	if in.Position != nil {
		a.Position = *in.Position
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

// List returns all autoresponders for an account in priority order
func (s *Service) List(ctx context.Context, accountID string) ([]entity.Autoresponder, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

// Get returns one autoresponder
func (s *Service) Get(ctx context.Context, id string) (*entity.Autoresponder, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, entity.ErrNotFound
	}
	return a, nil
}

// Delete removes an autoresponder
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func validateConfig(kind entity.Kind, messageText string, useKeywords bool, keywords []string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", entity.ErrInvalidKind, kind)
	}
	if messageText == "" {
		return entity.ErrEmptyMessage
	}
	if useKeywords && len(keywords) == 0 {
		return entity.ErrMissingKeyword
	}
	return nil
}
