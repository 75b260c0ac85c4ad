package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hower/prospector/internal/domain/autoresponder/entity"
	"github.com/hower/prospector/internal/domain/autoresponder/service"
	"github.com/hower/prospector/internal/httpx/response"
)

var validate = validator.New()

// AutoresponderService defines the interface for autoresponder configuration
type AutoresponderService interface {
	Create(ctx context.Context, in service.CreateInput) (*entity.Autoresponder, error)
	Update(ctx context.Context, in service.UpdateInput) (*entity.Autoresponder, error)
	List(ctx context.Context, accountID string) ([]entity.Autoresponder, error)
	Get(ctx context.Context, id string) (*entity.Autoresponder, error)
	Delete(ctx context.Context, id string) error
}

// SentLogSource defines the interface for the automated-send audit trail
type SentLogSource interface {
	ListByAccount(ctx context.Context, accountID string, limit int) ([]entity.SentLogEntry, error)
}

// AutoresponderHandler handles HTTP requests for autoresponder configuration
type AutoresponderHandler struct {
	service AutoresponderService
	sentLog SentLogSource
}

// NewAutoresponderHandler creates a new autoresponder handler
func NewAutoresponderHandler(s AutoresponderService, sentLog SentLogSource) *AutoresponderHandler {
	return &AutoresponderHandler{service: s, sentLog: sentLog}
}

// RegisterRoutes registers autoresponder routes
func (h *AutoresponderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/autoresponders", func(r chi.Router) {
		// List autoresponders for an account
		r.Get("/", h.List())

		// Create an autoresponder
		r.Post("/", h.Create())

		// Automated-send audit trail
		r.Get("/sent-log", h.SentLog())

		// Get a single autoresponder
		r.Get("/{autoresponderId}", h.Get())

		// Update an autoresponder
		r.Put("/{autoresponderId}", h.Update())

		// Delete an autoresponder
		r.Delete("/{autoresponderId}", h.Delete())
	})
}

// CreateAutoresponderRequest represents the request body for creating an autoresponder
type CreateAutoresponderRequest struct {
	AccountID   string   `json:"account_id" validate:"required"`
	Kind        string   `json:"kind" validate:"required,oneof=direct_message comment general"`
	Name        string   `json:"name" validate:"required,max=128"`
	IsActive    bool     `json:"is_active"`
	UseKeywords bool     `json:"use_keywords"`
	Keywords    []string `json:"keywords" validate:"dive,min=1"`
	MessageText string   `json:"message_text" validate:"required,max=1000"`
	ReplyText   string   `json:"reply_text" validate:"max=1000"`
	MediaIDs    []string `json:"media_ids"`
}

// Create handles POST /autoresponders
func (h *AutoresponderHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAutoresponderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		if err := validate.Struct(req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		created, err := h.service.Create(r.Context(), service.CreateInput{
			AccountID:   req.AccountID,
			Kind:        entity.Kind(req.Kind),
			Name:        req.Name,
			IsActive:    req.IsActive,
			UseKeywords: req.UseKeywords,
			Keywords:    req.Keywords,
			MessageText: req.MessageText,
			ReplyText:   req.ReplyText,
			MediaIDs:    req.MediaIDs,
		})
		if err != nil {
			handleAutoresponderError(w, err)
			return
		}

		response.Created(w, created)
	}
}

// UpdateAutoresponderRequest represents the request body for updating an autoresponder
type UpdateAutoresponderRequest struct {
	Name        string   `json:"name" validate:"required,max=128"`
	IsActive    bool     `json:"is_active"`
	UseKeywords bool     `json:"use_keywords"`
	Keywords    []string `json:"keywords" validate:"dive,min=1"`
	MessageText string   `json:"message_text" validate:"required,max=1000"`
	ReplyText   string   `json:"reply_text" validate:"max=1000"`
	MediaIDs    []string `json:"media_ids"`
	Position    *int     `json:"position" validate:"omitempty,min=0"`
}

// Update handles PUT /autoresponders/{autoresponderId}
func (h *AutoresponderHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "autoresponderId")

		var req UpdateAutoresponderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		if err := validate.Struct(req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		updated, err := h.service.Update(r.Context(), service.UpdateInput{
			ID:          id,
			Name:        req.Name,
			IsActive:    req.IsActive,
			UseKeywords: req.UseKeywords,
			Keywords:    req.Keywords,
			MessageText: req.MessageText,
			ReplyText:   req.ReplyText,
			MediaIDs:    req.MediaIDs,
			Position:    req.Position,
		})
		if err != nil {
			handleAutoresponderError(w, err)
			return
		}

		response.OK(w, updated)
	}
}

// ListAutorespondersResponse represents the response for listing autoresponders
type ListAutorespondersResponse struct {
	Autoresponders []entity.Autoresponder `json:"autoresponders"`
	Total          int                    `json:"total"`
}

// List handles GET /autoresponders
func (h *AutoresponderHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			response.BadRequest(w, "account_id is required")
			return
		}

		list, err := h.service.List(r.Context(), accountID)
		if err != nil {
			handleAutoresponderError(w, err)
			return
		}

		response.OK(w, ListAutorespondersResponse{
			Autoresponders: list,
			Total:          len(list),
		})
	}
}

// Get handles GET /autoresponders/{autoresponderId}
func (h *AutoresponderHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "autoresponderId")

		a, err := h.service.Get(r.Context(), id)
		if err != nil {
			handleAutoresponderError(w, err)
			return
		}

		response.OK(w, a)
	}
}

// SentLogResponse represents the response for the sent-log audit trail
type SentLogResponse struct {
	Entries []entity.SentLogEntry `json:"entries"`
	Total   int                   `json:"total"`
}

// SentLog handles GET /autoresponders/sent-log
func (h *AutoresponderHandler) SentLog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			response.BadRequest(w, "account_id is required")
			return
		}

		limit := 100
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
				limit = parsed
				if limit > 500 {
					limit = 500
				}
			}
		}

		entries, err := h.sentLog.ListByAccount(r.Context(), accountID, limit)
		if err != nil {
			handleAutoresponderError(w, err)
			return
		}

		response.OK(w, SentLogResponse{
			Entries: entries,
			Total:   len(entries),
		})
	}
}

// Delete handles DELETE /autoresponders/{autoresponderId}
func (h *AutoresponderHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "autoresponderId")

		if err := h.service.Delete(r.Context(), id); err != nil {
			handleAutoresponderError(w, err)
			return
		}

		response.NoContent(w)
	}
}

func handleAutoresponderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, entity.ErrInvalidKind),
		errors.Is(err, entity.ErrEmptyMessage),
		errors.Is(err, entity.ErrMissingKeyword):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
