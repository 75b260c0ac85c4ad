package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	accentity "github.com/hower/prospector/internal/domain/account/entity"
	msgentity "github.com/hower/prospector/internal/domain/message/entity"
	"github.com/hower/prospector/internal/domain/prospect/entity"
	"github.com/hower/prospector/internal/domain/prospect/policy"
	"github.com/hower/prospector/internal/httpx/response"
)

// ProspectPolicy defines the interface for prospect operations
type ProspectPolicy interface {
	ListProspects(ctx context.Context, accountID string) ([]entity.Prospect, error)
	GetConversation(ctx context.Context, accountID, counterpartyID string) ([]msgentity.Message, error)
	SendMessage(ctx context.Context, in policy.SendMessageInput) (*policy.SendMessageOutput, error)
}

// ProspectHandler handles HTTP requests for the prospect list
type ProspectHandler struct {
	policy ProspectPolicy
}

// NewProspectHandler creates a new prospect handler
func NewProspectHandler(p ProspectPolicy) *ProspectHandler {
	return &ProspectHandler{policy: p}
}

// RegisterRoutes registers prospect routes
func (h *ProspectHandler) RegisterRoutes(r chi.Router) {
	r.Route("/prospects", func(r chi.Router) {
		// List prospects for an account
		r.Get("/", h.List())

		// Get conversation history with one counterparty
		r.Get("/{counterpartyId}/messages", h.GetConversation())

		// Send a manual message to a counterparty
		r.Post("/{counterpartyId}/messages", h.SendMessage())
	})
}

// ListProspectsResponse represents the response for listing prospects
type ListProspectsResponse struct {
	Prospects []entity.Prospect `json:"prospects"`
	Total     int               `json:"total"`
}

// List handles GET /prospects
func (h *ProspectHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			response.BadRequest(w, "account_id is required")
			return
		}

		prospects, err := h.policy.ListProspects(r.Context(), accountID)
		if err != nil {
			handleProspectError(w, err)
			return
		}

		if state := r.URL.Query().Get("state"); state != "" {
			filtered := make([]entity.Prospect, 0, len(prospects))
			for _, p := range prospects {
				if p.State == entity.State(state) {
					filtered = append(filtered, p)
				}
			}
			prospects = filtered
		}

		response.OK(w, ListProspectsResponse{
			Prospects: prospects,
			Total:     len(prospects),
		})
	}
}

// GetConversationResponse represents the response for a conversation history
type GetConversationResponse struct {
	Messages []msgentity.Message `json:"messages"`
	Total    int                 `json:"total"`
}

// GetConversation handles GET /prospects/{counterpartyId}/messages
func (h *ProspectHandler) GetConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counterpartyID := chi.URLParam(r, "counterpartyId")
		accountID := r.URL.Query().Get("account_id")

		if accountID == "" {
			response.BadRequest(w, "account_id is required")
			return
		}

		messages, err := h.policy.GetConversation(r.Context(), accountID, counterpartyID)
		if err != nil {
			handleProspectError(w, err)
			return
		}

		response.OK(w, GetConversationResponse{
			Messages: messages,
			Total:    len(messages),
		})
	}
}

// SendProspectMessageRequest represents the request body for a manual send
type SendProspectMessageRequest struct {
	AccountID    string `json:"account_id"`
	Message      string `json:"message"`
	IsInvitation bool   `json:"is_invitation"`
}

// SendProspectMessageResponse represents the response for a manual send
type SendProspectMessageResponse struct {
	MessageID string `json:"message_id"`
}

// SendMessage handles POST /prospects/{counterpartyId}/messages
func (h *ProspectHandler) SendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counterpartyID := chi.URLParam(r, "counterpartyId")

		var req SendProspectMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		if req.AccountID == "" {
			response.BadRequest(w, "account_id is required")
			return
		}
		if req.Message == "" {
			response.BadRequest(w, "message is required")
			return
		}

		result, err := h.policy.SendMessage(r.Context(), policy.SendMessageInput{
			AccountID:      req.AccountID,
			CounterpartyID: counterpartyID,
			Text:           req.Message,
			IsInvitation:   req.IsInvitation,
		})
		if err != nil {
			handleProspectError(w, err)
			return
		}

		response.Created(w, SendProspectMessageResponse{MessageID: result.MessageID})
	}
}

func handleProspectError(w http.ResponseWriter, err error) {
	switch err {
	case accentity.ErrAccountNotFound:
		response.NotFound(w, err.Error())
	case accentity.ErrMissingToken:
		response.Unauthorized(w, err.Error())
	case msgentity.ErrEmptyMessage:
		response.BadRequest(w, err.Error())
	case msgentity.ErrMessageTooLong:
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
