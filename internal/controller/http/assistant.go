package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hower/prospector/internal/domain/assistant/service"
	"github.com/hower/prospector/internal/httpx/response"
)

// AssistantService defines the interface for AI reply drafting
type AssistantService interface {
	SuggestReply(ctx context.Context, in service.SuggestReplyInput) (*service.SuggestReplyOutput, error)
}

// AssistantHandler handles HTTP requests for AI reply suggestions
type AssistantHandler struct {
	service AssistantService
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(s AssistantService) *AssistantHandler {
	return &AssistantHandler{service: s}
}

// RegisterRoutes registers assistant routes
func (h *AssistantHandler) RegisterRoutes(r chi.Router) {
	r.Route("/assistant", func(r chi.Router) {
		// Draft a reply for a conversation
		r.Post("/suggest", h.SuggestReply())
	})
}

// SuggestReplyRequest represents the request body for drafting a reply
type SuggestReplyRequest struct {
	AccountID      string `json:"account_id" validate:"required"`
	CounterpartyID string `json:"counterparty_id" validate:"required"`
}

// SuggestReplyResponse represents the drafted reply
type SuggestReplyResponse struct {
	Text string `json:"text"`
}

// SuggestReply handles POST /assistant/suggest
func (h *AssistantHandler) SuggestReply() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SuggestReplyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		if err := validate.Struct(req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		result, err := h.service.SuggestReply(r.Context(), service.SuggestReplyInput{
			AccountID:      req.AccountID,
			CounterpartyID: req.CounterpartyID,
		})
		if err != nil {
			response.InternalError(w, "failed to draft reply")
			return
		}

		response.OK(w, SuggestReplyResponse{Text: result.Text})
	}
}
