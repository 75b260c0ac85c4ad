package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hower/prospector/internal/domain/account/entity"
	"github.com/hower/prospector/internal/httpx/response"
)

// AccountInfo represents a connected Instagram account
type AccountInfo struct {
	ID              string `json:"id"`
	InstagramUserID string `json:"instagram_user_id"`
	Username        string `json:"username"`
	HasAccessToken  bool   `json:"has_access_token"`
}

// AccountRepository defines the interface for account storage
type AccountRepository interface {
	List(ctx context.Context) ([]entity.Account, error)
	GetByID(ctx context.Context, id string) (*entity.Account, error)
}

// AccountHandler handles HTTP requests for connected accounts
type AccountHandler struct {
	repo AccountRepository
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(repo AccountRepository) *AccountHandler {
	return &AccountHandler{repo: repo}
}

// RegisterRoutes registers account routes
func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts", h.List())
	r.Get("/accounts/{id}", h.Get())
}

// List handles GET /accounts
func (h *AccountHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := h.repo.List(r.Context())
		if err != nil {
			response.InternalError(w, "failed to list accounts")
			return
		}

		infos := make([]AccountInfo, 0, len(accounts))
		for _, acc := range accounts {
			infos = append(infos, accountInfo(acc))
		}

		response.OK(w, map[string]interface{}{
			"accounts": infos,
			"total":    len(infos),
		})
	}
}

// Get handles GET /accounts/{id}
func (h *AccountHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		acc, err := h.repo.GetByID(r.Context(), id)
		if err != nil {
			response.InternalError(w, "failed to get account")
			return
		}
		if acc == nil {
			response.NotFound(w, "account not found")
			return
		}

		response.OK(w, accountInfo(*acc))
	}
}

// accountInfo strips credentials before an account leaves the API
func accountInfo(acc entity.Account) AccountInfo {
	return AccountInfo{
		ID:              acc.ID,
		InstagramUserID: acc.InstagramUserID,
		Username:        acc.Username,
		HasAccessToken:  acc.AccessToken != "",
	}
}
