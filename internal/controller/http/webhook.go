package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hower/prospector/internal/domain/dispatch/service"
	"github.com/hower/prospector/internal/httpx/response"
)

// Dispatcher processes inbound webhook events
type Dispatcher interface {
	HandleMessage(ctx context.Context, ev service.InboundMessage) (*service.Result, error)
	HandleComment(ctx context.Context, ev service.InboundComment) (*service.Result, error)
}

// PayloadArchive stores raw webhook bodies for replay and debugging
type PayloadArchive interface {
	Store(ctx context.Context, body []byte) (string, error)
}

// WebhookHandler handles Instagram webhook verification and event delivery
type WebhookHandler struct {
	dispatcher  Dispatcher
	archive     PayloadArchive // optional
	verifyToken string
	appSecret   string
	logger      *slog.Logger
}

// NewWebhookHandler creates a new webhook handler. archive may be nil when
// payload archiving is disabled.
func NewWebhookHandler(d Dispatcher, archive PayloadArchive, verifyToken, appSecret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		dispatcher:  d,
		archive:     archive,
		verifyToken: verifyToken,
		appSecret:   appSecret,
		logger:      logger,
	}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	// Subscription verification handshake
	r.Get("/webhook", h.Verify())

	// Event delivery
	r.Post("/webhook", h.Receive())
}

// Verify handles GET /webhook (the hub challenge handshake)
func (h *WebhookHandler) Verify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := r.URL.Query().Get("hub.mode")
		token := r.URL.Query().Get("hub.verify_token")
		challenge := r.URL.Query().Get("hub.challenge")

		if mode != "subscribe" || token != h.verifyToken {
			response.Unauthorized(w, "verification failed")
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
	}
}

// webhookPayload mirrors the Instagram webhook envelope
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string           `json:"id"`
		Time      int64            `json:"time"`
		Messaging []messagingEvent `json:"messaging"`
		Changes   []changeEvent    `json:"changes"`
	} `json:"entry"`
}

type messagingEvent struct {
	Sender    struct{ ID string } `json:"sender"`
	Recipient struct{ ID string } `json:"recipient"`
	Timestamp int64               `json:"timestamp"` // milliseconds
	Message   *struct {
		MID    string `json:"mid"`
		Text   string `json:"text"`
		IsEcho bool   `json:"is_echo"`
	} `json:"message"`
}

type changeEvent struct {
	Field string `json:"field"`
	Value struct {
		ID   string `json:"id"`
		Text string `json:"text"`
		From struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"from"`
		Media struct {
			ID string `json:"id"`
		} `json:"media"`
	} `json:"value"`
}

// Receive handles POST /webhook. Malformed payloads and individual event
// failures are logged but still answered with 200: a non-2xx makes the
// platform redeliver the whole batch, which duplicates work the idempotent
// insert already absorbs.
func (h *WebhookHandler) Receive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			response.BadRequest(w, "failed to read body")
			return
		}

		if h.appSecret != "" {
			if !h.validSignature(r.Header.Get("X-Hub-Signature-256"), body) {
				response.Unauthorized(w, "invalid signature")
				return
			}
		}

		var rawKey string
		if h.archive != nil {
			key, err := h.archive.Store(r.Context(), body)
			if err != nil {
				// Archiving is best effort; dispatch proceeds without the key.
				h.logger.Warn("archiving webhook payload failed", "error", err)
			} else {
				rawKey = key
			}
		}

		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			h.logger.Warn("unparseable webhook payload", "error", err)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("EVENT_RECEIVED"))
			return
		}

		for _, entry := range payload.Entry {
			for _, ev := range entry.Messaging {
				h.dispatchMessage(r.Context(), ev, rawKey)
			}
			for _, ch := range entry.Changes {
				h.dispatchChange(r.Context(), entry.ID, entry.Time, ch, rawKey)
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("EVENT_RECEIVED"))
	}
}

func (h *WebhookHandler) dispatchMessage(ctx context.Context, ev messagingEvent, rawKey string) {
	if ev.Message == nil || ev.Message.IsEcho {
		return
	}

	result, err := h.dispatcher.HandleMessage(ctx, service.InboundMessage{
		MessageID:   ev.Message.MID,
		SenderID:    ev.Sender.ID,
		RecipientID: ev.Recipient.ID,
		Text:        ev.Message.Text,
		Timestamp:   time.UnixMilli(ev.Timestamp),
		RawKey:      rawKey,
	})
	if err != nil {
		if errors.Is(err, service.ErrMalformedEvent) {
			h.logger.Warn("dropped malformed message event", "sender_id", ev.Sender.ID)
			return
		}
		h.logger.Error("message dispatch failed",
			"message_id", ev.Message.MID,
			"sender_id", ev.Sender.ID,
			"error", err,
		)
		return
	}

	h.logger.Info("message event processed",
		"message_id", ev.Message.MID,
		"outcome", result.Outcome,
	)
}

func (h *WebhookHandler) dispatchChange(ctx context.Context, accountID string, entryTime int64, ch changeEvent, rawKey string) {
	if ch.Field != "comments" {
		return
	}

	ts := time.Now()
	if entryTime > 0 {
		ts = time.Unix(entryTime, 0)
	}

	result, err := h.dispatcher.HandleComment(ctx, service.InboundComment{
		CommentID:   ch.Value.ID,
		MediaID:     ch.Value.Media.ID,
		SenderID:    ch.Value.From.ID,
		RecipientID: accountID,
		Text:        ch.Value.Text,
		Timestamp:   ts,
		RawKey:      rawKey,
	})
	if err != nil {
		if errors.Is(err, service.ErrMalformedEvent) {
			h.logger.Warn("dropped malformed comment event", "account_id", accountID)
			return
		}
		h.logger.Error("comment dispatch failed",
			"comment_id", ch.Value.ID,
			"error", err,
		)
		return
	}

	h.logger.Info("comment event processed",
		"comment_id", ch.Value.ID,
		"outcome", result.Outcome,
	)
}

// validSignature checks the X-Hub-Signature-256 header against the HMAC of
// the raw body.
func (h *WebhookHandler) validSignature(header string, body []byte) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(header, prefix)))
}
