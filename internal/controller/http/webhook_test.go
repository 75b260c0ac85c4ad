package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hower/prospector/internal/domain/dispatch/service"
)

type fakeDispatcher struct {
	messages []service.InboundMessage
	comments []service.InboundComment
	result   *service.Result
	err      error
}

func (f *fakeDispatcher) HandleMessage(_ context.Context, ev service.InboundMessage) (*service.Result, error) {
	f.messages = append(f.messages, ev)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeDispatcher) HandleComment(_ context.Context, ev service.InboundComment) (*service.Result, error) {
	f.comments = append(f.comments, ev)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeArchive struct {
	stored [][]byte
	key    string
}

func (f *fakeArchive) Store(_ context.Context, body []byte) (string, error) {
	f.stored = append(f.stored, body)
	return f.key, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newWebhookRouter(h *WebhookHandler) chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestWebhookVerify(t *testing.T) {
	h := NewWebhookHandler(&fakeDispatcher{}, nil, "secret-token", "", testLogger())
	router := newWebhookRouter(h)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid handshake echoes challenge",
			query:      "hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345",
			wantStatus: http.StatusOK,
			wantBody:   "12345",
		},
		{
			name:       "wrong token rejected",
			query:      "hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong mode rejected",
			query:      "hub.mode=unsubscribe&hub.verify_token=secret-token&hub.challenge=12345",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestWebhookReceiveMessage(t *testing.T) {
	d := &fakeDispatcher{result: &service.Result{Outcome: service.OutcomeSent}}
	h := NewWebhookHandler(d, nil, "secret-token", "", testLogger())
	router := newWebhookRouter(h)

	body := `{
		"object": "instagram",
		"entry": [{
			"id": "acc-1",
			"time": 1700000000,
			"messaging": [{
				"sender": {"id": "user-9"},
				"recipient": {"id": "acc-1"},
				"timestamp": 1700000000000,
				"message": {"mid": "mid-1", "text": "price please"}
			}]
		}]
	}`

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(d.messages) != 1 {
		t.Fatalf("dispatched %d messages, want 1", len(d.messages))
	}

	got := d.messages[0]
	if got.MessageID != "mid-1" {
		t.Errorf("MessageID = %q, want mid-1", got.MessageID)
	}
	if got.SenderID != "user-9" || got.RecipientID != "acc-1" {
		t.Errorf("addressing = %q -> %q, want user-9 -> acc-1", got.SenderID, got.RecipientID)
	}
	if got.Text != "price please" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Timestamp.UnixMilli() != 1700000000000 {
		t.Errorf("Timestamp = %v", got.Timestamp)
	}
}

func TestWebhookReceiveSkipsEchoes(t *testing.T) {
	d := &fakeDispatcher{result: &service.Result{Outcome: service.OutcomeSent}}
	h := NewWebhookHandler(d, nil, "secret-token", "", testLogger())
	router := newWebhookRouter(h)

	body := `{
		"object": "instagram",
		"entry": [{
			"id": "acc-1",
			"messaging": [
				{
					"sender": {"id": "acc-1"},
					"recipient": {"id": "user-9"},
					"timestamp": 1700000000000,
					"message": {"mid": "mid-echo", "text": "hi", "is_echo": true}
				},
				{
					"sender": {"id": "user-9"},
					"recipient": {"id": "acc-1"},
					"timestamp": 1700000001000
				}
			]
		}]
	}`

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(d.messages) != 0 {
		t.Errorf("dispatched %d messages, want 0 (echo and message-less events skipped)", len(d.messages))
	}
}

func TestWebhookReceiveComment(t *testing.T) {
	d := &fakeDispatcher{result: &service.Result{Outcome: service.OutcomeSent}}
	h := NewWebhookHandler(d, nil, "secret-token", "", testLogger())
	router := newWebhookRouter(h)

	body := `{
		"object": "instagram",
		"entry": [{
			"id": "acc-1",
			"time": 1700000000,
			"changes": [
				{
					"field": "comments",
					"value": {
						"id": "comment-5",
						"text": "link?",
						"from": {"id": "user-9", "username": "niner"},
						"media": {"id": "media-2"}
					}
				},
				{
					"field": "mentions",
					"value": {"id": "ignored"}
				}
			]
		}]
	}`

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(d.comments) != 1 {
		t.Fatalf("dispatched %d comments, want 1", len(d.comments))
	}

	got := d.comments[0]
	if got.CommentID != "comment-5" || got.MediaID != "media-2" {
		t.Errorf("comment = %q on media %q", got.CommentID, got.MediaID)
	}
	if got.SenderID != "user-9" || got.RecipientID != "acc-1" {
		t.Errorf("addressing = %q -> %q", got.SenderID, got.RecipientID)
	}
	if got.Timestamp.Unix() != 1700000000 {
		t.Errorf("Timestamp = %v, want entry time", got.Timestamp)
	}
}

func TestWebhookReceiveMalformedBodyStill200(t *testing.T) {
	d := &fakeDispatcher{}
	h := NewWebhookHandler(d, nil, "secret-token", "", testLogger())
	router := newWebhookRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString("not json at all"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 to avoid redelivery storms", rec.Code)
	}
	if len(d.messages) != 0 || len(d.comments) != 0 {
		t.Error("nothing should have been dispatched")
	}
}

func TestWebhookReceiveDispatcherErrorStill200(t *testing.T) {
	d := &fakeDispatcher{err: context.DeadlineExceeded}
	h := NewWebhookHandler(d, nil, "secret-token", "", testLogger())
	router := newWebhookRouter(h)

	body := `{"entry":[{"id":"acc-1","messaging":[{"sender":{"id":"u"},"recipient":{"id":"acc-1"},"timestamp":1700000000000,"message":{"mid":"m1","text":"hi"}}]}]}`

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestWebhookSignatureVerification(t *testing.T) {
	const secret = "app-secret"
	body := `{"entry":[{"id":"acc-1","messaging":[{"sender":{"id":"u"},"recipient":{"id":"acc-1"},"timestamp":1700000000000,"message":{"mid":"m1","text":"hi"}}]}]}`

	sign := func(payload string) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(payload))
		return "sha256=" + hex.EncodeToString(mac.Sum(nil))
	}

	d := &fakeDispatcher{result: &service.Result{Outcome: service.OutcomeNoMatch}}
	h := NewWebhookHandler(d, nil, "secret-token", secret, testLogger())
	router := newWebhookRouter(h)

	t.Run("valid signature accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
		req.Header.Set("X-Hub-Signature-256", sign(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if len(d.messages) != 1 {
			t.Errorf("dispatched %d messages, want 1", len(d.messages))
		}
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		before := len(d.messages)
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body+" "))
		req.Header.Set("X-Hub-Signature-256", sign(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if len(d.messages) != before {
			t.Error("rejected delivery must not be dispatched")
		}
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestWebhookArchivesRawPayload(t *testing.T) {
	d := &fakeDispatcher{result: &service.Result{Outcome: service.OutcomeNoMatch}}
	archive := &fakeArchive{key: "webhooks/2026/08/30/abc.json"}
	h := NewWebhookHandler(d, archive, "secret-token", "", testLogger())
	router := newWebhookRouter(h)

	body := `{"entry":[{"id":"acc-1","messaging":[{"sender":{"id":"u"},"recipient":{"id":"acc-1"},"timestamp":1700000000000,"message":{"mid":"m1","text":"hi"}}]}]}`

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(archive.stored) != 1 || string(archive.stored[0]) != body {
		t.Fatal("raw body should be archived before parsing")
	}
	if len(d.messages) != 1 || d.messages[0].RawKey != archive.key {
		t.Error("dispatched event should carry the archive key")
	}
}
