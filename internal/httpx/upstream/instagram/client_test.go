package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendMessageDirect(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(SendMessageOutput{MessageID: "mid.1", RecipientID: "u1"})
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	out, err := c.SendMessage(context.Background(), SendMessageInput{
		UserID:      "biz",
		AccessToken: "tok",
		RecipientID: "u1",
		Text:        "hola",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.MessageID != "mid.1" {
		t.Errorf("unexpected message id %s", out.MessageID)
	}
	if got.Recipient.ID != "u1" || got.Message.Text != "hola" {
		t.Errorf("unexpected request body %+v", got)
	}
}

func TestSendMessagePrivateReply(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(SendMessageOutput{MessageID: "mid.2"})
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	if _, err := c.SendMessage(context.Background(), SendMessageInput{
		UserID:      "biz",
		AccessToken: "tok",
		CommentID:   "cmt-1",
		Text:        "gracias",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Recipient.CommentID != "cmt-1" {
		t.Errorf("expected comment recipient, got %+v", got.Recipient)
	}
}

func TestSendMessageRequiresAddress(t *testing.T) {
	c := New()
	if _, err := c.SendMessage(context.Background(), SendMessageInput{UserID: "biz", Text: "x"}); err == nil {
		t.Fatal("expected error for missing recipient and comment id")
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		subcode int
		want    error
	}{
		{"outside window", 10, 2018278, ErrOutsideWindow},
		{"outside window private reply", 10, 2534022, ErrOutsideWindow},
		{"invalid token", 190, 0, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(ErrorResponse{Error: APIError{
					Message:      "rejected",
					Code:         tt.code,
					ErrorSubcode: tt.subcode,
				}})
			}))
			defer srv.Close()

			c := New(WithBaseURL(srv.URL))
			_, err := c.SendMessage(context.Background(), SendMessageInput{
				UserID: "biz", AccessToken: "tok", RecipientID: "u1", Text: "x",
			})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected errors.Is(err, %v), got %v", tt.want, err)
			}
		})
	}
}

func TestUnknownErrorNotMisclassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: APIError{Message: "boom", Code: 1}})
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	_, err := c.SendMessage(context.Background(), SendMessageInput{
		UserID: "biz", AccessToken: "tok", RecipientID: "u1", Text: "x",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrOutsideWindow) || errors.Is(err, ErrInvalidToken) {
		t.Errorf("generic failure misclassified: %v", err)
	}
}
