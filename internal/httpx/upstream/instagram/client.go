package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL    = "https://graph.instagram.com"
	defaultAPIVersion = "v21.0"
	defaultTimeout    = 30 * time.Second
)

// Client is an Instagram Graph API client for the messaging surface:
// direct messages and private replies to comments.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithAPIVersion sets the API version
func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		c.apiVersion = version
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a new Instagram API client
func New(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiVersion: defaultAPIVersion,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Named gateway conditions. The platform enforces a response window on sends
// (24h for DMs, 7 days for private replies); violating it is a distinct,
// recognizable error rather than a generic failure.
var (
	ErrOutsideWindow = errors.New("outside allowed messaging window")
	ErrInvalidToken  = errors.New("invalid or expired access token")
)

// APIError represents an error from the Instagram API
type APIError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FBTraceID    string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instagram API error: %s (code: %d, subcode: %d)", e.Message, e.Code, e.ErrorSubcode)
}

// Is classifies the raw API error codes into the named conditions, so callers
// can use errors.Is(err, ErrOutsideWindow) without inspecting codes.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrOutsideWindow:
		return e.Code == 10 && (e.ErrorSubcode == 2018278 || e.ErrorSubcode == 2534022)
	case ErrInvalidToken:
		return e.Code == 190
	}
	return false
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ButtonType is the kind of call-to-action button attached to a message
type ButtonType string

const (
	ButtonTypeWebURL   ButtonType = "web_url"
	ButtonTypePostback ButtonType = "postback"
)

// Button is an optional call-to-action attached to an outbound message
type Button struct {
	Type    ButtonType `json:"type"`
	Title   string     `json:"title"`
	URL     string     `json:"url,omitempty"`
	Payload string     `json:"payload,omitempty"`
}

// SendMessageInput represents input for sending a message. Exactly one of
// RecipientID (direct message) or CommentID (private reply) must be set.
type SendMessageInput struct {
	UserID      string
	AccessToken string
	RecipientID string
	CommentID   string
	Text        string
	Button      *Button
}

// SendMessageOutput represents output from sending a message
type SendMessageOutput struct {
	MessageID   string `json:"message_id"`
	RecipientID string `json:"recipient_id"`
}

type sendRecipient struct {
	ID        string `json:"id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
}

type sendMessage struct {
	Text       string          `json:"text,omitempty"`
	Attachment *sendAttachment `json:"attachment,omitempty"`
}

type sendAttachment struct {
	Type    string                `json:"type"`
	Payload sendAttachmentPayload `json:"payload"`
}

type sendAttachmentPayload struct {
	TemplateType string   `json:"template_type"`
	Text         string   `json:"text"`
	Buttons      []Button `json:"buttons"`
}

type sendRequest struct {
	Recipient sendRecipient `json:"recipient"`
	Message   sendMessage   `json:"message"`
}

// SendMessage sends a message through the gateway, either as a direct message
// (by recipient id) or as a private reply (by comment id).
// POST /{ig-user-id}/messages
func (c *Client) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	if in.RecipientID == "" && in.CommentID == "" {
		return nil, fmt.Errorf("sending message: recipient id or comment id required")
	}

	endpoint := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, in.UserID)

	params := url.Values{}
	params.Set("access_token", in.AccessToken)

	body := sendRequest{
		Recipient: sendRecipient{ID: in.RecipientID, CommentID: in.CommentID},
	}
	if in.Button != nil {
		body.Message.Attachment = &sendAttachment{
			Type: "template",
			Payload: sendAttachmentPayload{
				TemplateType: "button",
				Text:         in.Text,
				Buttons:      []Button{*in.Button},
			},
		}
	} else {
		body.Message.Text = in.Text
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out SendMessageOutput
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ReplyToCommentInput represents input for a public reply to a comment
type ReplyToCommentInput struct {
	CommentID   string
	AccessToken string
	Message     string
}

// ReplyToCommentOutput represents output from replying to a comment
type ReplyToCommentOutput struct {
	ID string `json:"id"`
}

// ReplyToComment posts a public reply under a comment
// POST /{comment-id}/replies
func (c *Client) ReplyToComment(ctx context.Context, in ReplyToCommentInput) (*ReplyToCommentOutput, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/replies", c.baseURL, c.apiVersion, in.CommentID)

	params := url.Values{}
	params.Set("access_token", in.AccessToken)
	params.Set("message", in.Message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out ReplyToCommentOutput
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// GetProfileInput represents input for fetching a user profile
type GetProfileInput struct {
	UserID      string
	AccessToken string
}

// GetProfileOutput represents a counterparty's public profile
type GetProfileOutput struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// GetProfile fetches the public profile of a user, used for display names
// GET /{user-id}?fields=id,username,name
func (c *Client) GetProfile(ctx context.Context, in GetProfileInput) (*GetProfileOutput, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, in.UserID)

	params := url.Values{}
	params.Set("access_token", in.AccessToken)
	params.Set("fields", "id,username,name")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out GetProfileOutput
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// do executes an HTTP request and decodes the response
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	// Check for error response
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
		}
		return &errResp.Error
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
