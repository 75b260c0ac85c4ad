package service

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	msgentity "github.com/hower/prospector/internal/domain/message/entity"
)

const systemPrompt = `You are an assistant for an Instagram prospecting tool.
Draft the business's next reply to the conversation below. Match the language
of the counterparty, keep it short and friendly, and move the conversation
toward a concrete next step. Reply with the message text only.`

// ChatCompleter is the subset of the OpenAI client the assistant uses
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// MessageRepository provides conversation history for suggestions
type MessageRepository interface {
	GetByCounterparty(ctx context.Context, accountID, counterpartyID string) ([]msgentity.Message, error)
}

// Service drafts follow-up replies from conversation history using the
// OpenAI chat completion API.
type Service struct {
	client  ChatCompleter
	msgRepo MessageRepository
	model   string
}

// New creates a new assistant service
func New(client ChatCompleter, msgRepo MessageRepository, model string) *Service {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Service{
		client:  client,
		msgRepo: msgRepo,
		model:   model,
	}
}

// SuggestReplyInput represents input for drafting a reply
type SuggestReplyInput struct {
	AccountID      string
	CounterpartyID string
}

// SuggestReplyOutput represents the drafted reply
type SuggestReplyOutput struct {
	Text string
}

// SuggestReply drafts the business's next message to a counterparty
func (s *Service) SuggestReply(ctx context.Context, in SuggestReplyInput) (*SuggestReplyOutput, error) {
	history, err := s.msgRepo.GetByCounterparty(ctx, in.AccountID, in.CounterpartyID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no conversation with %s", in.CounterpartyID)
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Direction == msgentity.DirectionSent {
			role = openai.ChatMessageRoleAssistant
		}
		if m.Text == "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("requesting completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	return &SuggestReplyOutput{Text: resp.Choices[0].Message.Content}, nil
}
