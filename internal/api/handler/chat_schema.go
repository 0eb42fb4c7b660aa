package handler

import (
	"time"

	"github.com/shopassist/shopchat/internal/api/backend"
)

type messageRequest struct {
	Message   string `json:"message" validate:"required,max=1000"`
	SessionID string `json:"session_id,omitempty" validate:"max=100"`
}

type chatMessageResponse struct {
	ID          int64          `json:"id"`
	MessageType string         `json:"message_type"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata"`
	Timestamp   time.Time      `json:"timestamp"`
}

type chatSessionResponse struct {
	ID           int64                 `json:"id"`
	SessionID    string                `json:"session_id"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	IsActive     bool                  `json:"is_active"`
	Messages     []chatMessageResponse `json:"messages"`
	MessageCount int                   `json:"message_count"`
}

type exchangeResponse struct {
	SessionID   string              `json:"session_id"`
	UserMessage chatMessageResponse `json:"user_message"`
	BotResponse chatMessageResponse `json:"bot_response"`
	Intent      string              `json:"intent"`
	Confidence  float64             `json:"confidence"`
}

type sessionListResponse struct {
	Sessions []chatSessionResponse `json:"sessions"`
}

type detailResponse struct {
	Message string `json:"message"`
}

func toMessageResponse(m backend.ChatMessage) chatMessageResponse {
	metadata := m.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return chatMessageResponse{
		ID:          m.ID,
		MessageType: m.Type,
		Content:     m.Content,
		Metadata:    metadata,
		Timestamp:   m.Timestamp,
	}
}

func toSessionResponse(s backend.ChatSession) chatSessionResponse {
	msgs := make([]chatMessageResponse, len(s.Messages))
	for i, m := range s.Messages {
		msgs[i] = toMessageResponse(m)
	}
	return chatSessionResponse{
		ID:           s.ID,
		SessionID:    s.SessionID,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		IsActive:     true,
		Messages:     msgs,
		MessageCount: len(msgs),
	}
}

func toExchangeResponse(ex *backend.Exchange) exchangeResponse {
	return exchangeResponse{
		SessionID:   ex.SessionID,
		UserMessage: toMessageResponse(ex.User),
		BotResponse: toMessageResponse(ex.Bot),
		Intent:      ex.Intent,
		Confidence:  ex.Confidence,
	}
}
