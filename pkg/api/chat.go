package api

import (
	"time"

	"github.com/google/uuid"
)

type StartSessionRequest struct {
	Title string `json:"title"`
}

type StartSessionResponse struct {
	SessionID string `json:"session_id"`
}

type ChatSessionMetadata struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type GetSessionsResponse struct {
	Sessions []ChatSessionMetadata `json:"sessions"`
}

type RenameSessionRequest struct {
	Title string `json:"title"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type ChatHistoryItem struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

type ChatHistoryResponse struct {
	Messages []ChatHistoryItem `json:"messages"`
}
