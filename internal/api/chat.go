package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"clinic-agent/internal/chat"
	"clinic-agent/internal/database"
	"clinic-agent/pkg/api"
)

type ChatService struct {
	db      *gorm.DB
	manager *chat.SessionManager
}

func NewChatService(db *gorm.DB, manager *chat.SessionManager) *ChatService {
	return &ChatService{db: db, manager: manager}
}

func (s *ChatService) AddRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Get("/sessions", RestHandler(s.GetSessions))
		r.Post("/sessions", RestHandler(s.StartSession))
		r.Get("/sessions/{session_id}", RestHandler(s.GetSession))
		r.Post("/sessions/{session_id}/rename", RestHandler(s.RenameSession))
		r.Delete("/sessions/{session_id}", RestHandler(s.DeleteSession))
		r.Post("/sessions/{session_id}/messages", RestHandler(s.SendMessage))
		r.Get("/sessions/{session_id}/history", RestHandler(s.GetHistory))
	})
}

func (s *ChatService) GetSessions(r *http.Request) (any, error) {
	sessions, err := chat.GetSessions(s.db)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing sessions")
	}

	resp := api.GetSessionsResponse{Sessions: make([]api.ChatSessionMetadata, 0, len(sessions))}
	for _, session := range sessions {
		resp.Sessions = append(resp.Sessions, api.ChatSessionMetadata{
			ID:        session.ID,
			Title:     session.Title,
			CreatedAt: session.CreatedAt,
		})
	}
	return resp, nil
}

func (s *ChatService) StartSession(r *http.Request) (any, error) {
	req, err := ParseRequest[api.StartSessionRequest](r)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New()
	err = chat.CreateSession(s.db, &database.ChatSession{
		ID:        sessionID,
		Title:     req.Title,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error creating session")
	}

	return api.StartSessionResponse{SessionID: sessionID.String()}, nil
}

func (s *ChatService) GetSession(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	session, err := chat.GetSession(s.db, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, CodedErrorf(http.StatusNotFound, "session not found")
	}
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving session")
	}

	return api.ChatSessionMetadata{ID: session.ID, Title: session.Title, CreatedAt: session.CreatedAt}, nil
}

func (s *ChatService) RenameSession(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}
	req, err := ParseRequest[api.RenameSessionRequest](r)
	if err != nil {
		return nil, err
	}

	if err := chat.UpdateSessionTitle(s.db, sessionID, req.Title); err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error renaming session")
	}

	return nil, nil
}

func (s *ChatService) DeleteSession(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	if err := chat.DeleteSession(s.db, sessionID); err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error deleting session")
	}

	return nil, nil
}

func (s *ChatService) SendMessage(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.ChatRequest](r)
	if err != nil {
		return nil, err
	}
	if req.Message == "" {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "message is required")
	}

	if _, err := chat.GetSession(s.db, sessionID); errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, CodedErrorf(http.StatusNotFound, "session not found")
	} else if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving session")
	}

	reply, err := s.manager.Session(sessionID).Chat(r.Context(), req.Message)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error processing message")
	}

	return api.ChatResponse{Reply: reply}, nil
}

func (s *ChatService) GetHistory(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	messages, err := chat.GetMessages(s.db, sessionID)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving chat history")
	}

	resp := api.ChatHistoryResponse{Messages: make([]api.ChatHistoryItem, 0, len(messages))}
	for _, msg := range messages {
		resp.Messages = append(resp.Messages, api.ChatHistoryItem{Role: msg.Role, Content: msg.Content})
	}
	return resp, nil
}
