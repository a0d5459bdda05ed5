// Package chat persists conversations and runs user turns through the
// scheduling agent.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"clinic-agent/internal/agent"
	"clinic-agent/internal/clinic"
	"clinic-agent/internal/database"
	"clinic-agent/internal/llm"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session drives one conversation: persistence plus the agent round trip.
type Session struct {
	mu        sync.Mutex
	db        *gorm.DB
	sessionID uuid.UUID
	agent     *agent.Agent
	titler    *llm.OpenAIClient // optional
	fallback  string
}

// Chat processes a user message and returns the assistant reply. Agent
// failures degrade to the apology fallback rather than an error; the turn is
// still recorded.
func (s *Session) Chat(ctx context.Context, userInput string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := GetSession(s.db, s.sessionID)
	if err != nil {
		return "", fmt.Errorf("could not load session: %w", err)
	}

	history, err := GetMessages(s.db, s.sessionID)
	if err != nil {
		return "", fmt.Errorf("could not load chat history: %w", err)
	}

	if err := SaveMessage(s.db, &database.ChatMessage{
		SessionID: s.sessionID,
		Role:      RoleUser,
		Content:   userInput,
	}); err != nil {
		return "", fmt.Errorf("could not save user message: %w", err)
	}

	turns := make([]agent.Turn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, agent.Turn{Role: msg.Role, Content: msg.Content})
	}

	reply, err := s.agent.Respond(ctx, turns, userInput)
	if err != nil {
		slog.Error("agent error, returning fallback reply", "session_id", s.sessionID, "error", err)
		reply = s.fallback
	}

	if err := SaveMessage(s.db, &database.ChatMessage{
		SessionID: s.sessionID,
		Role:      RoleAssistant,
		Content:   reply,
	}); err != nil {
		return "", fmt.Errorf("could not save assistant message: %w", err)
	}

	if session.Title == "" && len(history) == 0 {
		s.generateTitle(ctx, userInput)
	}

	return reply, nil
}

// generateTitle is best effort: a missing or failed title never surfaces to
// the caller.
func (s *Session) generateTitle(ctx context.Context, userInput string) {
	if s.titler == nil {
		return
	}

	title, err := s.titler.Generate(ctx, agent.TitlePrompt, userInput)
	if err != nil {
		slog.Warn("could not generate session title", "session_id", s.sessionID, "error", err)
		return
	}

	title = strings.Trim(strings.TrimSpace(title), `"`)
	if title == "" {
		return
	}

	if err := UpdateSessionTitle(s.db, s.sessionID, title); err != nil {
		slog.Warn("could not save session title", "session_id", s.sessionID, "error", err)
	}
}

const sessionCacheSize = 100

// SessionManager creates sessions bound to the shared agent.
type SessionManager struct {
	db       *gorm.DB
	agent    *agent.Agent
	titler   *llm.OpenAIClient
	fallback string
	cache    *sessionCache
}

func NewSessionManager(db *gorm.DB, ag *agent.Agent, titler *llm.OpenAIClient, info *clinic.Info) *SessionManager {
	return &SessionManager{
		db:     db,
		agent:  ag,
		titler: titler,
		fallback: fmt.Sprintf(
			"I apologize, but I'm having trouble processing your request right now. Please try again or call our office at %s for assistance.",
			info.Phone,
		),
		cache: newSessionCache(sessionCacheSize),
	}
}

// Session returns the shared handle for the given conversation. Concurrent
// turns on the same session serialize on the handle's mutex.
func (m *SessionManager) Session(sessionID uuid.UUID) *Session {
	return m.cache.get(sessionID, func() *Session {
		return &Session{
			db:        m.db,
			sessionID: sessionID,
			agent:     m.agent,
			titler:    m.titler,
			fallback:  m.fallback,
		}
	})
}
