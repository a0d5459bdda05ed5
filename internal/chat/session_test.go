package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"clinic-agent/internal/agent"
	"clinic-agent/internal/calendar"
	"clinic-agent/internal/chat"
	"clinic-agent/internal/clinic"
	"clinic-agent/internal/database"
	"clinic-agent/internal/rag"
)

type fakeModel struct {
	reply string
	err   error
	delay time.Duration
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func createDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())
	return db
}

func createManager(t *testing.T, db *gorm.DB, model llms.Model) *chat.SessionManager {
	info, err := clinic.Parse([]byte(`{"clinic_details": {"name": "Riverside Medical", "phone": "+1-555-999-0000"}}`))
	require.NoError(t, err)

	index, err := rag.NewIndex(chromem.EmbeddingFunc(func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0, 0}, nil
	}))
	require.NoError(t, err)

	toolbox := agent.NewToolbox(calendar.NewScheduler(db), index, info)
	return chat.NewSessionManager(db, agent.New(model, toolbox, info), nil, info)
}

func TestSessionHelpers(t *testing.T) {
	db := createDB(t)

	first := database.ChatSession{ID: uuid.New(), Title: "First", CreatedAt: time.Now().Add(-time.Hour)}
	second := database.ChatSession{ID: uuid.New(), Title: "Second", CreatedAt: time.Now()}
	require.NoError(t, chat.CreateSession(db, &first))
	require.NoError(t, chat.CreateSession(db, &second))

	sessions, err := chat.GetSessions(db)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "Second", sessions[0].Title)

	require.NoError(t, chat.UpdateSessionTitle(db, first.ID, "Renamed"))
	loaded, err := chat.GetSession(db, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Title)

	require.NoError(t, chat.SaveMessage(db, &database.ChatMessage{SessionID: first.ID, Role: chat.RoleUser, Content: "hi"}))
	require.NoError(t, chat.SaveMessage(db, &database.ChatMessage{SessionID: first.ID, Role: chat.RoleAssistant, Content: "hello"}))

	messages, err := chat.GetMessages(db, first.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, chat.RoleUser, messages[0].Role)
	assert.Equal(t, chat.RoleAssistant, messages[1].Role)

	require.NoError(t, chat.DeleteSession(db, first.ID))
	_, err = chat.GetSession(db, first.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	messages, err = chat.GetMessages(db, first.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestChatPersistsTurn(t *testing.T) {
	db := createDB(t)
	manager := createManager(t, db, &fakeModel{reply: "We are open 9 to 5, Monday through Friday."})

	session := database.ChatSession{ID: uuid.New()}
	require.NoError(t, chat.CreateSession(db, &session))

	reply, err := manager.Session(session.ID).Chat(context.Background(), "what are your hours?")
	require.NoError(t, err)
	assert.Equal(t, "We are open 9 to 5, Monday through Friday.", reply)

	messages, err := chat.GetMessages(db, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, chat.RoleUser, messages[0].Role)
	assert.Equal(t, "what are your hours?", messages[0].Content)
	assert.Equal(t, chat.RoleAssistant, messages[1].Role)
	assert.Equal(t, reply, messages[1].Content)
}

func TestChatFallbackOnAgentError(t *testing.T) {
	db := createDB(t)
	manager := createManager(t, db, &fakeModel{err: errors.New("rate limited")})

	session := database.ChatSession{ID: uuid.New()}
	require.NoError(t, chat.CreateSession(db, &session))

	reply, err := manager.Session(session.ID).Chat(context.Background(), "hello?")
	require.NoError(t, err)
	assert.Contains(t, reply, "I apologize, but I'm having trouble processing your request right now.")
	assert.Contains(t, reply, "+1-555-999-0000")

	// The failed turn is still recorded.
	messages, err := chat.GetMessages(db, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, reply, messages[1].Content)
}

func TestSessionHandleIsShared(t *testing.T) {
	db := createDB(t)
	manager := createManager(t, db, &fakeModel{reply: "hi"})

	sessionID := uuid.New()
	assert.Same(t, manager.Session(sessionID), manager.Session(sessionID))
}

func TestConcurrentTurnsSerialize(t *testing.T) {
	db := createDB(t)
	manager := createManager(t, db, &fakeModel{reply: "noted", delay: 50 * time.Millisecond})

	session := database.ChatSession{ID: uuid.New(), Title: "Concurrent"}
	require.NoError(t, chat.CreateSession(db, &session))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Session(session.ID).Chat(context.Background(), "hello")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	messages, err := chat.GetMessages(db, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 4)

	roles := make([]string, 0, len(messages))
	for _, msg := range messages {
		roles = append(roles, msg.Role)
	}
	assert.Equal(t, []string{chat.RoleUser, chat.RoleAssistant, chat.RoleUser, chat.RoleAssistant}, roles)
}

func TestChatUnknownSession(t *testing.T) {
	db := createDB(t)
	manager := createManager(t, db, &fakeModel{reply: "hi"})

	_, err := manager.Session(uuid.New()).Chat(context.Background(), "hello")
	assert.Error(t, err)
}
