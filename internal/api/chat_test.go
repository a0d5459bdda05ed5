package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"clinic-agent/internal/agent"
	backend "clinic-agent/internal/api"
	"clinic-agent/internal/calendar"
	"clinic-agent/internal/chat"
	"clinic-agent/internal/clinic"
	"clinic-agent/internal/rag"
	"clinic-agent/pkg/api"
)

func clinicInfo() (*clinic.Info, error) {
	return clinic.Parse([]byte(`{"clinic_details": {"name": "Riverside Medical", "phone": "+1-555-999-0000", "email": "hello@riverside.example"}}`))
}

type fakeModel struct {
	reply string
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func createChatRouter(t *testing.T) chi.Router {
	db := createDB(t)

	info, err := clinicInfo()
	require.NoError(t, err)

	index, err := rag.NewIndex(chromem.EmbeddingFunc(fakeEmbedding))
	require.NoError(t, err)

	toolbox := agent.NewToolbox(calendar.NewScheduler(db), index, info)
	clinicAgent := agent.New(&fakeModel{reply: "We are open 9 to 5, Monday through Friday."}, toolbox, info)
	manager := chat.NewSessionManager(db, clinicAgent, nil, info)

	service := backend.NewChatService(db, manager)
	router := chi.NewRouter()
	service.AddRoutes(router)
	return router
}

func startSession(t *testing.T, router chi.Router, title string) string {
	rec := doJSON(t, router, http.MethodPost, "/chat/sessions", api.StartSessionRequest{Title: title})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.StartSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.SessionID
}

func TestChatSessionLifecycle(t *testing.T) {
	router := createChatRouter(t)

	sessionID := startSession(t, router, "Test Session")

	rec := doJSON(t, router, http.MethodGet, "/chat/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions api.GetSessionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions.Sessions, 1)
	assert.Equal(t, "Test Session", sessions.Sessions[0].Title)
	assert.Equal(t, sessionID, sessions.Sessions[0].ID.String())

	rec = doJSON(t, router, http.MethodGet, "/chat/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var session api.ChatSessionMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "Test Session", session.Title)

	rec = doJSON(t, router, http.MethodPost, "/chat/sessions/"+sessionID+"/rename", api.RenameSessionRequest{Title: "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/chat/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "Renamed", session.Title)

	rec = doJSON(t, router, http.MethodDelete, "/chat/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/chat/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessageAndHistory(t *testing.T) {
	router := createChatRouter(t)

	sessionID := startSession(t, router, "")

	rec := doJSON(t, router, http.MethodPost, "/chat/sessions/"+sessionID+"/messages", api.ChatRequest{Message: "what are your hours?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "We are open 9 to 5, Monday through Friday.", resp.Reply)

	rec = doJSON(t, router, http.MethodGet, "/chat/sessions/"+sessionID+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history api.ChatHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Messages, 2)
	assert.Equal(t, api.ChatHistoryItem{Role: "user", Content: "what are your hours?"}, history.Messages[0])
	assert.Equal(t, api.ChatHistoryItem{Role: "assistant", Content: resp.Reply}, history.Messages[1])
}

func TestSendMessageErrors(t *testing.T) {
	router := createChatRouter(t)

	sessionID := startSession(t, router, "")

	rec := doJSON(t, router, http.MethodPost, "/chat/sessions/"+sessionID+"/messages", api.ChatRequest{Message: ""})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/chat/sessions/"+uuid.New().String()+"/messages", api.ChatRequest{Message: "hello"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/chat/sessions/not-a-uuid/messages", api.ChatRequest{Message: "hello"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
