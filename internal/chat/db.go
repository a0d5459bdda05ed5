package chat

import (
	"sync"

	"clinic-agent/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SQLite only supports one writer at a time, so we need a lock
// whenever we write to the database
var dbMutex sync.Mutex

func GetSessions(db *gorm.DB) ([]database.ChatSession, error) {
	var sessions []database.ChatSession
	err := db.Order("created_at DESC").Find(&sessions).Error
	return sessions, err
}

func CreateSession(db *gorm.DB, session *database.ChatSession) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Create(session).Error
}

func GetSession(db *gorm.DB, sessionID uuid.UUID) (database.ChatSession, error) {
	var session database.ChatSession
	err := db.First(&session, "id = ?", sessionID).Error
	return session, err
}

func UpdateSessionTitle(db *gorm.DB, sessionID uuid.UUID, title string) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Model(&database.ChatSession{ID: sessionID}).Update("title", title).Error
}

func DeleteSession(db *gorm.DB, sessionID uuid.UUID) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	if err := db.Delete(&database.ChatMessage{}, "session_id = ?", sessionID).Error; err != nil {
		return err
	}
	return db.Delete(&database.ChatSession{}, "id = ?", sessionID).Error
}

func GetMessages(db *gorm.DB, sessionID uuid.UUID) ([]database.ChatMessage, error) {
	var messages []database.ChatMessage
	err := db.Where("session_id = ?", sessionID).Order("id ASC").Find(&messages).Error
	return messages, err
}

func SaveMessage(db *gorm.DB, message *database.ChatMessage) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Create(message).Error
}
