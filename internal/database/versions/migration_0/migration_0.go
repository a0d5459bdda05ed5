package migration_0

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Snapshot of the schema at migration 0. These types are intentionally
// decoupled from the live models so later schema changes don't rewrite
// history.

type Appointment struct {
	BookingID        string `gorm:"primaryKey;size:40"`
	ConfirmationCode string `gorm:"size:6;not null"`
	Status           string `gorm:"size:20;not null;index"`

	AppointmentType string `gorm:"size:40;not null"`
	Date            string `gorm:"size:10;not null;index"`
	StartTime       string `gorm:"size:5;not null"`
	EndTime         string `gorm:"size:5;not null"`
	DurationMinutes int    `gorm:"not null"`

	Patient datatypes.JSON `gorm:"type:jsonb;not null"`
	Reason  string

	CreatedAt time.Time
}

type ChatSession struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title     string
	CreatedAt time.Time
}

type ChatMessage struct {
	ID        uint      `gorm:"primary_key"`
	SessionID uuid.UUID `gorm:"type:uuid;index"`
	Role      string    `gorm:"size:12"`
	Content   string
	Timestamp string `gorm:"default:CURRENT_TIMESTAMP"`
}

type Notification struct {
	ID        uint   `gorm:"primary_key"`
	BookingID string `gorm:"size:40;index"`
	Event     string `gorm:"size:30;not null"`
	Recipient string
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	SentAt    time.Time
}

func Migration(txn *gorm.DB) error {
	return txn.AutoMigrate(&Appointment{}, &ChatSession{}, &ChatMessage{}, &Notification{})
}

func Rollback(txn *gorm.DB) error {
	return txn.Migrator().DropTable(&Appointment{}, &ChatSession{}, &ChatMessage{}, &Notification{})
}
