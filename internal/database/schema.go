package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	BookingConfirmed string = "confirmed"
	BookingCancelled string = "cancelled"
	BookingFailed    string = "failed"
)

type Appointment struct {
	BookingID        string `gorm:"primaryKey;size:40"`
	ConfirmationCode string `gorm:"size:6;not null"`
	Status           string `gorm:"size:20;not null;index"`

	AppointmentType string `gorm:"size:40;not null"`
	Date            string `gorm:"size:10;not null;index"` // YYYY-MM-DD
	StartTime       string `gorm:"size:5;not null"`        // HH:MM
	EndTime         string `gorm:"size:5;not null"`
	DurationMinutes int    `gorm:"not null"`

	Patient datatypes.JSON `gorm:"type:jsonb;not null"` // {"name":"…","email":"…","phone":"…"}
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
	Role      string    `gorm:"size:12"` // 'user' or 'assistant'
	Content   string
	Timestamp string `gorm:"default:CURRENT_TIMESTAMP"`
}

type Notification struct {
	ID        uint   `gorm:"primary_key"`
	BookingID string `gorm:"size:40;index"`
	Event     string `gorm:"size:30;not null"` // booking_confirmed, booking_cancelled
	Recipient string
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	SentAt    time.Time
}
