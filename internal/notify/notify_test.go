package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"clinic-agent/internal/database"
	"clinic-agent/internal/messaging"
	"clinic-agent/internal/notify"
)

func createDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())
	return db
}

func confirmedPayload() messaging.BookingConfirmedPayload {
	return messaging.BookingConfirmedPayload{
		BookingID:        "APPT-20260105-AAAAAAAA",
		ConfirmationCode: "ABC123",
		AppointmentType:  "general_consultation",
		Date:             "2026-01-06",
		StartTime:        "10:00",
		EndTime:          "10:30",
		PatientName:      "Jane Doe",
		PatientEmail:     "jane@example.com",
	}
}

func TestProcessConfirmedTask(t *testing.T) {
	db := createDB(t)
	queue := messaging.NewInMemoryQueue()
	dispatcher := notify.NewDispatcher(db, queue, "", "Riverside Medical")

	require.NoError(t, queue.PublishBookingConfirmed(context.Background(), confirmedPayload()))
	dispatcher.ProcessTask(<-queue.Tasks())

	var notifications []database.Notification
	require.NoError(t, db.Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, "APPT-20260105-AAAAAAAA", notifications[0].BookingID)
	assert.Equal(t, "booking_confirmed", notifications[0].Event)
	assert.Equal(t, "jane@example.com", notifications[0].Recipient)

	var payload messaging.BookingConfirmedPayload
	require.NoError(t, json.Unmarshal(notifications[0].Payload, &payload))
	assert.Equal(t, confirmedPayload(), payload)
}

func TestProcessCancelledTask(t *testing.T) {
	db := createDB(t)
	queue := messaging.NewInMemoryQueue()
	dispatcher := notify.NewDispatcher(db, queue, "", "Riverside Medical")

	require.NoError(t, queue.PublishBookingCancelled(context.Background(), messaging.BookingCancelledPayload{
		BookingID:    "APPT-20260105-AAAAAAAA",
		PatientName:  "Jane Doe",
		PatientEmail: "jane@example.com",
	}))
	dispatcher.ProcessTask(<-queue.Tasks())

	var notifications []database.Notification
	require.NoError(t, db.Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, "booking_cancelled", notifications[0].Event)
}

func TestWebhookForwarding(t *testing.T) {
	db := createDB(t)
	queue := messaging.NewInMemoryQueue()

	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dispatcher := notify.NewDispatcher(db, queue, server.URL, "Riverside Medical")

	require.NoError(t, queue.PublishBookingConfirmed(context.Background(), confirmedPayload()))
	dispatcher.ProcessTask(<-queue.Tasks())

	require.NotNil(t, received)
	assert.Equal(t, "booking_confirmed", received["event"])
	data, ok := received["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "APPT-20260105-AAAAAAAA", data["booking_id"])
}

func TestWebhookFailureSkipsRecord(t *testing.T) {
	db := createDB(t)
	queue := messaging.NewInMemoryQueue()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	dispatcher := notify.NewDispatcher(db, queue, server.URL, "Riverside Medical")

	require.NoError(t, queue.PublishBookingConfirmed(context.Background(), confirmedPayload()))
	dispatcher.ProcessTask(<-queue.Tasks())

	var count int64
	require.NoError(t, db.Model(&database.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
