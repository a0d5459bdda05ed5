package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueue(t *testing.T) {
	queue := NewInMemoryQueue()

	confirmed := BookingConfirmedPayload{
		BookingID:        "APPT-20260105-AAAAAAAA",
		ConfirmationCode: "ABC123",
		AppointmentType:  "general_consultation",
		Date:             "2026-01-06",
		StartTime:        "10:00",
		EndTime:          "10:30",
		PatientName:      "Jane Doe",
		PatientEmail:     "jane@example.com",
	}
	require.NoError(t, queue.PublishBookingConfirmed(context.Background(), confirmed))

	cancelled := BookingCancelledPayload{
		BookingID:    "APPT-20260105-AAAAAAAA",
		PatientName:  "Jane Doe",
		PatientEmail: "jane@example.com",
	}
	require.NoError(t, queue.PublishBookingCancelled(context.Background(), cancelled))

	task := <-queue.Tasks()
	assert.Equal(t, BookingConfirmedQueue, task.Type())
	var gotConfirmed BookingConfirmedPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &gotConfirmed))
	assert.Equal(t, confirmed, gotConfirmed)
	assert.NoError(t, task.Ack())

	task = <-queue.Tasks()
	assert.Equal(t, BookingCancelledQueue, task.Type())
	var gotCancelled BookingCancelledPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &gotCancelled))
	assert.Equal(t, cancelled, gotCancelled)

	tasks := queue.Tasks()
	queue.Close()
	_, open := <-tasks
	assert.False(t, open)
}

func TestInMemoryQueuePublishAfterClose(t *testing.T) {
	queue := NewInMemoryQueue()
	queue.Close()
	queue.Close()

	err := queue.PublishBookingConfirmed(context.Background(), BookingConfirmedPayload{
		BookingID: "APPT-20260105-AAAAAAAA",
	})
	assert.ErrorIs(t, err, ErrQueueClosed)

	err = queue.PublishBookingCancelled(context.Background(), BookingCancelledPayload{
		BookingID: "APPT-20260105-AAAAAAAA",
	})
	assert.ErrorIs(t, err, ErrQueueClosed)
}
