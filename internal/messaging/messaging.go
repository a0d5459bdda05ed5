package messaging

import (
	"context"
	"time"
)

const (
	BookingConfirmedQueue = "booking_confirmed_queue"
	BookingCancelledQueue = "booking_cancelled_queue"
	RetryDelay            = 5 * time.Second
	MaxConnectRetry       = 5
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

type BookingConfirmedPayload struct {
	BookingID        string `json:"booking_id"`
	ConfirmationCode string `json:"confirmation_code"`
	AppointmentType  string `json:"appointment_type"`
	Date             string `json:"date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	PatientName      string `json:"patient_name"`
	PatientEmail     string `json:"patient_email"`
}

type BookingCancelledPayload struct {
	BookingID    string `json:"booking_id"`
	PatientName  string `json:"patient_name"`
	PatientEmail string `json:"patient_email"`
}

type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, payload BookingConfirmedPayload) error

	PublishBookingCancelled(ctx context.Context, payload BookingCancelledPayload) error

	Close()
}

type Receiver interface {
	Tasks() <-chan Task

	Close()
}
