package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"clinic-agent/internal/database"
	"clinic-agent/internal/messaging"
)

const (
	webhookTimeout = 10 * time.Second

	eventConfirmed = "booking_confirmed"
	eventCancelled = "booking_cancelled"
)

// Dispatcher consumes booking events and sends patient notifications. Emails
// are mocked as log lines; an optional webhook forwards each event to an
// external system.
type Dispatcher struct {
	db         *gorm.DB
	receiver   messaging.Receiver
	client     *resty.Client
	webhookURL string
	clinicName string
}

func NewDispatcher(db *gorm.DB, receiver messaging.Receiver, webhookURL, clinicName string) *Dispatcher {
	return &Dispatcher{
		db:         db,
		receiver:   receiver,
		client:     resty.New().SetTimeout(webhookTimeout),
		webhookURL: webhookURL,
		clinicName: clinicName,
	}
}

func (d *Dispatcher) Start() {
	slog.Info("starting notification dispatcher")

	for task := range d.receiver.Tasks() {
		d.ProcessTask(task)
	}
}

func (d *Dispatcher) Stop() {
	slog.Info("stopping notification dispatcher")

	d.receiver.Close()
}

func (d *Dispatcher) ProcessTask(task messaging.Task) {
	ctx := context.Background()

	var err error
	switch task.Type() {

	case messaging.BookingConfirmedQueue:
		var payload messaging.BookingConfirmedPayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling booking confirmed task", "error", err)
			if err := task.Reject(); err != nil { // Discard malformed message
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = d.processConfirmed(ctx, payload)

	case messaging.BookingCancelledQueue:
		var payload messaging.BookingCancelledPayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling booking cancelled task", "error", err)
			if err := task.Reject(); err != nil { // Discard malformed message
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = d.processCancelled(ctx, payload)

	default:
		slog.Error("received unknown task type", "queue", task.Type())
		if err := task.Reject(); err != nil {
			slog.Error("error rejecting message from queue", "error", err)
		}
		return
	}

	if err != nil {
		slog.Error("error processing task", "queue", task.Type(), "error", err)
		if err := task.Nack(); err != nil {
			slog.Error("error reporting processing failure on message from queue", "error", err)
		}
	} else {
		slog.Info("successfully processed task", "queue", task.Type())
		if err := task.Ack(); err != nil {
			slog.Error("error acknowledging message from queue", "error", err)
		}
	}
}

func (d *Dispatcher) processConfirmed(ctx context.Context, payload messaging.BookingConfirmedPayload) error {
	slog.Info("sending booking confirmation email",
		"booking_id", payload.BookingID,
		"recipient", payload.PatientEmail,
		"subject", fmt.Sprintf("%s: your appointment on %s is confirmed", d.clinicName, payload.Date))

	if err := d.forwardEvent(ctx, eventConfirmed, payload); err != nil {
		return err
	}
	return d.record(payload.BookingID, eventConfirmed, payload.PatientEmail, payload)
}

func (d *Dispatcher) processCancelled(ctx context.Context, payload messaging.BookingCancelledPayload) error {
	slog.Info("sending booking cancellation email",
		"booking_id", payload.BookingID,
		"recipient", payload.PatientEmail,
		"subject", fmt.Sprintf("%s: your appointment has been cancelled", d.clinicName))

	if err := d.forwardEvent(ctx, eventCancelled, payload); err != nil {
		return err
	}
	return d.record(payload.BookingID, eventCancelled, payload.PatientEmail, payload)
}

func (d *Dispatcher) forwardEvent(ctx context.Context, event string, payload any) error {
	if d.webhookURL == "" {
		return nil
	}

	res, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"event": event, "data": payload}).
		Post(d.webhookURL)
	if err != nil {
		return fmt.Errorf("error posting %s event to webhook: %w", event, err)
	}
	if res.IsError() {
		return fmt.Errorf("webhook returned status %d for %s event", res.StatusCode(), event)
	}
	return nil
}

func (d *Dispatcher) record(bookingID, event, recipient string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling notification payload: %w", err)
	}

	notification := database.Notification{
		BookingID: bookingID,
		Event:     event,
		Recipient: recipient,
		Payload:   datatypes.JSON(data),
		SentAt:    time.Now().UTC(),
	}
	if err := d.db.Create(&notification).Error; err != nil {
		return fmt.Errorf("error recording notification: %w", err)
	}
	return nil
}
