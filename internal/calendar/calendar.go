// Package calendar implements the mock Calendly: availability generation and
// appointment bookkeeping over the relational store.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"clinic-agent/internal/clinic"
	"clinic-agent/internal/database"
	"clinic-agent/internal/messaging"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	openMinute    = 9 * 60  // 09:00
	closeMinute   = 17 * 60 // 17:00
	slotIncrement = 15      // minutes between candidate start times
)

var (
	ErrUnknownType      = errors.New("unknown appointment type")
	ErrInvalidDate      = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidTime      = errors.New("time must be in HH:MM format")
	ErrPastDate         = errors.New("cannot book appointments in the past")
	ErrWeekend          = errors.New("clinic is closed on weekends")
	ErrSlotTaken        = errors.New("time slot is not available")
	ErrNotFound         = errors.New("booking not found")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	ErrInvalidPatient   = errors.New("invalid patient information")
)

// Patient is the contact info attached to a booking.
type Patient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Slot is one bookable interval on a given date.
type Slot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// BookingRequest carries everything needed to book an appointment.
type BookingRequest struct {
	AppointmentType string
	Date            string // YYYY-MM-DD
	StartTime       string // HH:MM
	Patient         Patient
	Reason          string
}

// Scheduler owns slot generation and booking CRUD.
type Scheduler struct {
	// SQLite only supports one writer at a time, so bookings are serialized
	// within the process; the transactional re-check covers multi-process use.
	mu  sync.Mutex
	db  *gorm.DB
	pub messaging.Publisher // may be nil
	now func() time.Time
}

type Option func(*Scheduler)

// WithClock overrides the scheduler's notion of now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithPublisher attaches a booking-event publisher.
func WithPublisher(pub messaging.Publisher) Option {
	return func(s *Scheduler) { s.pub = pub }
}

func NewScheduler(db *gorm.DB, opts ...Option) *Scheduler {
	s := &Scheduler{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now reports the scheduler's current time, honoring WithClock.
func (s *Scheduler) Now() time.Time {
	return s.now()
}

// Availability returns the open slots for a date and appointment type. Past
// dates and weekends yield an empty list rather than an error.
func (s *Scheduler) Availability(ctx context.Context, date, typeName string) ([]Slot, error) {
	apptType, ok := clinic.LookupType(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}

	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if day.Before(startOfDay(now)) || isWeekend(day) {
		return []Slot{}, nil
	}

	return s.freeSlots(ctx, s.db, date, day, apptType, now)
}

// freeSlots generates candidate slots on the increment grid and drops any
// overlapping a confirmed booking, plus already-passed slots for today.
func (s *Scheduler) freeSlots(ctx context.Context, txn *gorm.DB, date string, day time.Time, apptType clinic.AppointmentType, now time.Time) ([]Slot, error) {
	var booked []database.Appointment
	err := txn.WithContext(ctx).
		Where("date = ? AND status = ?", date, database.BookingConfirmed).
		Find(&booked).Error
	if err != nil {
		return nil, fmt.Errorf("could not load bookings for %s: %w", date, err)
	}

	type interval struct{ start, end int }
	taken := make([]interval, 0, len(booked))
	for _, appt := range booked {
		start, err := parseClock(appt.StartTime)
		if err != nil {
			continue
		}
		end, err := parseClock(appt.EndTime)
		if err != nil {
			continue
		}
		taken = append(taken, interval{start, end})
	}

	isToday := day.Equal(startOfDay(now))
	nowMinute := now.Hour()*60 + now.Minute()

	slots := []Slot{}
	for start := openMinute; start+apptType.DurationMinutes <= closeMinute; start += slotIncrement {
		end := start + apptType.DurationMinutes

		if isToday && start <= nowMinute {
			continue
		}

		overlaps := false
		for _, iv := range taken {
			if start < iv.end && iv.start < end {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}

		slots = append(slots, Slot{StartTime: formatClock(start), EndTime: formatClock(end)})
	}

	return slots, nil
}

// Book validates the request, re-checks the slot inside a transaction, and
// persists a confirmed appointment.
func (s *Scheduler) Book(ctx context.Context, req BookingRequest) (*database.Appointment, error) {
	apptType, ok := clinic.LookupType(req.AppointmentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, req.AppointmentType)
	}

	day, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	startMinute, err := parseClock(req.StartTime)
	if err != nil {
		return nil, err
	}

	if err := validatePatient(req.Patient); err != nil {
		return nil, err
	}

	now := s.now()
	if day.Before(startOfDay(now)) {
		return nil, ErrPastDate
	}
	if isWeekend(day) {
		return nil, ErrWeekend
	}

	patientJSON, err := json.Marshal(req.Patient)
	if err != nil {
		return nil, fmt.Errorf("could not marshal patient: %w", err)
	}

	appt := &database.Appointment{
		BookingID:        newBookingID(now),
		ConfirmationCode: newConfirmationCode(),
		Status:           database.BookingConfirmed,
		AppointmentType:  req.AppointmentType,
		Date:             req.Date,
		StartTime:        formatClock(startMinute),
		EndTime:          formatClock(startMinute + apptType.DurationMinutes),
		DurationMinutes:  apptType.DurationMinutes,
		Patient:          datatypes.JSON(patientJSON),
		Reason:           req.Reason,
		CreatedAt:        now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		free, err := s.freeSlots(ctx, txn, req.Date, day, apptType, now)
		if err != nil {
			return err
		}

		available := false
		for _, slot := range free {
			if slot.StartTime == appt.StartTime {
				available = true
				break
			}
		}
		if !available {
			return ErrSlotTaken
		}

		return txn.Create(appt).Error
	})
	if err != nil {
		return nil, err
	}

	s.publishConfirmed(ctx, appt, req.Patient)

	return appt, nil
}

// Get returns the booking with the given id.
func (s *Scheduler) Get(ctx context.Context, bookingID string) (*database.Appointment, error) {
	var appt database.Appointment
	err := s.db.WithContext(ctx).First(&appt, "booking_id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading booking %s: %w", bookingID, err)
	}
	return &appt, nil
}

// Cancel marks the booking cancelled; the slot becomes available again.
func (s *Scheduler) Cancel(ctx context.Context, bookingID string) (*database.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if appt.Status == database.BookingCancelled {
		return nil, ErrAlreadyCancelled
	}

	err = s.db.WithContext(ctx).
		Model(&database.Appointment{BookingID: bookingID}).
		Update("status", database.BookingCancelled).Error
	if err != nil {
		return nil, fmt.Errorf("error cancelling booking %s: %w", bookingID, err)
	}
	appt.Status = database.BookingCancelled

	var patient Patient
	if err := json.Unmarshal(appt.Patient, &patient); err != nil {
		slog.Warn("could not decode patient for cancelled booking", "booking_id", bookingID, "error", err)
	}
	s.publishCancelled(ctx, appt, patient)

	return appt, nil
}

// List returns bookings, optionally filtered by date.
func (s *Scheduler) List(ctx context.Context, date string) ([]database.Appointment, error) {
	query := s.db.WithContext(ctx).Order("date ASC, start_time ASC")
	if date != "" {
		if _, err := parseDate(date); err != nil {
			return nil, err
		}
		query = query.Where("date = ?", date)
	}

	var appts []database.Appointment
	if err := query.Find(&appts).Error; err != nil {
		return nil, fmt.Errorf("error listing bookings: %w", err)
	}
	return appts, nil
}

func (s *Scheduler) publishConfirmed(ctx context.Context, appt *database.Appointment, patient Patient) {
	if s.pub == nil {
		return
	}
	err := s.pub.PublishBookingConfirmed(ctx, messaging.BookingConfirmedPayload{
		BookingID:        appt.BookingID,
		ConfirmationCode: appt.ConfirmationCode,
		AppointmentType:  appt.AppointmentType,
		Date:             appt.Date,
		StartTime:        appt.StartTime,
		EndTime:          appt.EndTime,
		PatientName:      patient.Name,
		PatientEmail:     patient.Email,
	})
	if err != nil {
		// The booking is committed; a lost notification is not a booking failure.
		slog.Error("error publishing booking confirmation", "booking_id", appt.BookingID, "error", err)
	}
}

func (s *Scheduler) publishCancelled(ctx context.Context, appt *database.Appointment, patient Patient) {
	if s.pub == nil {
		return
	}
	err := s.pub.PublishBookingCancelled(ctx, messaging.BookingCancelledPayload{
		BookingID:    appt.BookingID,
		PatientName:  patient.Name,
		PatientEmail: patient.Email,
	})
	if err != nil {
		slog.Error("error publishing booking cancellation", "booking_id", appt.BookingID, "error", err)
	}
}

func validatePatient(p Patient) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPatient)
	}
	if !strings.Contains(p.Email, "@") || strings.Contains(p.Email, " ") {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidPatient, p.Email)
	}
	digits := 0
	for _, r := range p.Phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 10 {
		return fmt.Errorf("%w: phone number must have at least 10 digits", ErrInvalidPatient)
	}
	return nil
}

func newBookingID(now time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("APPT-%s-%s", now.Format("20060102"), suffix)
}

func newConfirmationCode() string {
	return strings.ToUpper(uuid.New().String()[:6])
}

func parseDate(date string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return day, nil
}

func parseClock(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, clock)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
