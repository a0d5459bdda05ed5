package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clinic-agent/internal/calendar"
	"clinic-agent/internal/clinic"
	"clinic-agent/internal/rag"

	"github.com/tmc/langchaingo/llms"
)

const (
	toolCheckAvailability = "check_availability"
	toolBookAppointment   = "book_appointment"
	toolCancelAppointment = "cancel_appointment"
	toolSearchFAQ         = "search_faq"

	maxSlotsShown = 10
)

// Toolbox holds the agent's tools and their backing services.
type Toolbox struct {
	scheduler *calendar.Scheduler
	index     *rag.Index
	info      *clinic.Info
}

func NewToolbox(scheduler *calendar.Scheduler, index *rag.Index, info *clinic.Info) *Toolbox {
	return &Toolbox{scheduler: scheduler, index: index, info: info}
}

// Definitions returns the tool schemas sent to the LLM.
func (tb *Toolbox) Definitions() []llms.Tool {
	typeNames := clinic.TypeNames()

	return []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        toolCheckAvailability,
				Description: "Check available appointment time slots for a specific date and appointment type. Use this before proposing any times.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"date": map[string]any{
							"type":        "string",
							"description": "Date in YYYY-MM-DD format, e.g. 2024-01-15",
						},
						"appointment_type": map[string]any{
							"type": "string",
							"enum": typeNames,
						},
					},
					"required": []string{"date", "appointment_type"},
				},
			},
		},
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        toolBookAppointment,
				Description: "Book a medical appointment. Only call this after confirming type, date, time and all patient details with the patient.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"patient_name":  map[string]any{"type": "string"},
						"patient_email": map[string]any{"type": "string"},
						"patient_phone": map[string]any{"type": "string"},
						"appointment_type": map[string]any{
							"type": "string",
							"enum": typeNames,
						},
						"appointment_date": map[string]any{
							"type":        "string",
							"description": "Date in YYYY-MM-DD format",
						},
						"start_time": map[string]any{
							"type":        "string",
							"description": "Start time in 24-hour HH:MM format, e.g. 14:00 for 2:00 PM",
						},
						"reason": map[string]any{
							"type":        "string",
							"description": "Brief reason for the visit",
						},
					},
					"required": []string{"patient_name", "patient_email", "patient_phone", "appointment_type", "appointment_date", "start_time", "reason"},
				},
			},
		},
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        toolCancelAppointment,
				Description: "Cancel an existing appointment using its booking ID (format APPT-YYYYMMDD-XXXXXXXX).",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"booking_id": map[string]any{"type": "string"},
					},
					"required": []string{"booking_id"},
				},
			},
		},
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        toolSearchFAQ,
				Description: "Search the clinic's knowledge base for questions about location, hours, insurance, billing, policies, and services.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{"type": "string"},
					},
					"required": []string{"question"},
				},
			},
		},
	}
}

// Dispatch executes one tool call. Errors are rendered into the response
// content so the LLM can relay or recover from them.
func (tb *Toolbox) Dispatch(ctx context.Context, call llms.ToolCall) llms.ToolCallResponse {
	var args map[string]string
	if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &args); err != nil {
		return toolResponse(call, fmt.Sprintf("Error: invalid tool arguments: %v", err))
	}

	slog.Info("dispatching tool call", "tool", call.FunctionCall.Name)

	var content string
	switch call.FunctionCall.Name {
	case toolCheckAvailability:
		content = tb.checkAvailability(ctx, args["date"], args["appointment_type"])
	case toolBookAppointment:
		content = tb.bookAppointment(ctx, args)
	case toolCancelAppointment:
		content = tb.cancelAppointment(ctx, args["booking_id"])
	case toolSearchFAQ:
		content = tb.searchFAQ(ctx, args["question"])
	default:
		content = fmt.Sprintf("Error: unknown tool %q", call.FunctionCall.Name)
	}

	return toolResponse(call, content)
}

func toolResponse(call llms.ToolCall, content string) llms.ToolCallResponse {
	return llms.ToolCallResponse{
		ToolCallID: call.ID,
		Name:       call.FunctionCall.Name,
		Content:    content,
	}
}

func (tb *Toolbox) checkAvailability(ctx context.Context, date, typeName string) string {
	slots, err := tb.scheduler.Availability(ctx, date, typeName)
	if err != nil {
		switch {
		case errors.Is(err, calendar.ErrUnknownType):
			return fmt.Sprintf("Error: invalid appointment type. Must be one of: %s", strings.Join(clinic.TypeNames(), ", "))
		case errors.Is(err, calendar.ErrInvalidDate):
			return "Error: date must be in YYYY-MM-DD format (e.g. 2024-01-15)"
		default:
			return fmt.Sprintf("Error checking availability: %v", err)
		}
	}

	if len(slots) == 0 {
		day, _ := time.Parse("2006-01-02", date)
		now := tb.scheduler.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		switch {
		case day.Weekday() == time.Saturday || day.Weekday() == time.Sunday:
			return fmt.Sprintf("No slots available on %s. The clinic is closed on weekends. Please choose a weekday (Monday-Friday).", date)
		case day.Before(today):
			return fmt.Sprintf("No slots available on %s. This date is in the past. Please choose a future date.", date)
		default:
			return fmt.Sprintf("No slots available on %s. The date is fully booked. Would you like to check another date?", date)
		}
	}

	shown := slots
	if len(shown) > maxSlotsShown {
		shown = shown[:maxSlotsShown]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available slots on %s for %s:\n", date, strings.ReplaceAll(typeName, "_", " "))
	for _, slot := range shown {
		fmt.Fprintf(&b, "- %s\n", to12Hour(slot.StartTime))
	}
	fmt.Fprintf(&b, "\nTotal available slots: %d", len(slots))
	return b.String()
}

func (tb *Toolbox) bookAppointment(ctx context.Context, args map[string]string) string {
	for _, field := range []string{"patient_name", "patient_email", "patient_phone", "appointment_type", "appointment_date", "start_time", "reason"} {
		if strings.TrimSpace(args[field]) == "" {
			return "Error: all fields are required to book an appointment."
		}
	}

	appt, err := tb.scheduler.Book(ctx, calendar.BookingRequest{
		AppointmentType: args["appointment_type"],
		Date:            args["appointment_date"],
		StartTime:       args["start_time"],
		Patient: calendar.Patient{
			Name:  args["patient_name"],
			Email: args["patient_email"],
			Phone: args["patient_phone"],
		},
		Reason: args["reason"],
	})
	if err != nil {
		switch {
		case errors.Is(err, calendar.ErrSlotTaken):
			return "Booking failed: Time slot is not available"
		case errors.Is(err, calendar.ErrPastDate):
			return "Booking failed: Cannot book appointments in the past"
		case errors.Is(err, calendar.ErrWeekend):
			return "Booking failed: Clinic is closed on weekends"
		case errors.Is(err, calendar.ErrInvalidPatient):
			return fmt.Sprintf("Error: invalid patient information - %v", err)
		default:
			return fmt.Sprintf("Error booking appointment: %v", err)
		}
	}

	day, _ := time.Parse("2006-01-02", appt.Date)

	return fmt.Sprintf(`Appointment Successfully Booked!

Confirmation Details:
- Booking ID: %s
- Confirmation Code: %s
- Patient: %s
- Type: %s
- Date: %s
- Time: %s
- Duration: %d minutes
- Reason: %s

A confirmation email has been sent to %s.

Important Reminders:
- Please arrive 15 minutes early to complete any necessary paperwork
- Bring your insurance card and photo ID
- If you need to cancel or reschedule, please call us at least 24 hours in advance at %s`,
		appt.BookingID,
		appt.ConfirmationCode,
		args["patient_name"],
		titleize(appt.AppointmentType),
		day.Format("Monday, January 2, 2006"),
		to12Hour(appt.StartTime),
		appt.DurationMinutes,
		appt.Reason,
		args["patient_email"],
		tb.info.Phone,
	)
}

func (tb *Toolbox) cancelAppointment(ctx context.Context, bookingID string) string {
	if strings.TrimSpace(bookingID) == "" {
		return "Error: a booking ID is required to cancel an appointment."
	}

	appt, err := tb.scheduler.Cancel(ctx, bookingID)
	if err != nil {
		switch {
		case errors.Is(err, calendar.ErrNotFound):
			return fmt.Sprintf("No booking found with ID %s. Please double-check the booking ID from the confirmation.", bookingID)
		case errors.Is(err, calendar.ErrAlreadyCancelled):
			return fmt.Sprintf("Booking %s is already cancelled.", bookingID)
		default:
			return fmt.Sprintf("Error cancelling appointment: %v", err)
		}
	}

	return fmt.Sprintf("Appointment %s (%s on %s at %s) has been cancelled. The patient is welcome to book a new time.",
		appt.BookingID, titleize(appt.AppointmentType), appt.Date, to12Hour(appt.StartTime))
}

func (tb *Toolbox) searchFAQ(ctx context.Context, question string) string {
	context, err := tb.index.Context(ctx, question, rag.DefaultTopK)
	if err != nil {
		slog.Error("faq search failed", "error", err)
		return fmt.Sprintf("I'm having trouble accessing that information right now. Please call our office at %s for assistance.", tb.info.Phone)
	}

	if context == rag.NoResults {
		return fmt.Sprintf(`I don't have specific information about that in my knowledge base.
For the most accurate and up-to-date information, I recommend:
- Calling our office at %s
- Emailing us at %s

Is there anything else I can help you with, or would you like to schedule an appointment?`, tb.info.Phone, tb.info.Email)
	}

	return context
}

func to12Hour(clock string) string {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	return strings.TrimPrefix(t.Format("3:04 PM"), "0")
}

func titleize(snake string) string {
	words := strings.Split(strings.ReplaceAll(snake, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
