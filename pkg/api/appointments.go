package api

import "time"

type PatientInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type TimeSlot struct {
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`
}

type AvailabilityRequest struct {
	Date            string `schema:"date,required"`
	AppointmentType string `schema:"appointment_type,required"`
}

type AvailabilityResponse struct {
	Date            string     `json:"date"`
	AppointmentType string     `json:"appointment_type"`
	AvailableSlots  []TimeSlot `json:"available_slots"`
	TotalSlots      int        `json:"total_slots"`
}

type BookAppointmentRequest struct {
	AppointmentType string      `json:"appointment_type"`
	AppointmentDate string      `json:"appointment_date"` // YYYY-MM-DD
	StartTime       string      `json:"start_time"`       // HH:MM
	Patient         PatientInfo `json:"patient"`
	Reason          string      `json:"reason"`
}

type AppointmentResponse struct {
	BookingID        string      `json:"booking_id"`
	Status           string      `json:"status"`
	ConfirmationCode string      `json:"confirmation_code"`
	AppointmentType  string      `json:"appointment_type"`
	Date             string      `json:"date"`
	StartTime        string      `json:"start_time"`
	EndTime          string      `json:"end_time"`
	DurationMinutes  int         `json:"duration_minutes"`
	Patient          PatientInfo `json:"patient"`
	Reason           string      `json:"reason"`
	CreatedAt        time.Time   `json:"created_at"`
}

type ListAppointmentsRequest struct {
	Date string `schema:"date"`
}

type ListAppointmentsResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}
