package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinic-agent/internal/calendar"
	"clinic-agent/internal/database"
	"clinic-agent/pkg/api"
)

type AppointmentService struct {
	scheduler *calendar.Scheduler
}

func NewAppointmentService(scheduler *calendar.Scheduler) *AppointmentService {
	return &AppointmentService{scheduler: scheduler}
}

func (s *AppointmentService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/availability", RestHandler(s.GetAvailability))
		r.Post("/", RestHandler(s.BookAppointment))
		r.Get("/", RestHandler(s.ListAppointments))
		r.Get("/{booking_id}", RestHandler(s.GetAppointment))
		r.Delete("/{booking_id}", RestHandler(s.CancelAppointment))
	})
}

func (s *AppointmentService) GetAvailability(r *http.Request) (any, error) {
	req, err := ParseRequestQueryParams[api.AvailabilityRequest](r)
	if err != nil {
		return nil, err
	}

	slots, err := s.scheduler.Availability(r.Context(), req.Date, req.AppointmentType)
	if err != nil {
		switch {
		case errors.Is(err, calendar.ErrUnknownType), errors.Is(err, calendar.ErrInvalidDate):
			return nil, CodedError(http.StatusUnprocessableEntity, err)
		default:
			return nil, CodedErrorf(http.StatusInternalServerError, "error checking availability")
		}
	}

	resp := api.AvailabilityResponse{
		Date:            req.Date,
		AppointmentType: req.AppointmentType,
		AvailableSlots:  make([]api.TimeSlot, 0, len(slots)),
		TotalSlots:      len(slots),
	}
	for _, slot := range slots {
		resp.AvailableSlots = append(resp.AvailableSlots, api.TimeSlot{StartTime: slot.StartTime, EndTime: slot.EndTime})
	}
	return resp, nil
}

func (s *AppointmentService) BookAppointment(r *http.Request) (any, error) {
	req, err := ParseRequest[api.BookAppointmentRequest](r)
	if err != nil {
		return nil, err
	}

	appt, err := s.scheduler.Book(r.Context(), calendar.BookingRequest{
		AppointmentType: req.AppointmentType,
		Date:            req.AppointmentDate,
		StartTime:       req.StartTime,
		Patient: calendar.Patient{
			Name:  req.Patient.Name,
			Email: req.Patient.Email,
			Phone: req.Patient.Phone,
		},
		Reason: req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, calendar.ErrSlotTaken):
			return nil, CodedError(http.StatusConflict, err)
		case errors.Is(err, calendar.ErrUnknownType),
			errors.Is(err, calendar.ErrInvalidDate),
			errors.Is(err, calendar.ErrInvalidTime),
			errors.Is(err, calendar.ErrInvalidPatient),
			errors.Is(err, calendar.ErrPastDate),
			errors.Is(err, calendar.ErrWeekend):
			return nil, CodedError(http.StatusUnprocessableEntity, err)
		default:
			return nil, CodedErrorf(http.StatusInternalServerError, "error booking appointment")
		}
	}

	return toAppointmentResponse(appt), nil
}

func (s *AppointmentService) GetAppointment(r *http.Request) (any, error) {
	bookingID := chi.URLParam(r, "booking_id")
	if bookingID == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "missing {booking_id} url parameter")
	}

	appt, err := s.scheduler.Get(r.Context(), bookingID)
	if errors.Is(err, calendar.ErrNotFound) {
		return nil, CodedErrorf(http.StatusNotFound, "booking not found")
	}
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving booking")
	}

	return toAppointmentResponse(appt), nil
}

func (s *AppointmentService) CancelAppointment(r *http.Request) (any, error) {
	bookingID := chi.URLParam(r, "booking_id")
	if bookingID == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "missing {booking_id} url parameter")
	}

	appt, err := s.scheduler.Cancel(r.Context(), bookingID)
	switch {
	case errors.Is(err, calendar.ErrNotFound):
		return nil, CodedErrorf(http.StatusNotFound, "booking not found")
	case errors.Is(err, calendar.ErrAlreadyCancelled):
		return nil, CodedError(http.StatusConflict, err)
	case err != nil:
		return nil, CodedErrorf(http.StatusInternalServerError, "error cancelling booking")
	}

	return toAppointmentResponse(appt), nil
}

func (s *AppointmentService) ListAppointments(r *http.Request) (any, error) {
	req, err := ParseRequestQueryParams[api.ListAppointmentsRequest](r)
	if err != nil {
		return nil, err
	}

	appts, err := s.scheduler.List(r.Context(), req.Date)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidDate) {
			return nil, CodedError(http.StatusUnprocessableEntity, err)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing bookings")
	}

	resp := api.ListAppointmentsResponse{Appointments: make([]api.AppointmentResponse, 0, len(appts))}
	for i := range appts {
		resp.Appointments = append(resp.Appointments, toAppointmentResponse(&appts[i]))
	}
	return resp, nil
}

func toAppointmentResponse(appt *database.Appointment) api.AppointmentResponse {
	var patient api.PatientInfo
	// Patient was validated at booking time; a decode failure leaves it empty.
	_ = json.Unmarshal(appt.Patient, &patient)

	return api.AppointmentResponse{
		BookingID:        appt.BookingID,
		Status:           appt.Status,
		ConfirmationCode: appt.ConfirmationCode,
		AppointmentType:  appt.AppointmentType,
		Date:             appt.Date,
		StartTime:        appt.StartTime,
		EndTime:          appt.EndTime,
		DurationMinutes:  appt.DurationMinutes,
		Patient:          patient,
		Reason:           appt.Reason,
		CreatedAt:        appt.CreatedAt,
	}
}
