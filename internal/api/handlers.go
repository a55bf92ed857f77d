package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medbridge/hospital-api/internal/auth"
	"github.com/medbridge/hospital-api/internal/scheduling"
)

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func mustClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token", "no authenticated user on request")
		return nil, false
	}
	return claims, true
}

func generateSlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		var req GenerateSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		result, err := svc.GenerateSlots(r.Context(), claims.UserID, scheduling.GenerateSlotsInput{
			Type:            req.AppointmentType,
			StartDate:       req.StartDate,
			EndDate:         req.EndDate,
			StartTime:       req.StartTime,
			EndTime:         req.EndTime,
			DurationMinutes: req.Duration,
		})
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, GenerateSlotsResponse{
			Inserted: result.Inserted,
			Skipped:  result.Skipped,
		})
	}
}

func listSlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var healthProf int64
		if raw := q.Get("healthprof"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_healthprof", "healthprof must be an integer id")
				return
			}
			healthProf = id
		}

		slots, err := svc.ListAvailable(r.Context(), scheduling.AvailabilityFilter{
			HealthProf: healthProf,
			Type:       q.Get("type"),
			Date:       q.Get("date"),
		})
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		resp := make([]AvailableSlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, AvailableSlotResponse{
				ID:         s.ID,
				Date:       s.Date,
				Type:       string(s.Type),
				HealthProf: s.HealthProf,
				DoctorName: s.DoctorName,
				Speciality: s.Speciality,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func bookSlotHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		slotID, err := parseIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be an integer")
			return
		}

		appt, err := svc.Book(r.Context(), claims.UserID, slotID)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func confirmAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		id, err := parseIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be an integer")
			return
		}

		appt, err := svc.Confirm(r.Context(), claims.UserID, id)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelRequestHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		id, err := parseIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be an integer")
			return
		}

		appt, err := svc.CancelRequest(r.Context(), claims.UserID, id)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func approveCancelHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		id, err := parseIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be an integer")
			return
		}

		appt, err := svc.ApproveCancel(r.Context(), claims.UserID, id)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rescheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.SourceID == 0 || req.TargetID == 0 {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "source_id and target_id are required")
			return
		}

		appt, err := svc.Reschedule(r.Context(), claims.UserID, req.SourceID, req.TargetID)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func myAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		appts, err := svc.MyAppointments(r.Context(), claims.UserID)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		resp := make([]AppointmentSummaryResponse, 0, len(appts))
		for _, a := range appts {
			resp = append(resp, AppointmentSummaryResponse{
				ID:         a.ID,
				Name:       a.Name,
				Date:       a.Date,
				Type:       string(a.Type),
				State:      string(a.State),
				DoctorName: a.DoctorName,
				Speciality: a.Speciality,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func doctorScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
			return
		}

		appts, err := svc.DoctorDay(r.Context(), claims.UserID, date)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, *toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listSpecialtiesHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialties, err := svc.Specialties(r.Context())
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		resp := make([]SpecialtyResponse, 0, len(specialties))
		for _, sp := range specialties {
			resp = append(resp, SpecialtyResponse{ID: sp.ID, Name: sp.Name})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listDoctorsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var specialtyID *int64
		if raw := r.URL.Query().Get("specialty"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_specialty", "specialty must be an integer id")
				return
			}
			specialtyID = &id
		}

		doctors, err := svc.Doctors(r.Context(), specialtyID)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			resp = append(resp, DoctorResponse{ID: d.ID, Name: d.Name, Speciality: d.Speciality})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func toAppointmentResponse(a *scheduling.Appointment) *AppointmentResponse {
	return &AppointmentResponse{
		ID:         a.ID,
		Name:       a.Name,
		Date:       a.Date,
		Type:       string(a.Type),
		HealthProf: a.HealthProf,
		Patient:    a.Patient,
		State:      string(a.State),
	}
}

func handleSchedulingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrNotPatient):
		writeError(w, http.StatusForbidden, "not_a_patient", err.Error())
	case errors.Is(err, scheduling.ErrNotHealthProf):
		writeError(w, http.StatusForbidden, "not_a_health_professional", err.Error())
	case errors.Is(err, scheduling.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not_appointment_owner", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, scheduling.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, scheduling.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, "invalid_state_transition", err.Error())
	case errors.Is(err, scheduling.ErrInvalidAppointmentType),
		errors.Is(err, scheduling.ErrInvalidDate),
		errors.Is(err, scheduling.ErrInvalidDuration),
		errors.Is(err, scheduling.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeInternalError(w, err)
	}
}
