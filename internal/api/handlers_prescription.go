package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/medbridge/hospital-api/internal/auth"
	"github.com/medbridge/hospital-api/internal/prescription"
)

func savePrescriptionHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		appointmentID, err := parseIDParam(r, "appointmentID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointmentID must be an integer")
			return
		}

		var req PrescriptionSaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in := prescription.SaveInput{
			TestNames: req.Tests,
			Notes:     req.Remarks,
		}
		for _, m := range req.Medicines {
			if m.ActiveComponent == "" {
				writeError(w, http.StatusBadRequest, "invalid_medicine", "active_component is required on every medicine")
				return
			}
			in.Medicines = append(in.Medicines, prescription.MedicineSpec{
				ActiveComponent: m.ActiveComponent,
				Dose:            m.Dose,
				Frequency:       m.Frequency,
				Duration:        m.Duration,
			})
		}
		if req.Vitals != nil {
			in.Vitals = &prescription.VitalsInput{
				Complaint:     req.Vitals.Complaint,
				BloodPressure: req.Vitals.BloodPressure,
				SugarLevel:    req.Vitals.SugarLevel,
				Weight:        req.Vitals.Weight,
				Height:        req.Vitals.Height,
			}
		}

		prescriptionID, err := svc.Save(r.Context(), claims.UserID, appointmentID, in)
		if err != nil {
			handlePrescriptionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PrescriptionSaveResponse{
			Message:        "prescription saved",
			PrescriptionID: prescriptionID,
		})
	}
}

func getPrescriptionHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		appointmentID, err := parseIDParam(r, "appointmentID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointmentID must be an integer")
			return
		}

		view, err := svc.GetForAppointment(r.Context(), claims.UserID, claims.Role == auth.RoleDoctor, appointmentID)
		if err != nil {
			handlePrescriptionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPrescriptionViewResponse(view))
	}
}

func orderLabTestsHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := mustClaims(w, r)
		if !ok {
			return
		}

		var req LabTestOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if len(req.Tests) == 0 {
			writeError(w, http.StatusBadRequest, "missing_tests", "at least one test is required")
			return
		}

		in := prescription.LabTestOrderInput{
			AppointmentID: req.AppointmentID,
			HealthProfID:  req.HealthProfID,
			Urgent:        req.Urgent,
			Context:       req.Context,
		}
		for _, t := range req.Tests {
			in.Tests = append(in.Tests, prescription.LabTestSelection{
				TestTypeID:  t.TestID,
				CriteriaIDs: t.CriteriaIDs,
			})
		}

		if err := svc.OrderLabTests(r.Context(), claims.UserID, claims.Role == auth.RoleDoctor, in); err != nil {
			handlePrescriptionError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"message": "lab tests ordered"})
	}
}

func listLabTestsHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := mustClaims(w, r); !ok {
			return
		}

		var patientID *int64
		if raw := r.URL.Query().Get("patient"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient", "patient must be an integer id")
				return
			}
			patientID = &id
		}

		entries, err := svc.ListLabTests(r.Context(), patientID, r.URL.Query().Get("date"))
		if err != nil {
			handlePrescriptionError(w, err)
			return
		}

		resp := make([]LabTestEntryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, toLabTestEntryResponse(e))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listTestTypesHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := svc.TestTypes(r.Context())
		if err != nil {
			handlePrescriptionError(w, err)
			return
		}

		resp := make([]LabTestTypeResponse, 0, len(types))
		for _, t := range types {
			resp = append(resp, LabTestTypeResponse{
				ID:       t.ID,
				Name:     t.Name,
				Code:     t.Code,
				Criteria: t.Criteria,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func toPrescriptionViewResponse(v *prescription.View) PrescriptionViewResponse {
	resp := PrescriptionViewResponse{
		PrescriptionID: v.Order.PrescriptionID,
		AppointmentID:  v.Order.AppointmentID,
		Doctor:         v.Doctor,
		Patient:        v.Patient,
		Remarks:        v.Order.Notes,
		Medicines:      make([]PrescriptionLineResponse, 0, len(v.Lines)),
		LabTests:       make([]LabTestEntryResponse, 0, len(v.LabTests)),
	}
	for _, l := range v.Lines {
		resp.Medicines = append(resp.Medicines, PrescriptionLineResponse{
			ID:              l.ID,
			ActiveComponent: l.ActiveComponent,
			Dose:            l.Dose,
			Frequency:       l.Frequency,
			Duration:        l.Duration,
		})
	}
	for _, e := range v.LabTests {
		resp.LabTests = append(resp.LabTests, toLabTestEntryResponse(e))
	}
	if v.Vitals != nil {
		resp.Vitals = &VitalsResponse{
			Complaint: v.Vitals.Complaint,
			Systolic:  v.Vitals.Systolic,
			Diastolic: v.Vitals.Diastolic,
			Glycemia:  v.Vitals.Glycemia,
			Weight:    v.Vitals.Weight,
			Height:    v.Vitals.Height,
		}
	}
	return resp
}

func toLabTestEntryResponse(e prescription.LabTestEntry) LabTestEntryResponse {
	return LabTestEntryResponse{
		ID:          e.ID,
		TestName:    e.TestName,
		Date:        e.Date,
		State:       e.State,
		Urgent:      e.Urgent,
		CriteriaIDs: e.CriteriaID,
		Context:     e.Context,
	}
}

func handlePrescriptionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, prescription.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, prescription.ErrPrescriptionNotFound):
		writeError(w, http.StatusNotFound, "prescription_not_found", err.Error())
	case errors.Is(err, prescription.ErrHealthProfNotFound):
		writeError(w, http.StatusNotFound, "health_professional_not_found", err.Error())
	case errors.Is(err, prescription.ErrNotPatient):
		writeError(w, http.StatusForbidden, "not_a_patient", err.Error())
	case errors.Is(err, prescription.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, prescription.ErrAppointmentRequired),
		errors.Is(err, prescription.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeInternalError(w, err)
	}
}
