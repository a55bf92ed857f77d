package prescription

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrAppointmentRequired = errors.New("doctors must name the prescribed appointment")
	ErrNotAuthorized       = errors.New("caller may not view this prescription")
	ErrInvalidDate         = errors.New("invalid date, expected YYYY-MM-DD")
)

type Service struct {
	repo Repository
	log  zerolog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

type SaveInput struct {
	Medicines []MedicineSpec
	TestNames []string
	Notes     *string
	Vitals    *VitalsInput
}

type VitalsInput struct {
	Complaint     *string
	BloodPressure *string // "SYS/DIA"
	SugarLevel    *float64
	Weight        *float64
	Height        *float64
}

// Save persists a prescription for an appointment with full-replace
// semantics: the stored medicine and lab-test sets become exactly what the
// payload carries. Clients resend the complete set on every save.
func (s *Service) Save(ctx context.Context, userID, appointmentID int64, in SaveInput) (string, error) {
	patient, healthProf, err := s.repo.GetAppointmentParties(ctx, appointmentID)
	if err != nil {
		return "", err
	}

	prescriptionID := fmt.Sprintf("PRES %d/%d", s.now().Year(), appointmentID)

	data := SaveData{
		AppointmentID:  appointmentID,
		PrescriptionID: prescriptionID,
		Patient:        patient,
		HealthProf:     healthProf,
		Notes:          in.Notes,
		Medicines:      in.Medicines,
		TestNames:      in.TestNames,
	}
	if in.Vitals != nil {
		data.Vitals = parseVitals(in.Vitals)
	}

	orderID, err := s.repo.Save(ctx, data)
	if err != nil {
		return "", fmt.Errorf("save prescription: %w", err)
	}

	s.log.Info().
		Int64("appointment", appointmentID).
		Int64("order", orderID).
		Int("medicines", len(in.Medicines)).
		Int("tests", len(in.TestNames)).
		Msg("prescription saved")

	return prescriptionID, nil
}

// parseVitals splits the combined "SYS/DIA" blood pressure reading.
func parseVitals(in *VitalsInput) *Vitals {
	v := &Vitals{
		Complaint: in.Complaint,
		Glycemia:  in.SugarLevel,
		Weight:    in.Weight,
		Height:    in.Height,
	}
	if in.BloodPressure != nil {
		parts := strings.SplitN(*in.BloodPressure, "/", 2)
		if n, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err == nil {
			v.Systolic = &n
		}
		if len(parts) > 1 {
			if n, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
				v.Diastolic = &n
			}
		}
	}
	return v
}

// GetForAppointment returns the hydrated prescription. Doctors may view any;
// patients only their own.
func (s *Service) GetForAppointment(ctx context.Context, userID int64, isDoctor bool, appointmentID int64) (*View, error) {
	view, err := s.repo.GetView(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if !isDoctor {
		patientID, err := s.repo.ResolvePatient(ctx, userID)
		if err != nil {
			return nil, err
		}
		if view.Order.Patient != patientID {
			return nil, ErrNotAuthorized
		}
	}

	return view, nil
}

type LabTestOrderInput struct {
	AppointmentID *int64
	HealthProfID  *int64
	Urgent        bool
	Context       *string
	Tests         []LabTestSelection
}

type LabTestSelection struct {
	TestTypeID  int64
	CriteriaIDs []int64
}

// OrderLabTests records lab-test requests. A doctor orders against a
// prescribed appointment; a patient may self-order, optionally naming a
// professional.
func (s *Service) OrderLabTests(ctx context.Context, userID int64, isDoctor bool, in LabTestOrderInput) error {
	var patientID int64
	var doctorID *int64

	if isDoctor {
		if in.AppointmentID == nil {
			return ErrAppointmentRequired
		}
		p, hp, err := s.repo.GetAppointmentParties(ctx, *in.AppointmentID)
		if err != nil {
			return err
		}
		patientID = p
		doctorID = &hp
	} else {
		p, err := s.repo.ResolvePatient(ctx, userID)
		if err != nil {
			return err
		}
		patientID = p
		if in.HealthProfID != nil {
			if _, err := s.repo.GetHealthProfName(ctx, *in.HealthProfID); err != nil {
				return err
			}
			doctorID = in.HealthProfID
		}
	}

	entries := make([]LabTestEntry, 0, len(in.Tests))
	for _, sel := range in.Tests {
		entries = append(entries, LabTestEntry{
			TestTypeID: sel.TestTypeID,
			PatientID:  patientID,
			DoctorID:   doctorID,
			Urgent:     in.Urgent,
			CriteriaID: joinCriteria(sel.CriteriaIDs),
			Context:    in.Context,
		})
	}

	if err := s.repo.CreateLabTests(ctx, entries); err != nil {
		return err
	}

	s.log.Info().
		Int64("patient", patientID).
		Int("tests", len(entries)).
		Msg("lab tests ordered")
	return nil
}

// joinCriteria flattens criteria ids into the schema's comma-joined string.
func joinCriteria(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func (s *Service) ListLabTests(ctx context.Context, patientID *int64, date string) ([]LabTestEntry, error) {
	var day *time.Time
	if date != "" {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, ErrInvalidDate
		}
		day = &d
	}
	return s.repo.ListLabTests(ctx, patientID, day)
}

func (s *Service) TestTypes(ctx context.Context) ([]LabTestType, error) {
	return s.repo.ListTestTypes(ctx)
}
