package prescription

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrPrescriptionNotFound = errors.New("no prescription for this appointment")
	ErrNotPatient           = errors.New("user is not registered as a patient")
	ErrHealthProfNotFound   = errors.New("health professional not found")
)

// SaveData is the full-replace payload the repository persists in one
// transaction: the order is upserted, then every existing medicine line and
// prescription-linked lab test is deleted and the given sets inserted.
type SaveData struct {
	AppointmentID  int64
	PrescriptionID string
	Patient        int64
	HealthProf     int64
	Notes          *string
	Vitals         *Vitals
	Medicines      []MedicineSpec
	TestNames      []string
}

type MedicineSpec struct {
	ActiveComponent string
	Dose            *string
	Frequency       *string
	Duration        *string
}

type Repository interface {
	// Parties of an appointment, for lazy order creation.
	GetAppointmentParties(ctx context.Context, appointmentID int64) (patient, healthProf int64, err error)

	ResolvePatient(ctx context.Context, userID int64) (int64, error)
	GetHealthProfName(ctx context.Context, healthProfID int64) (string, error)

	// Save applies SaveData atomically and returns the order id.
	Save(ctx context.Context, data SaveData) (int64, error)

	GetView(ctx context.Context, appointmentID int64) (*View, error)

	CreateLabTests(ctx context.Context, entries []LabTestEntry) error
	ListLabTests(ctx context.Context, patientID *int64, day *time.Time) ([]LabTestEntry, error)
	ListTestTypes(ctx context.Context) ([]LabTestType, error)
}
