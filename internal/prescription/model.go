package prescription

import "time"

// Order mirrors a gnuhealth_prescription_order row; there is at most one per
// appointment, created lazily on first save.
type Order struct {
	ID             int64
	AppointmentID  int64
	PrescriptionID string
	Patient        int64
	HealthProf     int64
	Notes          *string
}

// Line is a medicine entry on a prescription.
type Line struct {
	ID              int64
	OrderID         int64
	MedicamentID    int64
	ActiveComponent string
	Dose            *string
	Frequency       *string
	Duration        *string
}

// Vitals is the evaluation captured alongside a prescription.
type Vitals struct {
	Complaint *string
	Systolic  *float64
	Diastolic *float64
	Glycemia  *float64
	Weight    *float64
	Height    *float64
}

type LabTestType struct {
	ID       int64
	Name     string
	Code     string
	Criteria []string
}

// LabTestEntry links a prescription (or a standalone request) to a test type.
// Criteria IDs are stored as one comma-joined string, matching the upstream
// schema's layout.
type LabTestEntry struct {
	ID         int64
	TestTypeID int64
	TestName   string
	PatientID  int64
	DoctorID   *int64
	Date       time.Time
	State      string
	Urgent     bool
	CriteriaID string
	Context    *string
}

// View is the hydrated prescription handed to clients.
type View struct {
	Order    Order
	Doctor   string
	Patient  string
	Lines    []Line
	LabTests []LabTestEntry
	Vitals   *Vitals
}
