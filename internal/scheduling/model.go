package scheduling

import (
	"time"
)

type AppointmentState string

const (
	StateFree          AppointmentState = "free"
	StateBooked        AppointmentState = "booked"
	StateConfirmed     AppointmentState = "confirmed"
	StateCancelRequest AppointmentState = "cancel request"
	StateCancelled     AppointmentState = "cancelled"
)

type AppointmentType string

const (
	TypeTelemedicine AppointmentType = "telemedicine"
	TypeInPerson     AppointmentType = "in-person"
)

// Appointment mirrors a gnuhealth_appointment row. A free slot has no
// patient; a booked or confirmed slot always has one.
type Appointment struct {
	ID          int64
	Name        string
	Date        time.Time
	Type        AppointmentType
	HealthProf  int64
	Patient     *int64
	Institution *int64
	Speciality  *int64
	State       AppointmentState
	Urgency     string
	VisitType   string
	CreateUID   *int64
	CreateDate  *time.Time
	WriteUID    *int64
	WriteDate   *time.Time
}

// AvailableSlot is the browse view of a free slot.
type AvailableSlot struct {
	ID         int64
	Date       time.Time
	Type       AppointmentType
	HealthProf int64
	DoctorName string
	Speciality *string
}

// AppointmentSummary is the patient-facing list view.
type AppointmentSummary struct {
	ID         int64
	Name       string
	Date       time.Time
	Type       AppointmentType
	State      AppointmentState
	DoctorName string
	Speciality *string
}

// SpecialtyRef and DoctorRef back the browse catalogs used by booking flows.
type SpecialtyRef struct {
	ID   int64
	Name string
}

type DoctorRef struct {
	ID         int64
	Name       string
	Speciality *string
}
