package scheduling

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotPatient          = errors.New("user is not registered as a patient")
	ErrNotHealthProf       = errors.New("user is not a health professional")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("slot not found or already booked")
	ErrNotOwner            = errors.New("appointment does not belong to caller")
)

// Repository contains all DB interactions needed by the service. IDs are the
// integer keys of the underlying GNU Health/Tryton schema.
type Repository interface {
	// Identity resolution: res_user -> party_party -> patient / healthprof.
	ResolvePatient(ctx context.Context, userID int64) (int64, error)
	ResolveHealthProf(ctx context.Context, userID int64) (int64, error)

	GetAppointment(ctx context.Context, id int64) (*Appointment, error)

	// Slot generation
	ExistingSlotTimes(ctx context.Context, healthProf int64, from, to time.Time) ([]time.Time, error)
	InsertFreeSlots(ctx context.Context, healthProf int64, apptType AppointmentType, times []time.Time, createUID int64) (int, error)

	// Booking and lifecycle. BookSlot is a single conditional update on a
	// free future slot; zero rows affected surfaces as ErrSlotTaken.
	BookSlot(ctx context.Context, id, patientID, writeUID int64) (*Appointment, error)
	UpdateState(ctx context.Context, id int64, from []AppointmentState, to AppointmentState, clearPatient bool, writeUID int64) (*Appointment, error)
	Reschedule(ctx context.Context, sourceID, targetID, patientID, writeUID int64) (*Appointment, error)

	// Views
	ListAvailable(ctx context.Context, healthProf int64, apptType AppointmentType, day *time.Time) ([]AvailableSlot, error)
	ListByPatient(ctx context.Context, patientID int64) ([]AppointmentSummary, error)
	DoctorDay(ctx context.Context, healthProf int64, day time.Time) ([]Appointment, error)

	// Browse catalogs
	ListSpecialties(ctx context.Context) ([]SpecialtyRef, error)
	ListDoctors(ctx context.Context, specialtyID *int64) ([]DoctorRef, error)

	// Sweeper. Cancelling detaches the patient, same as staff approval.
	CancelStaleRequests(ctx context.Context, olderThan time.Time) (int64, error)
}
