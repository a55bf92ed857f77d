package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	redisclient "github.com/medbridge/hospital-api/internal/redis"
)

var (
	ErrSlotBeingBooked        = errors.New("slot is currently being booked, please retry")
	ErrInvalidStateTransition = errors.New("invalid appointment state transition")
	ErrInvalidAppointmentType = errors.New("invalid appointment type")
	ErrInvalidDate            = errors.New("invalid date, expected YYYY-MM-DD")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log,
		now:    time.Now,
	}
}

type GenerateSlotsInput struct {
	Type            string
	StartDate       string // YYYY-MM-DD
	EndDate         string // YYYY-MM-DD
	StartTime       string // HH:MM
	EndTime         string // HH:MM
	DurationMinutes int
}

type GenerateSlotsResult struct {
	Inserted int
	Skipped  int
}

// GenerateSlots enumerates the professional's slot window and inserts every
// start time not already present as a free appointment. Times already on the
// calendar are skipped, compared as instants.
func (s *Service) GenerateSlots(ctx context.Context, userID int64, in GenerateSlotsInput) (*GenerateSlotsResult, error) {
	apptType, err := parseAppointmentType(in.Type)
	if err != nil {
		return nil, err
	}

	healthProf, err := s.repo.ResolveHealthProf(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotHealthProf) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve health professional: %w", err)
	}

	window, err := parseWindow(in)
	if err != nil {
		return nil, err
	}

	slots, err := window.Enumerate()
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return &GenerateSlotsResult{}, nil
	}

	// A midnight-spanning window can spill past EndDate, so fetch one day
	// beyond the last enumerated slot.
	from := slots[0]
	to := slots[len(slots)-1].Add(window.Duration).AddDate(0, 0, 1)
	existing, err := s.repo.ExistingSlotTimes(ctx, healthProf, from, to)
	if err != nil {
		return nil, fmt.Errorf("load existing slots: %w", err)
	}

	fresh := FilterExisting(slots, existing)
	skipped := len(slots) - len(fresh)

	inserted := 0
	if len(fresh) > 0 {
		inserted, err = s.repo.InsertFreeSlots(ctx, healthProf, apptType, fresh, userID)
		if err != nil {
			return nil, fmt.Errorf("insert slots: %w", err)
		}
	}

	s.log.Info().
		Int64("healthprof", healthProf).
		Int("inserted", inserted).
		Int("skipped", skipped).
		Msg("generated appointment slots")

	return &GenerateSlotsResult{Inserted: inserted, Skipped: skipped}, nil
}

// Book claims a free future slot for the calling patient. The per-slot lock
// plus the conditional update in the repository close the double-booking
// race: the loser of a concurrent pair sees zero rows updated.
func (s *Service) Book(ctx context.Context, userID, slotID int64) (*Appointment, error) {
	patientID, err := s.repo.ResolvePatient(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotPatient) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve patient: %w", err)
	}

	var booked *Appointment
	err = s.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		appt, err := s.repo.BookSlot(lockCtx, slotID, patientID, userID)
		if err != nil {
			return err
		}
		booked = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.log.Info().Int64("appointment", booked.ID).Int64("patient", patientID).Msg("slot booked")
	return booked, nil
}

// Confirm moves a booked appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, userID, id int64) (*Appointment, error) {
	return s.transition(ctx, userID, id, []AppointmentState{StateBooked}, StateConfirmed, false)
}

// CancelRequest lets the owning patient flag a booked or confirmed
// appointment for cancellation.
func (s *Service) CancelRequest(ctx context.Context, userID, id int64) (*Appointment, error) {
	patientID, err := s.repo.ResolvePatient(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotPatient) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve patient: %w", err)
	}

	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Patient == nil || *appt.Patient != patientID {
		return nil, ErrNotOwner
	}

	return s.transition(ctx, userID, id, []AppointmentState{StateBooked, StateConfirmed}, StateCancelRequest, false)
}

// ApproveCancel actions a pending cancel request: the appointment becomes
// cancelled and the patient is detached. Cancelled rows stay cancelled;
// fresh capacity comes from generating new slots.
func (s *Service) ApproveCancel(ctx context.Context, userID, id int64) (*Appointment, error) {
	return s.transition(ctx, userID, id, []AppointmentState{StateCancelRequest}, StateCancelled, true)
}

func (s *Service) transition(ctx context.Context, userID, id int64, from []AppointmentState, to AppointmentState, clearPatient bool) (*Appointment, error) {
	appt, err := s.repo.UpdateState(ctx, id, from, to, clearPatient, userID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Distinguish a missing row from one in the wrong state.
			if _, getErr := s.repo.GetAppointment(ctx, id); getErr == nil {
				return nil, ErrInvalidStateTransition
			}
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	s.log.Info().Int64("appointment", appt.ID).Str("state", string(to)).Msg("appointment state changed")
	return appt, nil
}

// Reschedule moves the caller's booked appointment to another free slot.
func (s *Service) Reschedule(ctx context.Context, userID, sourceID, targetID int64) (*Appointment, error) {
	patientID, err := s.repo.ResolvePatient(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotPatient) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve patient: %w", err)
	}

	var moved *Appointment
	err = s.locker.WithSlotLock(ctx, targetID, func(lockCtx context.Context) error {
		appt, err := s.repo.Reschedule(lockCtx, sourceID, targetID, patientID, userID)
		if err != nil {
			return err
		}
		moved = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.log.Info().
		Int64("from", sourceID).
		Int64("to", targetID).
		Int64("patient", patientID).
		Msg("appointment rescheduled")
	return moved, nil
}

type AvailabilityFilter struct {
	HealthProf int64
	Type       string
	Date       string // optional YYYY-MM-DD
}

func (s *Service) ListAvailable(ctx context.Context, f AvailabilityFilter) ([]AvailableSlot, error) {
	var apptType AppointmentType
	if f.Type != "" {
		t, err := parseAppointmentType(f.Type)
		if err != nil {
			return nil, err
		}
		apptType = t
	}

	var day *time.Time
	if f.Date != "" {
		d, err := time.Parse("2006-01-02", f.Date)
		if err != nil {
			return nil, ErrInvalidDate
		}
		day = &d
	}

	return s.repo.ListAvailable(ctx, f.HealthProf, apptType, day)
}

func (s *Service) MyAppointments(ctx context.Context, userID int64) ([]AppointmentSummary, error) {
	patientID, err := s.repo.ResolvePatient(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) DoctorDay(ctx context.Context, userID int64, date string) ([]Appointment, error) {
	healthProf, err := s.repo.ResolveHealthProf(ctx, userID)
	if err != nil {
		return nil, err
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return s.repo.DoctorDay(ctx, healthProf, day)
}

func (s *Service) Specialties(ctx context.Context) ([]SpecialtyRef, error) {
	return s.repo.ListSpecialties(ctx)
}

func (s *Service) Doctors(ctx context.Context, specialtyID *int64) ([]DoctorRef, error) {
	return s.repo.ListDoctors(ctx, specialtyID)
}

// SweepCancelRequests is called periodically by the sweeper worker.
func (s *Service) SweepCancelRequests(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge)
	n, err := s.repo.CancelStaleRequests(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("cancelled", n).Msg("actioned stale cancel requests")
	}
	return n, nil
}

func parseAppointmentType(t string) (AppointmentType, error) {
	switch AppointmentType(t) {
	case TypeTelemedicine, TypeInPerson:
		return AppointmentType(t), nil
	default:
		return "", ErrInvalidAppointmentType
	}
}

func parseWindow(in GenerateSlotsInput) (SlotWindow, error) {
	startDate, err := time.Parse("2006-01-02", in.StartDate)
	if err != nil {
		return SlotWindow{}, ErrInvalidDate
	}
	endDate, err := time.Parse("2006-01-02", in.EndDate)
	if err != nil {
		return SlotWindow{}, ErrInvalidDate
	}
	startTime, err := ParseTimeOfDay(in.StartTime)
	if err != nil {
		return SlotWindow{}, ErrInvalidWindow
	}
	endTime, err := ParseTimeOfDay(in.EndTime)
	if err != nil {
		return SlotWindow{}, ErrInvalidWindow
	}
	return SlotWindow{
		StartDate: startDate,
		EndDate:   endDate,
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  time.Duration(in.DurationMinutes) * time.Minute,
	}, nil
}
