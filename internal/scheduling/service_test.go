package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	redisclient "github.com/medbridge/hospital-api/internal/redis"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) ResolvePatient(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) ResolveHealthProf(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	args := m.Called(ctx, id)
	if appt := args.Get(0); appt != nil {
		return appt.(*Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) ExistingSlotTimes(ctx context.Context, healthProf int64, from, to time.Time) ([]time.Time, error) {
	args := m.Called(ctx, healthProf, from, to)
	if v := args.Get(0); v != nil {
		return v.([]time.Time), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) InsertFreeSlots(ctx context.Context, healthProf int64, apptType AppointmentType, times []time.Time, createUID int64) (int, error) {
	args := m.Called(ctx, healthProf, apptType, times, createUID)
	return args.Int(0), args.Error(1)
}

func (m *mockRepo) BookSlot(ctx context.Context, id, patientID, writeUID int64) (*Appointment, error) {
	args := m.Called(ctx, id, patientID, writeUID)
	if appt := args.Get(0); appt != nil {
		return appt.(*Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) UpdateState(ctx context.Context, id int64, from []AppointmentState, to AppointmentState, clearPatient bool, writeUID int64) (*Appointment, error) {
	args := m.Called(ctx, id, from, to, clearPatient, writeUID)
	if appt := args.Get(0); appt != nil {
		return appt.(*Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) Reschedule(ctx context.Context, sourceID, targetID, patientID, writeUID int64) (*Appointment, error) {
	args := m.Called(ctx, sourceID, targetID, patientID, writeUID)
	if appt := args.Get(0); appt != nil {
		return appt.(*Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) ListAvailable(ctx context.Context, healthProf int64, apptType AppointmentType, day *time.Time) ([]AvailableSlot, error) {
	args := m.Called(ctx, healthProf, apptType, day)
	if v := args.Get(0); v != nil {
		return v.([]AvailableSlot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) ListByPatient(ctx context.Context, patientID int64) ([]AppointmentSummary, error) {
	args := m.Called(ctx, patientID)
	if v := args.Get(0); v != nil {
		return v.([]AppointmentSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) DoctorDay(ctx context.Context, healthProf int64, day time.Time) ([]Appointment, error) {
	args := m.Called(ctx, healthProf, day)
	if v := args.Get(0); v != nil {
		return v.([]Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) ListSpecialties(ctx context.Context) ([]SpecialtyRef, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]SpecialtyRef), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) ListDoctors(ctx context.Context, specialtyID *int64) ([]DoctorRef, error) {
	args := m.Called(ctx, specialtyID)
	if v := args.Get(0); v != nil {
		return v.([]DoctorRef), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) CancelStaleRequests(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// passthroughLocker runs the critical section without touching Redis.
type passthroughLocker struct{}

func (passthroughLocker) WithSlotLock(ctx context.Context, slotID int64, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// busyLocker simulates another booking holding the slot lock.
type busyLocker struct{}

func (busyLocker) WithSlotLock(ctx context.Context, slotID int64, fn func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func newTestService(repo Repository, locker redisclient.Locker) *Service {
	return NewService(repo, locker, zerolog.Nop())
}

func TestBookSuccess(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, passthroughLocker{})

	patientID := int64(7)
	want := &Appointment{ID: 42, Patient: &patientID, State: StateBooked}

	repo.On("ResolvePatient", mock.Anything, int64(100)).Return(int64(7), nil)
	repo.On("BookSlot", mock.Anything, int64(42), int64(7), int64(100)).Return(want, nil)

	appt, err := svc.Book(context.Background(), 100, 42)
	require.NoError(t, err)
	assert.Equal(t, want, appt)
	repo.AssertExpectations(t)
}

func TestBookSlotAlreadyTaken(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, passthroughLocker{})

	repo.On("ResolvePatient", mock.Anything, int64(100)).Return(int64(7), nil)
	repo.On("BookSlot", mock.Anything, int64(42), int64(7), int64(100)).Return(nil, ErrSlotTaken)

	_, err := svc.Book(context.Background(), 100, 42)
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestBookNotAPatient(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, passthroughLocker{})

	repo.On("ResolvePatient", mock.Anything, int64(100)).Return(int64(0), ErrNotPatient)

	_, err := svc.Book(context.Background(), 100, 42)
	assert.ErrorIs(t, err, ErrNotPatient)
	repo.AssertNotCalled(t, "BookSlot", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookLockBusy(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, busyLocker{})

	repo.On("ResolvePatient", mock.Anything, int64(100)).Return(int64(7), nil)

	_, err := svc.Book(context.Background(), 100, 42)
	assert.ErrorIs(t, err, ErrSlotBeingBooked)
	repo.AssertNotCalled(t, "BookSlot", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmWrongState(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, passthroughLocker{})

	// UpdateState matches no rows, but the row exists in another state.
	repo.On("UpdateState", mock.Anything, int64(5), []AppointmentState{StateBooked}, StateConfirmed, false, int64(9)).
		Return(nil, ErrAppointmentNotFound)
	repo.On("GetAppointment", mock.Anything, int64(5)).Return(&Appointment{ID: 5, State: StateFree}, nil)

	_, err := svc.Confirm(context.Background(), 9, 5)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestConfirmMissingAppointment(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, passthroughLocker{})

	repo.On("UpdateState", mock.Anything, int64(5), []AppointmentState{StateBooked}, StateConfirmed, false, int64(9)).
		Return(nil, ErrAppointmentNotFound)
	repo.On("GetAppointment", mock.Anything, int64(5)).Return(nil, ErrAppointmentNotFound)

	_, err := svc.Confirm(context.Background(), 9, 5)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCancelRequestNotOwner(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, passthroughLocker{})

	otherPatient := int64(99)
	repo.On("ResolvePatient", mock.Anything, int64(100)).Return(int64(7), nil)
	repo.On("GetAppointment", mock.Anything, int64(5)).
		Return(&Appointment{ID: 5, Patient: &otherPatient, State: StateBooked}, nil)

	_, err := svc.CancelRequest(context.Background(), 100, 5)
	assert.ErrorIs(t, err, ErrNotOwner)
	repo.AssertNotCalled(t, "UpdateState",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveCancelDetachesPatient(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, passthroughLocker{})

	want := &Appointment{ID: 5, State: StateCancelled}
	repo.On("UpdateState", mock.Anything, int64(5), []AppointmentState{StateCancelRequest}, StateCancelled, true, int64(9)).
		Return(want, nil)

	appt, err := svc.ApproveCancel(context.Background(), 9, 5)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, appt.State)
	repo.AssertExpectations(t)
}

func TestGenerateSlotsSkipsExisting(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, passthroughLocker{})

	existing := time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

	repo.On("ResolveHealthProf", mock.Anything, int64(100)).Return(int64(3), nil)
	repo.On("ExistingSlotTimes", mock.Anything, int64(3), mock.Anything, mock.Anything).
		Return([]time.Time{existing}, nil)
	repo.On("InsertFreeSlots", mock.Anything, int64(3), TypeInPerson,
		mock.MatchedBy(func(times []time.Time) bool { return len(times) == 3 }), int64(100)).
		Return(3, nil)

	result, err := svc.GenerateSlots(context.Background(), 100, GenerateSlotsInput{
		Type:            "in-person",
		StartDate:       "2026-03-02",
		EndDate:         "2026-03-02",
		StartTime:       "09:00",
		EndTime:         "11:00",
		DurationMinutes: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
}

func TestGenerateSlotsRejectsBadType(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, passthroughLocker{})

	_, err := svc.GenerateSlots(context.Background(), 100, GenerateSlotsInput{
		Type:            "house-call",
		StartDate:       "2026-03-02",
		EndDate:         "2026-03-02",
		StartTime:       "09:00",
		EndTime:         "11:00",
		DurationMinutes: 30,
	})
	assert.ErrorIs(t, err, ErrInvalidAppointmentType)
}

func TestRescheduleLockBusy(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, busyLocker{})

	repo.On("ResolvePatient", mock.Anything, int64(100)).Return(int64(7), nil)

	_, err := svc.Reschedule(context.Background(), 100, 5, 6)
	assert.ErrorIs(t, err, ErrSlotBeingBooked)
}

func TestSweepCancelRequests(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, passthroughLocker{})

	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	repo.On("CancelStaleRequests", mock.Anything, now.Add(-24*time.Hour)).Return(int64(2), nil)

	n, err := svc.SweepCancelRequests(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	repo.AssertExpectations(t)
}

// The sweeper and staff approval are two paths for the same transition, and
// both must leave cancelled rows without a patient.
func TestCancelStaleDetachesPatient(t *testing.T) {
	assert.Contains(t, cancelStaleSQL, "state = 'cancelled'")
	assert.Contains(t, cancelStaleSQL, "patient = NULL")
	assert.Contains(t, cancelStaleSQL, "state = 'cancel request'")
}

func TestListAvailableRejectsBadDate(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, passthroughLocker{})

	_, err := svc.ListAvailable(context.Background(), AvailabilityFilter{Date: "03/02/2026"})
	assert.True(t, errors.Is(err, ErrInvalidDate))
}
