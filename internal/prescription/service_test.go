package prescription

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPrescriptionRepo struct {
	mock.Mock
}

func (m *mockPrescriptionRepo) GetAppointmentParties(ctx context.Context, appointmentID int64) (int64, int64, error) {
	args := m.Called(ctx, appointmentID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *mockPrescriptionRepo) ResolvePatient(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPrescriptionRepo) GetHealthProfName(ctx context.Context, healthProfID int64) (string, error) {
	args := m.Called(ctx, healthProfID)
	return args.String(0), args.Error(1)
}

func (m *mockPrescriptionRepo) Save(ctx context.Context, data SaveData) (int64, error) {
	args := m.Called(ctx, data)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPrescriptionRepo) GetView(ctx context.Context, appointmentID int64) (*View, error) {
	args := m.Called(ctx, appointmentID)
	if v := args.Get(0); v != nil {
		return v.(*View), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPrescriptionRepo) CreateLabTests(ctx context.Context, entries []LabTestEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *mockPrescriptionRepo) ListLabTests(ctx context.Context, patientID *int64, day *time.Time) ([]LabTestEntry, error) {
	args := m.Called(ctx, patientID, day)
	if v := args.Get(0); v != nil {
		return v.([]LabTestEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPrescriptionRepo) ListTestTypes(ctx context.Context) ([]LabTestType, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]LabTestType), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestSaveBuildsPrescriptionID(t *testing.T) {
	repo := new(mockPrescriptionRepo)
	svc := newTestService(repo)

	repo.On("GetAppointmentParties", mock.Anything, int64(42)).Return(int64(7), int64(3), nil)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(data SaveData) bool {
		return data.PrescriptionID == "PRES 2026/42" &&
			data.Patient == 7 && data.HealthProf == 3 &&
			len(data.Medicines) == 1 && len(data.TestNames) == 1
	})).Return(int64(5), nil)

	id, err := svc.Save(context.Background(), 100, 42, SaveInput{
		Medicines: []MedicineSpec{{ActiveComponent: "Paracetamol"}},
		TestNames: []string{"CBC"},
	})
	require.NoError(t, err)
	assert.Equal(t, "PRES 2026/42", id)
	repo.AssertExpectations(t)
}

func TestSaveEmptyPayloadStillReplaces(t *testing.T) {
	repo := new(mockPrescriptionRepo)
	svc := newTestService(repo)

	repo.On("GetAppointmentParties", mock.Anything, int64(42)).Return(int64(7), int64(3), nil)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(data SaveData) bool {
		// Resending an empty set clears out previous lines.
		return len(data.Medicines) == 0 && len(data.TestNames) == 0
	})).Return(int64(5), nil)

	_, err := svc.Save(context.Background(), 100, 42, SaveInput{})
	require.NoError(t, err)
}

func TestSaveMissingAppointment(t *testing.T) {
	repo := new(mockPrescriptionRepo)
	svc := newTestService(repo)

	repo.On("GetAppointmentParties", mock.Anything, int64(42)).
		Return(int64(0), int64(0), ErrAppointmentNotFound)

	_, err := svc.Save(context.Background(), 100, 42, SaveInput{})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestParseVitalsSplitsBloodPressure(t *testing.T) {
	bp := "120/80"
	sugar := 5.4

	v := parseVitals(&VitalsInput{BloodPressure: &bp, SugarLevel: &sugar})
	require.NotNil(t, v.Systolic)
	require.NotNil(t, v.Diastolic)
	assert.Equal(t, 120.0, *v.Systolic)
	assert.Equal(t, 80.0, *v.Diastolic)
	assert.Equal(t, 5.4, *v.Glycemia)
}

func TestParseVitalsPartialBloodPressure(t *testing.T) {
	bp := "120"
	v := parseVitals(&VitalsInput{BloodPressure: &bp})
	require.NotNil(t, v.Systolic)
	assert.Equal(t, 120.0, *v.Systolic)
	assert.Nil(t, v.Diastolic)

	junk := "high"
	v = parseVitals(&VitalsInput{BloodPressure: &junk})
	assert.Nil(t, v.Systolic)
	assert.Nil(t, v.Diastolic)
}

func TestGetForAppointmentPatientOwnershipGate(t *testing.T) {
	repo := new(mockPrescriptionRepo)
	svc := newTestService(repo)

	view := &View{Order: Order{ID: 5, AppointmentID: 42, Patient: 7}}
	repo.On("GetView", mock.Anything, int64(42)).Return(view, nil)
	repo.On("ResolvePatient", mock.Anything, int64(100)).Return(int64(8), nil)

	_, err := svc.GetForAppointment(context.Background(), 100, false, 42)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestGetForAppointmentDoctorSeesAll(t *testing.T) {
	repo := new(mockPrescriptionRepo)
	svc := newTestService(repo)

	view := &View{Order: Order{ID: 5, AppointmentID: 42, Patient: 7}}
	repo.On("GetView", mock.Anything, int64(42)).Return(view, nil)

	got, err := svc.GetForAppointment(context.Background(), 100, true, 42)
	require.NoError(t, err)
	assert.Equal(t, view, got)
	repo.AssertNotCalled(t, "ResolvePatient", mock.Anything, mock.Anything)
}

func TestOrderLabTestsDoctorNeedsAppointment(t *testing.T) {
	repo := new(mockPrescriptionRepo)
	svc := newTestService(repo)

	err := svc.OrderLabTests(context.Background(), 100, true, LabTestOrderInput{
		Tests: []LabTestSelection{{TestTypeID: 1}},
	})
	assert.ErrorIs(t, err, ErrAppointmentRequired)
}

func TestOrderLabTestsPatientSelfOrder(t *testing.T) {
	repo := new(mockPrescriptionRepo)
	svc := newTestService(repo)

	repo.On("ResolvePatient", mock.Anything, int64(100)).Return(int64(7), nil)
	repo.On("CreateLabTests", mock.Anything, mock.MatchedBy(func(entries []LabTestEntry) bool {
		return len(entries) == 1 &&
			entries[0].PatientID == 7 &&
			entries[0].DoctorID == nil &&
			entries[0].CriteriaID == "1,2,3"
	})).Return(nil)

	err := svc.OrderLabTests(context.Background(), 100, false, LabTestOrderInput{
		Tests: []LabTestSelection{{TestTypeID: 1, CriteriaIDs: []int64{1, 2, 3}}},
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestOrderLabTestsDoctorTakesAppointmentParties(t *testing.T) {
	repo := new(mockPrescriptionRepo)
	svc := newTestService(repo)

	apptID := int64(42)
	repo.On("GetAppointmentParties", mock.Anything, apptID).Return(int64(7), int64(3), nil)
	repo.On("CreateLabTests", mock.Anything, mock.MatchedBy(func(entries []LabTestEntry) bool {
		return len(entries) == 1 &&
			entries[0].PatientID == 7 &&
			entries[0].DoctorID != nil && *entries[0].DoctorID == 3 &&
			entries[0].Urgent
	})).Return(nil)

	err := svc.OrderLabTests(context.Background(), 100, true, LabTestOrderInput{
		AppointmentID: &apptID,
		Urgent:        true,
		Tests:         []LabTestSelection{{TestTypeID: 1}},
	})
	require.NoError(t, err)
}

func TestOrderLabTestsValidatesNamedProfessional(t *testing.T) {
	repo := new(mockPrescriptionRepo)
	svc := newTestService(repo)

	hpID := int64(99)
	repo.On("ResolvePatient", mock.Anything, int64(100)).Return(int64(7), nil)
	repo.On("GetHealthProfName", mock.Anything, hpID).Return("", ErrHealthProfNotFound)

	err := svc.OrderLabTests(context.Background(), 100, false, LabTestOrderInput{
		HealthProfID: &hpID,
		Tests:        []LabTestSelection{{TestTypeID: 1}},
	})
	assert.ErrorIs(t, err, ErrHealthProfNotFound)
	repo.AssertNotCalled(t, "CreateLabTests", mock.Anything, mock.Anything)
}

func TestListLabTestsRejectsBadDate(t *testing.T) {
	repo := new(mockPrescriptionRepo)
	svc := newTestService(repo)

	_, err := svc.ListLabTests(context.Background(), nil, "not-a-date")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestJoinCriteria(t *testing.T) {
	assert.Equal(t, "", joinCriteria(nil))
	assert.Equal(t, "4", joinCriteria([]int64{4}))
	assert.Equal(t, "4,8,15", joinCriteria([]int64{4, 8, 15}))
}
