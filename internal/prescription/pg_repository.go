package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) GetAppointmentParties(ctx context.Context, appointmentID int64) (int64, int64, error) {
	var patient, healthProf *int64
	err := r.pool.QueryRow(ctx, `
		SELECT patient, healthprof
		FROM gnuhealth_appointment
		WHERE id = $1
	`, appointmentID).Scan(&patient, &healthProf)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrAppointmentNotFound
		}
		return 0, 0, err
	}
	if patient == nil || healthProf == nil {
		return 0, 0, ErrAppointmentNotFound
	}
	return *patient, *healthProf, nil
}

func (r *PgRepository) ResolvePatient(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT gp.id
		FROM res_user ru
		JOIN party_party pp ON pp.internal_user = ru.id
		JOIN gnuhealth_patient gp ON gp.name = pp.id
		WHERE ru.id = $1
	`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotPatient
		}
		return 0, err
	}
	return id, nil
}

func (r *PgRepository) GetHealthProfName(ctx context.Context, healthProfID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `
		SELECT pp.name
		FROM gnuhealth_healthprofessional ghp
		JOIN party_party pp ON ghp.name = pp.id
		WHERE ghp.id = $1
	`, healthProfID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrHealthProfNotFound
		}
		return "", err
	}
	return name, nil
}

// Save upserts the order and replaces its medicine lines and lab-test
// entries wholesale. An empty payload therefore clears them.
func (r *PgRepository) Save(ctx context.Context, data SaveData) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin prescription save: %w", err)
	}
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM gnuhealth_prescription_order
		WHERE appointment_id = $1
	`, data.AppointmentID).Scan(&orderID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		err = tx.QueryRow(ctx, `
			INSERT INTO gnuhealth_prescription_order
				(appointment_id, prescription_id, patient, healthprof, prescription_date)
			VALUES ($1, $2, $3, $4, now())
			RETURNING id
		`, data.AppointmentID, data.PrescriptionID, data.Patient, data.HealthProf).Scan(&orderID)
		if err != nil {
			return 0, fmt.Errorf("create prescription order: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("load prescription order: %w", err)
	default:
		if _, err := tx.Exec(ctx, `
			UPDATE gnuhealth_prescription_order
			SET prescription_id = $2
			WHERE id = $1
		`, orderID, data.PrescriptionID); err != nil {
			return 0, fmt.Errorf("update prescription order: %w", err)
		}
	}

	if data.Notes != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE gnuhealth_prescription_order
			SET notes = $2
			WHERE id = $1
		`, orderID, *data.Notes); err != nil {
			return 0, fmt.Errorf("update prescription notes: %w", err)
		}
	}

	if data.Vitals != nil {
		if err := upsertVitals(ctx, tx, data.AppointmentID, data.Vitals); err != nil {
			return 0, err
		}
	}

	// Full replace of medicine lines.
	if _, err := tx.Exec(ctx, `
		DELETE FROM gnuhealth_prescription_line WHERE name = $1
	`, orderID); err != nil {
		return 0, fmt.Errorf("clear prescription lines: %w", err)
	}
	for _, med := range data.Medicines {
		medicamentID, err := resolveMedicament(ctx, tx, med.ActiveComponent)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO gnuhealth_prescription_line
				(name, medicament, dose, frequency, duration)
			VALUES ($1, $2, $3, $4, $5)
		`, orderID, medicamentID, med.Dose, med.Frequency, med.Duration); err != nil {
			return 0, fmt.Errorf("insert prescription line: %w", err)
		}
	}

	// Full replace of prescription-linked lab tests.
	if _, err := tx.Exec(ctx, `
		DELETE FROM gnuhealth_patient_lab_test WHERE request_order = $1
	`, orderID); err != nil {
		return 0, fmt.Errorf("clear prescription lab tests: %w", err)
	}
	for _, testName := range data.TestNames {
		typeID, err := resolveTestType(ctx, tx, testName)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO gnuhealth_patient_lab_test
				(name, patient_id, doctor_id, date, state, request_order)
			VALUES ($1, $2, $3, now(), 'requested', $4)
		`, typeID, data.Patient, data.HealthProf, orderID); err != nil {
			return 0, fmt.Errorf("insert prescription lab test: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit prescription save: %w", err)
	}
	return orderID, nil
}

func upsertVitals(ctx context.Context, tx pgx.Tx, appointmentID int64, v *Vitals) error {
	var evalID int64
	err := tx.QueryRow(ctx, `
		SELECT id FROM gnuhealth_patient_evaluation
		WHERE appointment = $1
	`, appointmentID).Scan(&evalID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = tx.Exec(ctx, `
			INSERT INTO gnuhealth_patient_evaluation
				(appointment, chief_complaint, systolic, diastolic, glycemia, weight, height)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, appointmentID, v.Complaint, v.Systolic, v.Diastolic, v.Glycemia, v.Weight, v.Height)
		if err != nil {
			return fmt.Errorf("insert evaluation: %w", err)
		}
	case err != nil:
		return fmt.Errorf("load evaluation: %w", err)
	default:
		_, err = tx.Exec(ctx, `
			UPDATE gnuhealth_patient_evaluation
			SET chief_complaint = $2,
			    systolic = $3,
			    diastolic = $4,
			    glycemia = $5,
			    weight = $6,
			    height = $7
			WHERE id = $1
		`, evalID, v.Complaint, v.Systolic, v.Diastolic, v.Glycemia, v.Weight, v.Height)
		if err != nil {
			return fmt.Errorf("update evaluation: %w", err)
		}
	}
	return nil
}

func resolveMedicament(ctx context.Context, tx pgx.Tx, activeComponent string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		SELECT id FROM gnuhealth_medicament
		WHERE active_component = $1
	`, activeComponent).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = tx.QueryRow(ctx, `
			INSERT INTO gnuhealth_medicament (active_component)
			VALUES ($1)
			RETURNING id
		`, activeComponent).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve medicament %q: %w", activeComponent, err)
	}
	return id, nil
}

func resolveTestType(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		SELECT id FROM gnuhealth_lab_test_type
		WHERE name = $1
	`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		code := "TEST_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		err = tx.QueryRow(ctx, `
			INSERT INTO gnuhealth_lab_test_type (name, code)
			VALUES ($1, $2)
			RETURNING id
		`, name, code).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve lab test type %q: %w", name, err)
	}
	return id, nil
}

func (r *PgRepository) GetView(ctx context.Context, appointmentID int64) (*View, error) {
	var v View
	err := r.pool.QueryRow(ctx, `
		SELECT gpo.id, gpo.appointment_id, COALESCE(gpo.prescription_id, ''),
		       gpo.patient, gpo.healthprof, gpo.notes,
		       docpp.name, patpp.name
		FROM gnuhealth_prescription_order gpo
		JOIN gnuhealth_healthprofessional ghp ON gpo.healthprof = ghp.id
		JOIN party_party docpp ON ghp.name = docpp.id
		JOIN gnuhealth_patient gp ON gpo.patient = gp.id
		JOIN party_party patpp ON gp.name = patpp.id
		WHERE gpo.appointment_id = $1
	`, appointmentID).Scan(
		&v.Order.ID, &v.Order.AppointmentID, &v.Order.PrescriptionID,
		&v.Order.Patient, &v.Order.HealthProf, &v.Order.Notes,
		&v.Doctor, &v.Patient,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}

	lines, err := r.pool.Query(ctx, `
		SELECT gpl.id, gpl.name, gpl.medicament, gm.active_component,
		       gpl.dose, gpl.frequency, gpl.duration
		FROM gnuhealth_prescription_line gpl
		JOIN gnuhealth_medicament gm ON gpl.medicament = gm.id
		WHERE gpl.name = $1
	`, v.Order.ID)
	if err != nil {
		return nil, err
	}
	defer lines.Close()
	for lines.Next() {
		var l Line
		if err := lines.Scan(&l.ID, &l.OrderID, &l.MedicamentID, &l.ActiveComponent, &l.Dose, &l.Frequency, &l.Duration); err != nil {
			return nil, err
		}
		v.Lines = append(v.Lines, l)
	}
	if err := lines.Err(); err != nil {
		return nil, err
	}

	tests, err := r.pool.Query(ctx, `
		SELECT gplt.id, gplt.name, gltt.name, gplt.patient_id, gplt.doctor_id,
		       gplt.date, COALESCE(gplt.state, ''), COALESCE(gplt.urgent, false),
		       COALESCE(gplt.test_critearea_id, ''), gplt.context
		FROM gnuhealth_patient_lab_test gplt
		JOIN gnuhealth_lab_test_type gltt ON gplt.name = gltt.id
		WHERE gplt.request_order = $1
	`, v.Order.ID)
	if err != nil {
		return nil, err
	}
	defer tests.Close()
	for tests.Next() {
		var t LabTestEntry
		if err := tests.Scan(&t.ID, &t.TestTypeID, &t.TestName, &t.PatientID, &t.DoctorID, &t.Date, &t.State, &t.Urgent, &t.CriteriaID, &t.Context); err != nil {
			return nil, err
		}
		v.LabTests = append(v.LabTests, t)
	}
	if err := tests.Err(); err != nil {
		return nil, err
	}

	var vit Vitals
	err = r.pool.QueryRow(ctx, `
		SELECT chief_complaint, systolic, diastolic, glycemia, weight, height
		FROM gnuhealth_patient_evaluation
		WHERE appointment = $1
	`, appointmentID).Scan(&vit.Complaint, &vit.Systolic, &vit.Diastolic, &vit.Glycemia, &vit.Weight, &vit.Height)
	if err == nil {
		v.Vitals = &vit
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	return &v, nil
}

func (r *PgRepository) CreateLabTests(ctx context.Context, entries []LabTestEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin lab test insert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO gnuhealth_patient_lab_test
				(name, patient_id, doctor_id, date, state, urgent, test_critearea_id, context)
			VALUES ($1, $2, $3, now(), 'requested', $4, $5, $6)
		`, e.TestTypeID, e.PatientID, e.DoctorID, e.Urgent, e.CriteriaID, e.Context)
		if err != nil {
			return fmt.Errorf("insert lab test request: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit lab test insert: %w", err)
	}
	return nil
}

func (r *PgRepository) ListLabTests(ctx context.Context, patientID *int64, day *time.Time) ([]LabTestEntry, error) {
	query := `
		SELECT gplt.id, gplt.name, gltt.name, gplt.patient_id, gplt.doctor_id,
		       gplt.date, COALESCE(gplt.state, ''), COALESCE(gplt.urgent, false),
		       COALESCE(gplt.test_critearea_id, ''), gplt.context
		FROM gnuhealth_patient_lab_test gplt
		JOIN gnuhealth_lab_test_type gltt ON gplt.name = gltt.id
		WHERE COALESCE(gplt.state, '') <> 'done'`
	args := []any{}
	n := 0
	if patientID != nil {
		n++
		query += fmt.Sprintf(" AND gplt.patient_id = $%d", n)
		args = append(args, *patientID)
	}
	if day != nil {
		n++
		query += fmt.Sprintf(" AND gplt.date::date = $%d::date", n)
		args = append(args, *day)
	}
	query += " ORDER BY gplt.date DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LabTestEntry
	for rows.Next() {
		var t LabTestEntry
		if err := rows.Scan(&t.ID, &t.TestTypeID, &t.TestName, &t.PatientID, &t.DoctorID, &t.Date, &t.State, &t.Urgent, &t.CriteriaID, &t.Context); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PgRepository) ListTestTypes(ctx context.Context) ([]LabTestType, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT gltt.id, gltt.name, COALESCE(gltt.code, ''),
		       COALESCE(array_agg(gltc.name) FILTER (WHERE gltc.name IS NOT NULL), '{}')
		FROM gnuhealth_lab_test_type gltt
		LEFT JOIN gnuhealth_lab_test_critearea gltc ON gltc.test_type_id = gltt.id
		GROUP BY gltt.id, gltt.name, gltt.code
		ORDER BY gltt.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LabTestType
	for rows.Next() {
		var t LabTestType
		if err := rows.Scan(&t.ID, &t.Name, &t.Code, &t.Criteria); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
