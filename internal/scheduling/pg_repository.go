package scheduling

import (
	"context"
	"errors"
	"fmt"
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

const appointmentColumns = `
	id, name, appointment_date, appointment_type, healthprof, patient,
	institution, speciality, state, urgency, visit_type,
	create_uid, create_date, write_uid, write_date
`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var name, urgency, visitType *string

	err := row.Scan(
		&a.ID,
		&name,
		&a.Date,
		&a.Type,
		&a.HealthProf,
		&a.Patient,
		&a.Institution,
		&a.Speciality,
		&a.State,
		&urgency,
		&visitType,
		&a.CreateUID,
		&a.CreateDate,
		&a.WriteUID,
		&a.WriteDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if name != nil {
		a.Name = *name
	}
	if urgency != nil {
		a.Urgency = *urgency
	}
	if visitType != nil {
		a.VisitType = *visitType
	}
	return &a, nil
}

// newAppointmentName follows the upstream "APP <year>/<hex>" convention.
func newAppointmentName(now time.Time) string {
	return fmt.Sprintf("APP %d/%s", now.Year(), uuid.NewString()[:6])
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

func (r *PgRepository) ResolveHealthProf(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT ghp.id
		FROM res_user ru
		JOIN party_party pp ON pp.internal_user = ru.id
		JOIN gnuhealth_healthprofessional ghp ON ghp.name = pp.id
		WHERE ru.id = $1 AND COALESCE(pp.is_healthprof, false)
	`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotHealthProf
		}
		return 0, err
	}
	return id, nil
}

func (r *PgRepository) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM gnuhealth_appointment
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ExistingSlotTimes(ctx context.Context, healthProf int64, from, to time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT appointment_date
		FROM gnuhealth_appointment
		WHERE healthprof = $1
		  AND appointment_date >= $2
		  AND appointment_date < $3
	`, healthProf, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func (r *PgRepository) InsertFreeSlots(ctx context.Context, healthProf int64, apptType AppointmentType, times []time.Time, createUID int64) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin insert slots: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	inserted := 0
	for _, ts := range times {
		_, err := tx.Exec(ctx, `
			INSERT INTO gnuhealth_appointment
				(name, appointment_date, appointment_type, healthprof, state,
				 urgency, visit_type, create_uid, create_date)
			VALUES ($1, $2, $3, $4, 'free', 'a', 'general', $5, now())
		`, newAppointmentName(now), ts, apptType, healthProf, createUID)
		if err != nil {
			return 0, fmt.Errorf("insert slot at %s: %w", ts, err)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit insert slots: %w", err)
	}
	return inserted, nil
}

func (r *PgRepository) BookSlot(ctx context.Context, id, patientID, writeUID int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE gnuhealth_appointment
		SET patient = $2,
		    state = 'booked',
		    write_uid = $3,
		    write_date = now()
		WHERE id = $1
		  AND state = 'free'
		  AND appointment_date > now()
		RETURNING `+appointmentColumns,
		id, patientID, writeUID)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) UpdateState(ctx context.Context, id int64, from []AppointmentState, to AppointmentState, clearPatient bool, writeUID int64) (*Appointment, error) {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}

	query := `
		UPDATE gnuhealth_appointment
		SET state = $2,
		    write_uid = $3,
		    write_date = now()`
	if clearPatient {
		query += `,
		    patient = NULL`
	}
	query += `
		WHERE id = $1
		  AND state = ANY($4)
		RETURNING ` + appointmentColumns

	row := r.pool.QueryRow(ctx, query, id, to, writeUID, states)
	return scanAppointment(row)
}

// Reschedule books the target slot and frees the source in one transaction.
// Either both transitions apply or neither does.
func (r *PgRepository) Reschedule(ctx context.Context, sourceID, targetID, patientID, writeUID int64) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reschedule: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE gnuhealth_appointment
		SET patient = $2,
		    state = 'booked',
		    write_uid = $3,
		    write_date = now()
		WHERE id = $1
		  AND state = 'free'
		  AND appointment_date > now()
		RETURNING `+appointmentColumns,
		targetID, patientID, writeUID)

	target, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE gnuhealth_appointment
		SET patient = NULL,
		    state = 'free',
		    write_uid = $3,
		    write_date = now()
		WHERE id = $1
		  AND patient = $2
		  AND state IN ('booked', 'confirmed')
	`, sourceID, patientID, writeUID)
	if err != nil {
		return nil, fmt.Errorf("free source slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotOwner
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reschedule: %w", err)
	}
	return target, nil
}

func (r *PgRepository) ListAvailable(ctx context.Context, healthProf int64, apptType AppointmentType, day *time.Time) ([]AvailableSlot, error) {
	query := `
		SELECT ga.id, ga.appointment_date, ga.appointment_type, ga.healthprof,
		       pp.name, gs.name
		FROM gnuhealth_appointment ga
		JOIN gnuhealth_healthprofessional ghp ON ga.healthprof = ghp.id
		JOIN party_party pp ON ghp.name = pp.id
		LEFT JOIN gnuhealth_specialty gs ON ga.speciality = gs.id
		WHERE ga.state = 'free'
		  AND ga.appointment_date > now()`
	args := []any{}
	n := 0

	if healthProf != 0 {
		n++
		query += fmt.Sprintf(" AND ga.healthprof = $%d", n)
		args = append(args, healthProf)
	}
	if apptType != "" {
		n++
		query += fmt.Sprintf(" AND ga.appointment_type = $%d", n)
		args = append(args, apptType)
	}
	if day != nil {
		n++
		query += fmt.Sprintf(" AND ga.appointment_date::date = $%d::date", n)
		args = append(args, *day)
	}
	query += " ORDER BY ga.appointment_date"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []AvailableSlot
	for rows.Next() {
		var s AvailableSlot
		if err := rows.Scan(&s.ID, &s.Date, &s.Type, &s.HealthProf, &s.DoctorName, &s.Speciality); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID int64) ([]AppointmentSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ga.id, COALESCE(ga.name, ''), ga.appointment_date,
		       ga.appointment_type, ga.state, pp.name, gs.name
		FROM gnuhealth_appointment ga
		JOIN gnuhealth_healthprofessional ghp ON ga.healthprof = ghp.id
		JOIN party_party pp ON ghp.name = pp.id
		LEFT JOIN gnuhealth_specialty gs ON ga.speciality = gs.id
		WHERE ga.patient = $1
		ORDER BY ga.appointment_date DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AppointmentSummary
	for rows.Next() {
		var s AppointmentSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Date, &s.Type, &s.State, &s.DoctorName, &s.Speciality); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PgRepository) DoctorDay(ctx context.Context, healthProf int64, day time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM gnuhealth_appointment
		WHERE healthprof = $1
		  AND appointment_date::date = $2::date
		  AND state IN ('booked', 'confirmed')
		ORDER BY appointment_date
	`, healthProf, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *PgRepository) ListSpecialties(ctx context.Context) ([]SpecialtyRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name
		FROM gnuhealth_specialty
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SpecialtyRef
	for rows.Next() {
		var s SpecialtyRef
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PgRepository) ListDoctors(ctx context.Context, specialtyID *int64) ([]DoctorRef, error) {
	query := `
		SELECT ghp.id, pp.name, gs.name
		FROM gnuhealth_healthprofessional ghp
		JOIN party_party pp ON ghp.name = pp.id
		LEFT JOIN gnuhealth_specialty gs ON ghp.main_specialty = gs.id`
	args := []any{}
	if specialtyID != nil {
		query += " WHERE ghp.main_specialty = $1"
		args = append(args, *specialtyID)
	}
	query += " ORDER BY pp.name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DoctorRef
	for rows.Next() {
		var d DoctorRef
		if err := rows.Scan(&d.ID, &d.Name, &d.Speciality); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// cancelStaleSQL applies the same transition as staff approval of a single
// cancel request: the appointment is cancelled and the patient detached.
const cancelStaleSQL = `
	UPDATE gnuhealth_appointment
	SET state = 'cancelled',
	    patient = NULL,
	    write_date = now()
	WHERE state = 'cancel request'
	  AND write_date < $1`

func (r *PgRepository) CancelStaleRequests(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, cancelStaleSQL, olderThan)
	if err != nil {
		return 0, fmt.Errorf("cancel stale requests: %w", err)
	}
	return tag.RowsAffected(), nil
}
