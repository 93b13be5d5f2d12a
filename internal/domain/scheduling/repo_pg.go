package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Names of the unique indexes that back the double-booking and
// duplicate-waiting invariants (see migrations/001_init.sql).
const (
	bookedSlotConstraint   = "appointment_booked_slot_idx"
	waitingSlotConstraint  = "waiting_list_slot_idx"
	uniqueViolationSQLCode = "23505"
)

func todToPG(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t.Minutes()) * 60 * 1_000_000, Valid: true}
}

func todFromPG(t pgtype.Time) TimeOfDay {
	minutes := int(t.Microseconds / (60 * 1_000_000))
	return TimeOfDay{Hour: minutes / 60, Minute: minutes % 60}
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `id, doctor_id, patient_id, appointment_date, start_time, status, follow_up, created_at, updated_at`

func (r *appointmentRepoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var start pgtype.Time
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &start,
		&a.Status, &a.FollowUp, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.StartTime = todFromPG(start)
	return &a, nil
}

func (r *appointmentRepoPG) collect(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, doctor_id, patient_id, appointment_date, start_time, status, follow_up)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.DoctorID, a.PatientID, a.Date, todToPG(a.StartTime), a.Status, a.FollowUp)
	if isUniqueViolation(err, bookedSlotConstraint) {
		return ErrSlotTaken
	}
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := r.scanAppt(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	return a, err
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment
		SET patient_id=$2, appointment_date=$3, start_time=$4, status=$5, follow_up=$6, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.PatientID, a.Date, todToPG(a.StartTime), a.Status, a.FollowUp)
	if isUniqueViolation(err, bookedSlotConstraint) {
		return ErrSlotTaken
	}
	return err
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE patient_id = $1
		 ORDER BY appointment_date DESC, start_time DESC`, patientID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE doctor_id = $1
		 ORDER BY appointment_date DESC, start_time DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *appointmentRepoPG) ListBookedByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointment
		 WHERE doctor_id = $1 AND appointment_date = $2 AND status = $3
		 ORDER BY start_time ASC`, doctorID, date, StatusBooked)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *appointmentRepoPG) FindBooked(ctx context.Context, doctorID, patientID uuid.UUID, date time.Time, start TimeOfDay) (*Appointment, error) {
	a, err := r.scanAppt(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment
		 WHERE doctor_id = $1 AND patient_id = $2 AND appointment_date = $3
		   AND start_time = $4 AND status = $5`,
		doctorID, patientID, date, todToPG(start), StatusBooked))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *appointmentRepoPG) ListOverdueBooked(ctx context.Context, date time.Time, before TimeOfDay) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointment
		 WHERE status = $2
		   AND (appointment_date < $1 OR (appointment_date = $1 AND start_time < $3))
		 ORDER BY appointment_date ASC, start_time ASC`, date, StatusBooked, todToPG(before))
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

// =========== Waiting List Repository ===========

type waitingListRepoPG struct{ pool *pgxpool.Pool }

func NewWaitingListRepoPG(pool *pgxpool.Pool) WaitingListRepository {
	return &waitingListRepoPG{pool: pool}
}

func (r *waitingListRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const waitingCols = `id, doctor_id, patient_id, preferred_at, requested_at`

func (r *waitingListRepoPG) scanEntry(row pgx.Row) (*WaitingEntry, error) {
	var w WaitingEntry
	err := row.Scan(&w.ID, &w.DoctorID, &w.PatientID, &w.PreferredAt, &w.RequestedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *waitingListRepoPG) Create(ctx context.Context, w *WaitingEntry) error {
	w.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO waiting_list (id, doctor_id, patient_id, preferred_at, requested_at)
		VALUES ($1,$2,$3,$4,$5)`,
		w.ID, w.DoctorID, w.PatientID, w.PreferredAt, w.RequestedAt)
	if isUniqueViolation(err, waitingSlotConstraint) {
		return ErrDuplicateWaiting
	}
	return err
}

func (r *waitingListRepoPG) Exists(ctx context.Context, doctorID, patientID uuid.UUID, preferredAt time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM waiting_list
			WHERE doctor_id = $1 AND patient_id = $2 AND preferred_at = $3)`,
		doctorID, patientID, preferredAt).Scan(&exists)
	return exists, err
}

func (r *waitingListRepoPG) FindExact(ctx context.Context, doctorID uuid.UUID, preferredAt time.Time) (*WaitingEntry, error) {
	w, err := r.scanEntry(r.conn(ctx).QueryRow(ctx, `
		SELECT `+waitingCols+` FROM waiting_list
		WHERE doctor_id = $1 AND preferred_at = $2
		ORDER BY requested_at ASC LIMIT 1`, doctorID, preferredAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

func (r *waitingListRepoPG) ListWindow(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*WaitingEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+waitingCols+` FROM waiting_list
		WHERE doctor_id = $1 AND preferred_at BETWEEN $2 AND $3
		ORDER BY requested_at ASC`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*WaitingEntry
	for rows.Next() {
		w, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

func (r *waitingListRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM waiting_list WHERE id = $1`, id)
	return err
}

func (r *waitingListRepoPG) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM waiting_list WHERE id = ANY($1)`, ids)
	return err
}

func (r *waitingListRepoPG) DeleteByDoctorPatient(ctx context.Context, doctorID, patientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM waiting_list WHERE doctor_id = $1 AND patient_id = $2`,
		doctorID, patientID)
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolationSQLCode && pgErr.ConstraintName == constraint
}
