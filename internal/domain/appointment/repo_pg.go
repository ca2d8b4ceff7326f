package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the SQLSTATE raised by uq_appointments_open_slot.
const pgUniqueViolation = "23505"

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PGRepository stores appointments in Postgres. The partial unique index on
// (doctor_id, date, time_slot) for scheduled rows backs the double-booking
// check across processes.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const apptCols = `id, doctor_id, patient_id, patient_name, patient_phone, date, time_slot,
	consultation_type, status, symptoms, prescription, prescription_id, consultation_fee,
	token_number, payment_status, cancel_reason, cancelled_by, rescheduled_by, rescheduled_at,
	original_date, original_time_slot, rescheduled_count, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.PatientName, &a.PatientPhone, &a.Date, &a.TimeSlot,
		&a.ConsultationType, &status, &a.Symptoms, &a.Prescription, &a.PrescriptionID, &a.ConsultationFee,
		&a.TokenNumber, &a.PaymentStatus, &a.CancelReason, &a.CancelledBy, &a.RescheduledBy, &a.RescheduledAt,
		&a.OriginalDate, &a.OriginalTimeSlot, &a.RescheduledCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

func (r *PGRepository) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointments WHERE 1=1`
	var args []interface{}
	idx := 1
	add := func(col, val string) {
		if val == "" {
			return
		}
		query += fmt.Sprintf(` AND %s = $%d`, col, idx)
		args = append(args, val)
		idx++
	}
	add("doctor_id", f.DoctorID)
	add("patient_id", f.PatientID)
	add("date", f.Date)
	add("status", string(f.Status))
	query += ` ORDER BY date, created_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()
	out := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *PGRepository) Append(ctx context.Context, a *Appointment) (*Appointment, error) {
	rec := a.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (`+apptCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
		rec.ID, rec.DoctorID, rec.PatientID, rec.PatientName, rec.PatientPhone, rec.Date, rec.TimeSlot,
		rec.ConsultationType, string(rec.Status), rec.Symptoms, rec.Prescription, rec.PrescriptionID, rec.ConsultationFee,
		rec.TokenNumber, rec.PaymentStatus, rec.CancelReason, rec.CancelledBy, rec.RescheduledBy, rec.RescheduledAt,
		rec.OriginalDate, rec.OriginalTimeSlot, rec.RescheduledCount, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, classifyPG(err)
	}
	return rec, nil
}

func (r *PGRepository) Mutate(ctx context.Context, id string, p Patch) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cur, err := scanAppointment(tx.QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	p.Apply(cur)
	cur.UpdatedAt = time.Now().UTC()

	if err := update(ctx, tx, cur); err != nil {
		return nil, classifyPG(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPG(err)
	}
	return cur, nil
}

func update(ctx context.Context, q queryable, a *Appointment) error {
	_, err := q.Exec(ctx, `
		UPDATE appointments SET status=$2, date=$3, time_slot=$4, symptoms=$5, prescription=$6,
			prescription_id=$7, cancel_reason=$8, cancelled_by=$9, rescheduled_by=$10, rescheduled_at=$11,
			original_date=$12, original_time_slot=$13, rescheduled_count=$14, payment_status=$15, updated_at=$16
		WHERE id = $1`,
		a.ID, string(a.Status), a.Date, a.TimeSlot, a.Symptoms, a.Prescription,
		a.PrescriptionID, a.CancelReason, a.CancelledBy, a.RescheduledBy, a.RescheduledAt,
		a.OriginalDate, a.OriginalTimeSlot, a.RescheduledCount, a.PaymentStatus, a.UpdatedAt)
	return err
}

// classifyPG turns a unique violation into ErrConflict.
func classifyPG(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}
