package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinica/clinic/internal/platform/db"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const apptCols = `a.id, a.patient_id, a.physician_id, a.scheduled_at, a.start_time, a.end_time,
	a.reason, a.status, a.appointment_type, a.room, a.cancellation_notes,
	COALESCE(p.first_name || ' ' || p.last_name, ''), a.created_at, a.updated_at`

const apptFrom = ` FROM appointments a LEFT JOIN patients p ON p.id = a.patient_id`

func (r *appointmentRepoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.PhysicianID, &a.ScheduledAt, &a.StartTime, &a.EndTime,
		&a.Reason, &a.Status, &a.Type, &a.Room, &a.CancellationNotes,
		&a.PatientName, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, physician_id, scheduled_at, start_time, end_time,
			reason, status, appointment_type, room)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.PhysicianID, a.ScheduledAt, a.StartTime, a.EndTime,
		a.Reason, a.Status, a.Type, a.Room,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+apptFrom+` WHERE a.id = $1`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET physician_id=$2, scheduled_at=$3, start_time=$4, end_time=$5,
			reason=$6, status=$7, room=$8, cancellation_notes=$9, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.PhysicianID, a.ScheduledAt, a.StartTime, a.EndTime,
		a.Reason, a.Status, a.Room, a.CancellationNotes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	filters := []struct{ param, clause string }{
		{"date", `a.scheduled_at::date = $%d::date`},
		{"status", `a.status = $%d`},
		{"patient_id", `a.patient_id = $%d`},
		{"physician_id", `a.physician_id = $%d`},
	}
	for _, f := range filters {
		if p, ok := params[f.param]; ok {
			where += ` AND ` + fmt.Sprintf(f.clause, idx)
			args = append(args, p)
			idx++
		}
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + apptFrom + where +
		fmt.Sprintf(` ORDER BY a.scheduled_at, a.start_time LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
