package consultation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinica/clinic/internal/platform/db"
)

type consultationRepoPG struct{ pool *pgxpool.Pool }

func NewConsultationRepoPG(pool *pgxpool.Pool) ConsultationRepository {
	return &consultationRepoPG{pool: pool}
}

func (r *consultationRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const consultCols = `c.id, c.appointment_id, c.patient_id, c.physician_id, c.vitals,
	c.reason, c.current_illness, c.physical_exam, c.diagnosis, c.secondary_diagnoses,
	c.treatment, c.instructions, c.requested_exams, c.prognosis, c.notes,
	COALESCE(p.first_name || ' ' || p.last_name, ''), c.consulted_at`

const consultFrom = ` FROM consultations c LEFT JOIN patients p ON p.id = c.patient_id`

func (r *consultationRepoPG) scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(&c.ID, &c.AppointmentID, &c.PatientID, &c.PhysicianID, &c.Vitals,
		&c.Reason, &c.CurrentIllness, &c.PhysicalExam, &c.Diagnosis, &c.SecondaryDiagnoses,
		&c.Treatment, &c.Instructions, &c.RequestedExams, &c.Prognosis, &c.Notes,
		&c.PatientName, &c.ConsultedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &c, nil
}

func (r *consultationRepoPG) Create(ctx context.Context, c *Consultation) error {
	c.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consultations (id, appointment_id, patient_id, physician_id, vitals,
			reason, current_illness, physical_exam, diagnosis, secondary_diagnoses,
			treatment, instructions, requested_exams, prognosis, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING consulted_at`,
		c.ID, c.AppointmentID, c.PatientID, c.PhysicianID, c.Vitals,
		c.Reason, c.CurrentIllness, c.PhysicalExam, c.Diagnosis, c.SecondaryDiagnoses,
		c.Treatment, c.Instructions, c.RequestedExams, c.Prognosis, c.Notes,
	).Scan(&c.ConsultedAt)
}

func (r *consultationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return r.scanConsultation(r.conn(ctx).QueryRow(ctx, `SELECT `+consultCols+consultFrom+` WHERE c.id = $1`, id))
}

func (r *consultationRepoPG) Update(ctx context.Context, c *Consultation) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE consultations SET vitals=$2, reason=$3, current_illness=$4, physical_exam=$5,
			diagnosis=$6, secondary_diagnoses=$7, treatment=$8, instructions=$9,
			requested_exams=$10, prognosis=$11, notes=$12
		WHERE id = $1`,
		c.ID, c.Vitals, c.Reason, c.CurrentIllness, c.PhysicalExam,
		c.Diagnosis, c.SecondaryDiagnoses, c.Treatment, c.Instructions,
		c.RequestedExams, c.Prognosis, c.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *consultationRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Consultation, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	filters := []struct{ param, clause string }{
		{"patient_id", `c.patient_id = $%d`},
		{"physician_id", `c.physician_id = $%d`},
		{"from", `c.consulted_at::date >= $%d::date`},
		{"to", `c.consulted_at::date <= $%d::date`},
	}
	for _, f := range filters {
		if p, ok := params[f.param]; ok {
			where += ` AND ` + fmt.Sprintf(f.clause, idx)
			args = append(args, p)
			idx++
		}
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consultations c`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + consultCols + consultFrom + where +
		fmt.Sprintf(` ORDER BY c.consulted_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Consultation
	for rows.Next() {
		c, err := r.scanConsultation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
