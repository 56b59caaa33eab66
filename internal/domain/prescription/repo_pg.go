package prescription

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinica/clinic/internal/platform/db"
)

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const rxCols = `r.id, r.consultation_id, r.physician_id, r.patient_id, r.medications,
	r.instructions, r.status, r.dispensed_by, r.dispensed_at, r.notes, r.issued_at,
	COALESCE(p.first_name || ' ' || p.last_name, ''),
	COALESCE(e.first_name || ' ' || e.last_name, '')`

const rxFrom = ` FROM prescriptions r
	LEFT JOIN patients p ON p.id = r.patient_id
	LEFT JOIN employees e ON e.id = r.physician_id`

func (r *prescriptionRepoPG) scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.ConsultationID, &p.PhysicianID, &p.PatientID, &p.Medications,
		&p.Instructions, &p.Status, &p.DispensedBy, &p.DispensedAt, &p.Notes, &p.IssuedAt,
		&p.PatientName, &p.PhysicianName)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &p, nil
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescriptions (id, consultation_id, physician_id, patient_id, medications, instructions, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING issued_at`,
		p.ID, p.ConsultationID, p.PhysicianID, p.PatientID, p.Medications, p.Instructions, p.Status,
	).Scan(&p.IssuedAt)
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return r.scanPrescription(r.conn(ctx).QueryRow(ctx, `SELECT `+rxCols+rxFrom+` WHERE r.id = $1`, id))
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescriptions SET medications=$2, instructions=$3, status=$4,
			dispensed_by=$5, dispensed_at=$6, notes=$7
		WHERE id = $1`,
		p.ID, p.Medications, p.Instructions, p.Status, p.DispensedBy, p.DispensedAt, p.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *prescriptionRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Prescription, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	for _, col := range []string{"patient_id", "physician_id", "status"} {
		if p, ok := params[col]; ok {
			where += fmt.Sprintf(` AND r.%s = $%d`, col, idx)
			args = append(args, p)
			idx++
		}
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions r`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + rxCols + rxFrom + where +
		fmt.Sprintf(` ORDER BY r.issued_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := r.scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
