package attendance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinica/clinic/internal/platform/db"
)

type attendanceRepoPG struct{ pool *pgxpool.Pool }

func NewAttendanceRepoPG(pool *pgxpool.Pool) AttendanceRepository {
	return &attendanceRepoPG{pool: pool}
}

func (r *attendanceRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const recordCols = `a.id, a.employee_id, a.checked_in_at, a.checked_out_at, a.notes,
	COALESCE(e.first_name || ' ' || e.last_name, '')`

const recordFrom = ` FROM attendance a LEFT JOIN employees e ON e.id = a.employee_id`

func (r *attendanceRepoPG) scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	if err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.CheckedInAt, &rec.CheckedOutAt, &rec.Notes, &rec.EmployeeName); err != nil {
		return nil, db.NotFound(err)
	}
	return &rec, nil
}

func (r *attendanceRepoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO attendance (id, employee_id, checked_in_at, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING checked_in_at`,
		rec.ID, rec.EmployeeID, rec.CheckedInAt, rec.Notes,
	).Scan(&rec.CheckedInAt)
}

func (r *attendanceRepoPG) OpenFor(ctx context.Context, employeeID uuid.UUID) (*Record, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+recordFrom+`
		WHERE a.employee_id = $1 AND a.checked_out_at IS NULL
		ORDER BY a.checked_in_at DESC LIMIT 1`, employeeID))
}

func (r *attendanceRepoPG) Close(ctx context.Context, rec *Record) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE attendance SET checked_out_at = $2, notes = COALESCE($3, notes)
		WHERE id = $1 AND checked_out_at IS NULL`,
		rec.ID, rec.CheckedOutAt, rec.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *attendanceRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Record, int, error) {
	query := `SELECT ` + recordCols + recordFrom + ` WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM attendance a WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["employee_id"]; ok {
		clause := fmt.Sprintf(` AND a.employee_id = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, p)
		idx++
	}
	if p, ok := params["date"]; ok {
		clause := fmt.Sprintf(` AND a.checked_in_at::date = $%d::date`, idx)
		query += clause
		countQuery += clause
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY a.checked_in_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}
