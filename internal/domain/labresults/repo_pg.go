package labresults

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medislot/medislot/internal/platform/db"
)

type reportRepoPG struct{ pool *pgxpool.Pool }

func NewReportRepoPG(pool *pgxpool.Pool) ReportRepository { return &reportRepoPG{pool: pool} }

func (r *reportRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const reportCols = `id, patient_id, test_name, file_name, content_type,
	size_bytes, content_hash, note, uploaded_by, uploaded_at`

func scanReport(row pgx.Row) (*LabReport, error) {
	var lr LabReport
	err := row.Scan(&lr.ID, &lr.PatientID, &lr.TestName, &lr.FileName, &lr.ContentType,
		&lr.SizeBytes, &lr.ContentHash, &lr.Note, &lr.UploadedBy, &lr.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &lr, err
}

func (r *reportRepoPG) Create(ctx context.Context, lr *LabReport) error {
	lr.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_reports (id, patient_id, test_name, file_name, content_type,
			size_bytes, content_hash, note, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		lr.ID, lr.PatientID, lr.TestName, lr.FileName, lr.ContentType,
		lr.SizeBytes, lr.ContentHash, lr.Note, lr.UploadedBy)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrInvalidReference
	}
	return err
}

func (r *reportRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*LabReport, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM lab_reports WHERE id = $1`, id))
}

func (r *reportRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM lab_reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *reportRepoPG) List(ctx context.Context, params map[string]string, limit, offset int) ([]*LabReport, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	idx := 1

	if p, ok := params["patient"]; ok {
		where += fmt.Sprintf(" AND patient_id = $%d", idx)
		args = append(args, p)
		idx++
	}
	if q, ok := params["q"]; ok {
		where += fmt.Sprintf(" AND (test_name ILIKE $%d OR file_name ILIKE $%d)", idx, idx)
		args = append(args, "%"+q+"%")
		idx++
	}
	if f, ok := params["from"]; ok {
		where += fmt.Sprintf(" AND uploaded_at >= $%d", idx)
		args = append(args, f)
		idx++
	}
	if t, ok := params["to"]; ok {
		where += fmt.Sprintf(" AND uploaded_at <= $%d", idx)
		args = append(args, t)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_reports`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + reportCols + ` FROM lab_reports` + where +
		fmt.Sprintf(" ORDER BY uploaded_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reports := []*LabReport{}
	for rows.Next() {
		lr, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, lr)
	}
	return reports, total, rows.Err()
}

func (r *reportRepoPG) CountByHash(ctx context.Context, hash string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM lab_reports WHERE content_hash = $1`, hash).Scan(&n)
	return n, err
}
