package catalog

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

// =========== Center Repository ===========

type centerRepoPG struct{ pool *pgxpool.Pool }

func NewCenterRepoPG(pool *pgxpool.Pool) CenterRepository { return &centerRepoPG{pool: pool} }

func (r *centerRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const centerCols = `id, name, description, phone, email, address_line, district,
	province, opens_at, closes_at, active, created_at, updated_at`

func scanCenter(row pgx.Row) (*HealthCenter, error) {
	var hc HealthCenter
	err := row.Scan(&hc.ID, &hc.Name, &hc.Description, &hc.Phone, &hc.Email, &hc.AddressLine,
		&hc.District, &hc.Province, &hc.OpensAt, &hc.ClosesAt, &hc.Active, &hc.CreatedAt, &hc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &hc, err
}

func (r *centerRepoPG) Create(ctx context.Context, hc *HealthCenter) error {
	hc.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO health_centers (id, name, description, phone, email, address_line,
			district, province, opens_at, closes_at, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		hc.ID, hc.Name, hc.Description, hc.Phone, hc.Email, hc.AddressLine,
		hc.District, hc.Province, hc.OpensAt, hc.ClosesAt, hc.Active)
	return err
}

func (r *centerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*HealthCenter, error) {
	return scanCenter(r.conn(ctx).QueryRow(ctx, `SELECT `+centerCols+` FROM health_centers WHERE id = $1`, id))
}

func (r *centerRepoPG) Update(ctx context.Context, hc *HealthCenter) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE health_centers SET name=$2, description=$3, phone=$4, email=$5,
			address_line=$6, district=$7, province=$8, opens_at=$9, closes_at=$10,
			active=$11, updated_at=NOW()
		WHERE id = $1`,
		hc.ID, hc.Name, hc.Description, hc.Phone, hc.Email,
		hc.AddressLine, hc.District, hc.Province, hc.OpensAt, hc.ClosesAt, hc.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *centerRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM health_centers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *centerRepoPG) List(ctx context.Context, params map[string]string, limit, offset int) ([]*HealthCenter, int, error) {
	query := `SELECT ` + centerCols + ` FROM health_centers WHERE active = TRUE`
	countQuery := `SELECT COUNT(*) FROM health_centers WHERE active = TRUE`
	var args []interface{}
	idx := 1

	if p, ok := params["province"]; ok {
		query += fmt.Sprintf(` AND province = $%d`, idx)
		countQuery += fmt.Sprintf(` AND province = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["district"]; ok {
		query += fmt.Sprintf(` AND district = $%d`, idx)
		countQuery += fmt.Sprintf(` AND district = $%d`, idx)
		args = append(args, p)
		idx++
	}
	// open_at is an "HH:MM" local time; centers without hours never match.
	if p, ok := params["open_at"]; ok {
		query += fmt.Sprintf(` AND opens_at <= $%d AND closes_at >= $%d`, idx, idx)
		countQuery += fmt.Sprintf(` AND opens_at <= $%d AND closes_at >= $%d`, idx, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*HealthCenter
	for rows.Next() {
		hc, err := scanCenter(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, hc)
	}
	return items, total, nil
}

// =========== Test Repository ===========

type testRepoPG struct{ pool *pgxpool.Pool }

func NewTestRepoPG(pool *pgxpool.Pool) TestRepository { return &testRepoPG{pool: pool} }

func (r *testRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const testCols = `id, name, code, category, description, base_price, created_at, updated_at`

func scanTest(row pgx.Row) (*DiagnosticTest, error) {
	var t DiagnosticTest
	err := row.Scan(&t.ID, &t.Name, &t.Code, &t.Category, &t.Description,
		&t.BasePrice, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}

func (r *testRepoPG) Create(ctx context.Context, t *DiagnosticTest) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO diagnostic_tests (id, name, code, category, description, base_price)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.Name, t.Code, t.Category, t.Description, t.BasePrice)
	return err
}

func (r *testRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DiagnosticTest, error) {
	return scanTest(r.conn(ctx).QueryRow(ctx, `SELECT `+testCols+` FROM diagnostic_tests WHERE id = $1`, id))
}

func (r *testRepoPG) Update(ctx context.Context, t *DiagnosticTest) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE diagnostic_tests SET name=$2, code=$3, category=$4, description=$5,
			base_price=$6, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.Code, t.Category, t.Description, t.BasePrice)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *testRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM diagnostic_tests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *testRepoPG) List(ctx context.Context, params map[string]string, limit, offset int) ([]*DiagnosticTest, int, error) {
	query := `SELECT ` + testCols + ` FROM diagnostic_tests WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM diagnostic_tests WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["q"]; ok {
		query += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["category"]; ok {
		query += fmt.Sprintf(` AND category = $%d`, idx)
		countQuery += fmt.Sprintf(` AND category = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DiagnosticTest
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, nil
}

// =========== Offering Repository ===========

type offeringRepoPG struct{ pool *pgxpool.Pool }

func NewOfferingRepoPG(pool *pgxpool.Pool) OfferingRepository { return &offeringRepoPG{pool: pool} }

func (r *offeringRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *offeringRepoPG) Create(ctx context.Context, o *Offering) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO center_services (id, center_id, test_id, price, available)
		VALUES ($1,$2,$3,$4,$5)`,
		o.ID, o.CenterID, o.TestID, o.Price, o.Available)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicateOffering
		case "23503":
			return ErrInvalidReference
		}
	}
	return err
}

func (r *offeringRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Offering, error) {
	var o Offering
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT cs.id, cs.center_id, cs.test_id, cs.price, cs.available,
			cs.created_at, cs.updated_at, dt.name
		FROM center_services cs
		JOIN diagnostic_tests dt ON dt.id = cs.test_id
		WHERE cs.id = $1`, id).
		Scan(&o.ID, &o.CenterID, &o.TestID, &o.Price, &o.Available,
			&o.CreatedAt, &o.UpdatedAt, &o.TestName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &o, err
}

func (r *offeringRepoPG) Update(ctx context.Context, o *Offering) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE center_services SET price=$2, available=$3, updated_at=NOW() WHERE id = $1`,
		o.ID, o.Price, o.Available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *offeringRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM center_services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *offeringRepoPG) ListByCenter(ctx context.Context, centerID uuid.UUID, limit, offset int) ([]*Offering, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM center_services WHERE center_id = $1`, centerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT cs.id, cs.center_id, cs.test_id, cs.price, cs.available,
			cs.created_at, cs.updated_at, dt.name
		FROM center_services cs
		JOIN diagnostic_tests dt ON dt.id = cs.test_id
		WHERE cs.center_id = $1
		ORDER BY dt.name ASC LIMIT $2 OFFSET $3`, centerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Offering
	for rows.Next() {
		var o Offering
		if err := rows.Scan(&o.ID, &o.CenterID, &o.TestID, &o.Price, &o.Available,
			&o.CreatedAt, &o.UpdatedAt, &o.TestName); err != nil {
			return nil, 0, err
		}
		items = append(items, &o)
	}
	return items, total, nil
}
