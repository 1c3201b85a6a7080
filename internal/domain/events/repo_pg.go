package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medislot/medislot/internal/platform/db"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// =========== Event Repository ===========

type eventRepoPG struct{ pool *pgxpool.Pool }

func NewEventRepoPG(pool *pgxpool.Pool) EventRepository { return &eventRepoPG{pool: pool} }

func (r *eventRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const eventCols = `id, title, description, event_type, center_id, venue,
	starts_at, ends_at, slots_total, slots_filled, created_by, created_at, updated_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.EventType, &e.CenterID, &e.Venue,
		&e.StartsAt, &e.EndsAt, &e.SlotsTotal, &e.SlotsFilled, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &e, err
}

func (r *eventRepoPG) Create(ctx context.Context, e *Event) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO events (id, title, description, event_type, center_id, venue,
			starts_at, ends_at, slots_total, slots_filled, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0,$10)`,
		e.ID, e.Title, e.Description, e.EventType, e.CenterID, e.Venue,
		e.StartsAt, e.EndsAt, e.SlotsTotal, e.CreatedBy)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrInvalidReference
	}
	return err
}

func (r *eventRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	return scanEvent(r.conn(ctx).QueryRow(ctx, `SELECT `+eventCols+` FROM events WHERE id = $1`, id))
}

func (r *eventRepoPG) LockForUpdate(ctx context.Context, id uuid.UUID) (*Event, error) {
	return scanEvent(r.conn(ctx).QueryRow(ctx, `SELECT `+eventCols+` FROM events WHERE id = $1 FOR UPDATE`, id))
}

func (r *eventRepoPG) Update(ctx context.Context, e *Event) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE events SET title=$2, description=$3, event_type=$4, center_id=$5,
			venue=$6, starts_at=$7, ends_at=$8, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.Title, e.Description, e.EventType, e.CenterID,
		e.Venue, e.StartsAt, e.EndsAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *eventRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *eventRepoPG) List(ctx context.Context, params map[string]string, limit, offset int) ([]*Event, int, error) {
	query := `SELECT ` + eventCols + ` FROM events WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM events WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["center"]; ok {
		query += fmt.Sprintf(` AND center_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND center_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["type"]; ok {
		query += fmt.Sprintf(` AND event_type = $%d`, idx)
		countQuery += fmt.Sprintf(` AND event_type = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["from"]; ok {
		query += fmt.Sprintf(` AND starts_at >= $%d`, idx)
		countQuery += fmt.Sprintf(` AND starts_at >= $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY starts_at ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, nil
}

// Adjust is a single conditional UPDATE so the bounds check and the write are
// one atomic statement. When no row comes back, a second lookup distinguishes
// a missing event from a bounds violation.
func (r *eventRepoPG) Adjust(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var filled int
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE events
		SET slots_filled = slots_filled + $2, updated_at = NOW()
		WHERE id = $1
		  AND slots_filled + $2 >= 0
		  AND slots_filled + $2 <= slots_total
		RETURNING slots_filled`, id, delta).Scan(&filled)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, ErrNotFound
		}
		return 0, ErrCapacityViolation
	}
	return filled, err
}

// =========== Registration Repository ===========

type registrationRepoPG struct{ pool *pgxpool.Pool }

func NewRegistrationRepoPG(pool *pgxpool.Pool) RegistrationRepository {
	return &registrationRepoPG{pool: pool}
}

func (r *registrationRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const regCols = `id, event_id, patient_id, status, patient_name, patient_contact,
	note, registered_at, updated_at`

func scanRegistration(row pgx.Row) (*Registration, error) {
	var reg Registration
	err := row.Scan(&reg.ID, &reg.EventID, &reg.PatientID, &reg.Status,
		&reg.PatientName, &reg.PatientContact, &reg.Note, &reg.RegisteredAt, &reg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &reg, err
}

func (r *registrationRepoPG) Create(ctx context.Context, reg *Registration) error {
	reg.ID = uuid.New()
	reg.RegisteredAt = time.Now().UTC()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO event_registrations (id, event_id, patient_id, status,
			patient_name, patient_contact, note, registered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		reg.ID, reg.EventID, reg.PatientID, reg.Status,
		reg.PatientName, reg.PatientContact, reg.Note, reg.RegisteredAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicateRegistration
		case pgForeignKeyViolation:
			return ErrInvalidReference
		}
	}
	return err
}

func (r *registrationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Registration, error) {
	return scanRegistration(r.conn(ctx).QueryRow(ctx,
		`SELECT `+regCols+` FROM event_registrations WHERE id = $1`, id))
}

func (r *registrationRepoPG) GetByEventAndPatient(ctx context.Context, eventID, patientID uuid.UUID) (*Registration, error) {
	return scanRegistration(r.conn(ctx).QueryRow(ctx,
		`SELECT `+regCols+` FROM event_registrations WHERE event_id = $1 AND patient_id = $2`,
		eventID, patientID))
}

func (r *registrationRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE event_registrations SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *registrationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM event_registrations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *registrationRepoPG) ListByEvent(ctx context.Context, eventID uuid.UUID, status string, limit, offset int) ([]*Registration, int, error) {
	where := ` WHERE event_id = $1`
	args := []interface{}{eventID}
	idx := 2
	if status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM event_registrations`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + regCols + ` FROM event_registrations` + where +
		fmt.Sprintf(` ORDER BY registered_at ASC, id ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, reg)
	}
	return items, total, nil
}

func (r *registrationRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Registration, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+regCols+` FROM event_registrations
		WHERE patient_id = $1 ORDER BY registered_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, reg)
	}
	return items, total, nil
}

// ClaimOldestWaitlisted selects and flips the head of the waitlist in one
// statement. SKIP LOCKED makes concurrent claimants pick distinct rows, so a
// registration can never be promoted twice.
func (r *registrationRepoPG) ClaimOldestWaitlisted(ctx context.Context, eventID uuid.UUID) (*Registration, error) {
	return scanRegistration(r.conn(ctx).QueryRow(ctx, `
		UPDATE event_registrations
		SET status = $2, updated_at = NOW()
		WHERE id = (
			SELECT id FROM event_registrations
			WHERE event_id = $1 AND status = $3
			ORDER BY registered_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+regCols,
		eventID, StatusConfirmed, StatusWaitlist))
}

func (r *registrationRepoPG) WaitlistPosition(ctx context.Context, eventID uuid.UUID, registeredAt time.Time, id uuid.UUID) (int, error) {
	var pos int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) + 1 FROM event_registrations
		WHERE event_id = $1 AND status = $2
		  AND (registered_at < $3 OR (registered_at = $3 AND id < $4))`,
		eventID, StatusWaitlist, registeredAt, id).Scan(&pos)
	return pos, err
}
