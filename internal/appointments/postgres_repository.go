package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/database"
)

const appointmentColumns = `id, COALESCE(title, ''), start_time, end_time, provider_id, client_id, service_id, COALESCE(service_type, ''), COALESCE(notes, ''), status, revenue::float8, COALESCE(color, ''), created_at, updated_at`

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	pool database.PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool database.PgxPool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	out := *a
	out.ID = uuid.New()
	query := `
		INSERT INTO appointments (id, title, start_time, end_time, provider_id, client_id, service_id, service_type, notes, status, revenue, color)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, $11, NULLIF($12, ''))
		RETURNING created_at, updated_at
	`
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		out.ID, out.Title, out.Start, out.End, out.ProviderID, out.ClientID, out.ServiceID,
		out.ServiceType, out.Notes, string(out.Status), out.Revenue, out.Color,
	).Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, translateWriteError("insert", err)
	}
	return &out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(database.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE ($1::uuid IS NULL OR provider_id = $1) AND ($2::uuid IS NULL OR client_id = $2) AND ($3::timestamptz IS NULL OR start_time >= $3) AND ($4::timestamptz IS NULL OR start_time <= $4) AND ($5 = '' OR status = $5) ORDER BY start_time`
	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, filter.ProviderID, filter.ClientID, filter.From, filter.To, string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a *Appointment) (*Appointment, error) {
	out := *a
	query := `
		UPDATE appointments
		SET title = NULLIF($2, ''), start_time = $3, end_time = $4, provider_id = $5, client_id = $6, service_id = $7,
			service_type = NULLIF($8, ''), notes = NULLIF($9, ''), status = $10, revenue = $11, color = NULLIF($12, ''), updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		out.ID, out.Title, out.Start, out.End, out.ProviderID, out.ClientID, out.ServiceID,
		out.ServiceType, out.Notes, string(out.Status), out.Revenue, out.Color,
	).Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, translateWriteError("update", err)
	}
	return &out, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return translateWriteError("status update", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PostgresRepository) ListBusy(ctx context.Context, providerID uuid.UUID, window availability.Interval) ([]availability.Busy, error) {
	query := `SELECT id, COALESCE(title, ''), start_time, end_time FROM appointments WHERE provider_id = $1 AND status <> 'cancelled' AND start_time < $3 AND end_time > $2 ORDER BY start_time`
	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, providerID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("appointments: list busy failed: %w", err)
	}
	defer rows.Close()

	var out []availability.Busy
	for rows.Next() {
		var b availability.Busy
		if err := rows.Scan(&b.ID, &b.Title, &b.Interval.Start, &b.Interval.End); err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list busy failed: %w", err)
	}
	return out, nil
}

// InProviderLock runs fn in a transaction holding a provider-scoped advisory
// lock. Repository calls made with the ctx passed to fn join the transaction.
func (r *PostgresRepository) InProviderLock(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context) error) error {
	return database.InTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, providerID.String()); err != nil {
			return fmt.Errorf("appointments: provider lock failed: %w", err)
		}
		return fn(ctx)
	})
}

func translateWriteError(op string, err error) error {
	switch database.SQLState(err) {
	case database.SQLStateExclusionViolation:
		return &ConflictError{}
	case database.SQLStateForeignKeyViolation:
		return fmt.Errorf("appointments: %s failed: %w", op, ErrMissingParticipant)
	}
	return fmt.Errorf("appointments: %s failed: %w", op, err)
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a      Appointment
		status string
	)
	if err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Start,
		&a.End,
		&a.ProviderID,
		&a.ClientID,
		&a.ServiceID,
		&a.ServiceType,
		&a.Notes,
		&status,
		&a.Revenue,
		&a.Color,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}
