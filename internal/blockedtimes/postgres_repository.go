package blockedtimes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/clinic-crm/internal/availability"
	"github.com/wolfman30/clinic-crm/internal/database"
)

const blockedTimeColumns = `id, provider_id, start_time, end_time, block_type, COALESCE(reason, ''), is_recurring, COALESCE(recurrence_pattern, ''), recurrence_end_date, is_active, created_at, updated_at`

// PostgresRepository stores blocked times in the relational database.
type PostgresRepository struct {
	pool database.PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool database.PgxPool) *PostgresRepository {
	if pool == nil {
		panic("blockedtimes: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, b *BlockedTime) (*BlockedTime, error) {
	out := *b
	out.ID = uuid.New()
	query := `
		INSERT INTO blocked_times (id, provider_id, start_time, end_time, block_type, reason, is_recurring, recurrence_pattern, recurrence_end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10)
		RETURNING created_at, updated_at
	`
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		out.ID, out.ProviderID, out.Start, out.End, string(out.BlockType), out.Reason,
		out.IsRecurring, string(out.RecurrencePattern), out.RecurrenceEndDate, out.IsActive,
	).Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		if database.SQLState(err) == database.SQLStateForeignKeyViolation {
			return nil, availability.ErrProviderNotFound
		}
		return nil, fmt.Errorf("blockedtimes: insert failed: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*BlockedTime, error) {
	b, err := scanBlockedTime(database.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+blockedTimeColumns+` FROM blocked_times WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockedTimeNotFound
		}
		return nil, fmt.Errorf("blockedtimes: select failed: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*BlockedTime, error) {
	var from, to *time.Time
	if filter.Window != nil {
		start, end := filter.Window.Start, filter.Window.End
		from, to = &start, &end
	}
	query := `SELECT ` + blockedTimeColumns + ` FROM blocked_times WHERE is_active AND ($1::uuid IS NULL OR provider_id = $1) AND ($3::timestamptz IS NULL OR start_time < $3) AND ($2::timestamptz IS NULL OR (NOT is_recurring AND end_time > $2) OR (is_recurring AND (recurrence_end_date IS NULL OR recurrence_end_date >= $2 - (end_time - start_time) - interval '2 days'))) ORDER BY start_time`
	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, filter.ProviderID, from, to)
	if err != nil {
		return nil, fmt.Errorf("blockedtimes: list failed: %w", err)
	}
	defer rows.Close()

	var out []*BlockedTime
	for rows.Next() {
		b, err := scanBlockedTime(rows)
		if err != nil {
			return nil, fmt.Errorf("blockedtimes: scan failed: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("blockedtimes: list failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, b *BlockedTime) (*BlockedTime, error) {
	out := *b
	query := `
		UPDATE blocked_times
		SET start_time = $2, end_time = $3, block_type = $4, reason = NULLIF($5, ''), is_recurring = $6,
			recurrence_pattern = NULLIF($7, ''), recurrence_end_date = $8, is_active = $9, updated_at = now()
		WHERE id = $1
		RETURNING provider_id, created_at, updated_at
	`
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		out.ID, out.Start, out.End, string(out.BlockType), out.Reason, out.IsRecurring,
		string(out.RecurrencePattern), out.RecurrenceEndDate, out.IsActive,
	).Scan(&out.ProviderID, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockedTimeNotFound
		}
		return nil, fmt.Errorf("blockedtimes: update failed: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `UPDATE blocked_times SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("blockedtimes: deactivate failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockedTimeNotFound
	}
	return nil
}

func scanBlockedTime(row pgx.Row) (*BlockedTime, error) {
	var (
		b         BlockedTime
		blockType string
		pattern   string
	)
	if err := row.Scan(
		&b.ID,
		&b.ProviderID,
		&b.Start,
		&b.End,
		&blockType,
		&b.Reason,
		&b.IsRecurring,
		&pattern,
		&b.RecurrenceEndDate,
		&b.IsActive,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.BlockType = BlockType(blockType)
	b.RecurrencePattern = availability.Pattern(pattern)
	return &b, nil
}
