package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/clinic-crm/internal/database"
)

const providerColumns = `id, name, COALESCE(title, ''), COALESCE(specialty, ''), COALESCE(email, ''), COALESCE(phone, ''), color, working_hours, COALESCE(notes, ''), is_active, created_at, updated_at`

// PostgresRepository stores providers in the relational database.
type PostgresRepository struct {
	pool database.PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool database.PgxPool) *PostgresRepository {
	if pool == nil {
		panic("providers: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, req *CreateProviderRequest) (*Provider, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := req.provider(uuid.New(), time.Time{})
	query := `
		INSERT INTO providers (id, name, title, specialty, email, phone, color, working_hours, notes)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8, NULLIF($9, ''))
		RETURNING created_at, updated_at
	`
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		p.ID, p.Name, p.Title, p.Specialty, p.Email, p.Phone, p.Color, p.WorkingHours, p.Notes,
	).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("providers: insert failed: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := database.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id)
	p, err := scanProvider(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("providers: select failed: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE ($1 = false OR is_active) ORDER BY name`
	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, filter.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("providers: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("providers: scan failed: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("providers: list failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, req *UpdateProviderRequest) (*Provider, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(p)
	query := `
		UPDATE providers
		SET name = $2, title = NULLIF($3, ''), specialty = NULLIF($4, ''), email = NULLIF($5, ''),
			phone = NULLIF($6, ''), color = $7, working_hours = $8, notes = NULLIF($9, ''),
			is_active = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		p.ID, p.Name, p.Title, p.Specialty, p.Email, p.Phone, p.Color, p.WorkingHours, p.Notes, p.IsActive,
	).Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("providers: update failed: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `UPDATE providers SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("providers: deactivate failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProviderNotFound
	}
	return nil
}

func (r *PostgresRepository) FindActiveByName(ctx context.Context, name string) (*Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE is_active AND lower(name) = lower($1) LIMIT 1`
	p, err := scanProvider(database.Conn(ctx, r.pool).QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("providers: select by name failed: %w", err)
	}
	return p, nil
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Title,
		&p.Specialty,
		&p.Email,
		&p.Phone,
		&p.Color,
		&p.WorkingHours,
		&p.Notes,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
