package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/clinic-crm/internal/database"
)

const serviceColumns = `id, provider_id, name, COALESCE(description, ''), duration_minutes, price::float8, is_active, created_at, updated_at`

// PostgresRepository stores services in the relational database.
type PostgresRepository struct {
	pool database.PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool database.PgxPool) *PostgresRepository {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, req *CreateServiceRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s := req.service(uuid.New(), time.Time{})
	query := `
		INSERT INTO services (id, provider_id, name, description, duration_minutes, price, is_active)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING created_at, updated_at
	`
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		s.ID, s.ProviderID, s.Name, s.Description, s.DurationMinutes, s.Price, s.IsActive,
	).Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		if database.SQLState(err) == database.SQLStateForeignKeyViolation {
			return nil, ErrInvalidProvider
		}
		return nil, fmt.Errorf("catalog: insert failed: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	s, err := scanService(database.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog: select failed: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE ($1::uuid IS NULL OR provider_id = $1) AND ($2 = false OR is_active) ORDER BY name`
	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, filter.ProviderID, filter.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("catalog: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan failed: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, req *UpdateServiceRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(s)
	query := `
		UPDATE services
		SET name = $2, description = NULLIF($3, ''), duration_minutes = $4, price = $5, is_active = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		s.ID, s.Name, s.Description, s.DurationMinutes, s.Price, s.IsActive,
	).Scan(&s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog: update failed: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `UPDATE services SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: deactivate failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	if err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.Name,
		&s.Description,
		&s.DurationMinutes,
		&s.Price,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
