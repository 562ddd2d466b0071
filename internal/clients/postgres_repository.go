package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/clinic-crm/internal/database"
)

const clientColumns = `id, name, COALESCE(email, ''), COALESCE(phone, ''), date_of_birth, COALESCE(address, ''), COALESCE(notes, ''), is_active, created_at, updated_at`

// PostgresRepository stores clients in the relational database.
type PostgresRepository struct {
	pool database.PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool database.PgxPool) *PostgresRepository {
	if pool == nil {
		panic("clients: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, req *CreateClientRequest) (*Client, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c := req.client(uuid.New(), time.Time{})
	query := `
		INSERT INTO clients (id, name, email, phone, date_of_birth, address, notes)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''))
		RETURNING created_at, updated_at
	`
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		c.ID, c.Name, c.Email, c.Phone, c.DateOfBirth, c.Address, c.Notes,
	).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("clients: insert failed: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	c, err := scanClient(database.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("clients: select failed: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE ($1 = false OR is_active) AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR phone ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%') ORDER BY name LIMIT $3`
	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, filter.ActiveOnly, filter.Search, filter.limit())
	if err != nil {
		return nil, fmt.Errorf("clients: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("clients: scan failed: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clients: list failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, req *UpdateClientRequest) (*Client, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(c)
	query := `
		UPDATE clients
		SET name = $2, email = NULLIF($3, ''), phone = NULLIF($4, ''), date_of_birth = $5,
			address = NULLIF($6, ''), notes = NULLIF($7, ''), is_active = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		c.ID, c.Name, c.Email, c.Phone, c.DateOfBirth, c.Address, c.Notes, c.IsActive,
	).Scan(&c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("clients: update failed: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `UPDATE clients SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clients: deactivate failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (r *PostgresRepository) FindByName(ctx context.Context, name string) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE lower(name) = lower($1) ORDER BY is_active DESC LIMIT 1`
	c, err := scanClient(database.Conn(ctx, r.pool).QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("clients: select by name failed: %w", err)
	}
	return c, nil
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.DateOfBirth,
		&c.Address,
		&c.Notes,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
