package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const recordSelect = `SELECT a.id, COALESCE(a.title, ''), a.start_time, a.end_time, a.status, COALESCE(a.revenue, 0)::float8, a.provider_id, TRIM(COALESCE(p.title, '') || ' ' || p.name), c.name, a.service_id, COALESCE(s.name, a.service_type, '') FROM appointments a JOIN providers p ON p.id = a.provider_id JOIN clients c ON c.id = a.client_id LEFT JOIN services s ON s.id = a.service_id`

// SQLStore runs analytics queries over database/sql.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps db.
func NewSQLStore(db *sql.DB) *SQLStore {
	if db == nil {
		panic("analytics: sql db required")
	}
	return &SQLStore{db: db}
}

func (s *SQLStore) Appointments(ctx context.Context, q Query) ([]Record, error) {
	statuses := q.Statuses
	if statuses == nil {
		statuses = []string{}
	}
	rows, err := s.db.QueryContext(ctx, recordSelect+` WHERE a.start_time >= $1 AND a.start_time <= $2 AND ($3::uuid IS NULL OR a.provider_id = $3) AND (cardinality($4::text[]) = 0 OR a.status = ANY($4::text[])) ORDER BY a.start_time`,
		q.From, q.To, nullUUID(q.ProviderID), pq.Array(statuses))
	if err != nil {
		return nil, fmt.Errorf("analytics: query appointments: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("analytics: scan appointment: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, `SELECT (SELECT count(*) FROM clients WHERE is_active), (SELECT count(*) FROM providers WHERE is_active)`).
		Scan(&t.Clients, &t.Providers)
	if err != nil {
		return Totals{}, fmt.Errorf("analytics: totals: %w", err)
	}
	return t, nil
}

func (s *SQLStore) Current(ctx context.Context, t time.Time, providerID *uuid.UUID) (*Record, error) {
	return s.one(ctx, recordSelect+` WHERE a.start_time <= $1 AND a.end_time >= $1 AND a.status <> 'cancelled' AND ($2::uuid IS NULL OR a.provider_id = $2) ORDER BY a.start_time LIMIT 1`, t, providerID)
}

func (s *SQLStore) Next(ctx context.Context, t time.Time, providerID *uuid.UUID) (*Record, error) {
	return s.one(ctx, recordSelect+` WHERE a.start_time > $1 AND a.status <> 'cancelled' AND ($2::uuid IS NULL OR a.provider_id = $2) ORDER BY a.start_time LIMIT 1`, t, providerID)
}

func (s *SQLStore) one(ctx context.Context, query string, t time.Time, providerID *uuid.UUID) (*Record, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx, query, t, nullUUID(providerID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("analytics: query appointment: %w", err)
	}
	return r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		r       Record
		service uuid.NullUUID
	)
	if err := row.Scan(&r.ID, &r.Title, &r.Start, &r.End, &r.Status, &r.Revenue, &r.ProviderID, &r.ProviderName, &r.ClientName, &service, &r.ServiceName); err != nil {
		return nil, err
	}
	if service.Valid {
		id := service.UUID
		r.ServiceID = &id
	}
	return &r, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
