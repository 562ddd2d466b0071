package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/appointments"
	"github.com/wolfman30/clinic-crm/internal/catalog"
	"github.com/wolfman30/clinic-crm/internal/clients"
	"github.com/wolfman30/clinic-crm/internal/providers"
)

// RepositoryStore computes analytics inputs from the domain repositories.
// It backs the in-memory deployment; client totals are capped at
// clients.MaxListLimit.
type RepositoryStore struct {
	appointments appointments.Repository
	providers    providers.Repository
	clients      clients.Repository
	services     catalog.Repository
}

// NewRepositoryStore builds a Store over the given repositories.
func NewRepositoryStore(appts appointments.Repository, providerRepo providers.Repository, clientRepo clients.Repository, services catalog.Repository) *RepositoryStore {
	return &RepositoryStore{appointments: appts, providers: providerRepo, clients: clientRepo, services: services}
}

func (s *RepositoryStore) Appointments(ctx context.Context, q Query) ([]Record, error) {
	from, to := q.From, q.To
	list, err := s.appointments.List(ctx, appointments.ListFilter{ProviderID: q.ProviderID, From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(q.Statuses))
	for _, st := range q.Statuses {
		allowed[st] = true
	}
	var out []Record
	for _, a := range list {
		if len(allowed) > 0 && !allowed[string(a.Status)] {
			continue
		}
		r, err := s.record(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *RepositoryStore) Totals(ctx context.Context) (Totals, error) {
	ps, err := s.providers.List(ctx, providers.ListFilter{ActiveOnly: true})
	if err != nil {
		return Totals{}, err
	}
	cs, err := s.clients.List(ctx, clients.ListFilter{ActiveOnly: true, Limit: clients.MaxListLimit})
	if err != nil {
		return Totals{}, err
	}
	return Totals{Clients: len(cs), Providers: len(ps)}, nil
}

func (s *RepositoryStore) Current(ctx context.Context, t time.Time, providerID *uuid.UUID) (*Record, error) {
	list, err := s.appointments.List(ctx, appointments.ListFilter{ProviderID: providerID, To: &t})
	if err != nil {
		return nil, err
	}
	for _, a := range list {
		if a.Status.Occupies() && !a.End.Before(t) {
			return s.record(ctx, a)
		}
	}
	return nil, nil
}

func (s *RepositoryStore) Next(ctx context.Context, t time.Time, providerID *uuid.UUID) (*Record, error) {
	list, err := s.appointments.List(ctx, appointments.ListFilter{ProviderID: providerID, From: &t})
	if err != nil {
		return nil, err
	}
	for _, a := range list {
		if a.Status.Occupies() && a.Start.After(t) {
			return s.record(ctx, a)
		}
	}
	return nil, nil
}

func (s *RepositoryStore) record(ctx context.Context, a *appointments.Appointment) (*Record, error) {
	r := &Record{
		ID:          a.ID,
		Title:       a.Title,
		Start:       a.Start,
		End:         a.End,
		Status:      string(a.Status),
		ProviderID:  a.ProviderID,
		ServiceID:   a.ServiceID,
		ServiceName: a.ServiceType,
	}
	if a.Revenue != nil {
		r.Revenue = *a.Revenue
	}
	p, err := s.providers.GetByID(ctx, a.ProviderID)
	if err != nil && !errors.Is(err, providers.ErrProviderNotFound) {
		return nil, err
	}
	if p != nil {
		r.ProviderName = p.DisplayName()
	}
	c, err := s.clients.GetByID(ctx, a.ClientID)
	if err != nil && !errors.Is(err, clients.ErrClientNotFound) {
		return nil, err
	}
	if c != nil {
		r.ClientName = c.Name
	}
	if a.ServiceID != nil && s.services != nil {
		svc, err := s.services.GetByID(ctx, *a.ServiceID)
		if err != nil && !errors.Is(err, catalog.ErrServiceNotFound) {
			return nil, err
		}
		if svc != nil {
			r.ServiceName = svc.Name
		}
	}
	return r, nil
}
