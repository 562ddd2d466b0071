package providers

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/availability"
)

// Directory exposes provider working hours to the availability checker.
type Directory struct {
	repo Repository
}

// NewDirectory wraps repo as an availability.ProviderDirectory.
func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

var _ availability.ProviderDirectory = (*Directory)(nil)

func (d *Directory) ProviderWorkingHours(ctx context.Context, providerID uuid.UUID) (string, error) {
	p, err := d.repo.GetByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return "", availability.ErrProviderNotFound
		}
		return "", err
	}
	return p.WorkingHours, nil
}
