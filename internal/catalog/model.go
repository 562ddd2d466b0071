package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service is a bookable treatment offered by one provider.
type Service struct {
	ID              uuid.UUID `json:"id"`
	ProviderID      uuid.UUID `json:"providerId"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"durationMinutes"`
	Price           float64   `json:"price"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Duration is the default appointment length for the service.
func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// CreateServiceRequest is the body of POST /api/services.
type CreateServiceRequest struct {
	ProviderID      uuid.UUID `json:"provider_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           float64   `json:"price"`
	IsActive        *bool     `json:"is_active"`
}

func (r *CreateServiceRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	switch {
	case r.ProviderID == uuid.Nil:
		return ErrInvalidProvider
	case r.Name == "":
		return ErrInvalidName
	case r.DurationMinutes <= 0:
		return ErrInvalidDuration
	case r.Price < 0:
		return ErrInvalidPrice
	}
	return nil
}

func (r *CreateServiceRequest) service(id uuid.UUID, now time.Time) *Service {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &Service{
		ID:              id,
		ProviderID:      r.ProviderID,
		Name:            r.Name,
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		Price:           r.Price,
		IsActive:        active,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// UpdateServiceRequest is a partial update; nil fields are left unchanged.
type UpdateServiceRequest struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	DurationMinutes *int     `json:"duration_minutes"`
	Price           *float64 `json:"price"`
	IsActive        *bool    `json:"is_active"`
}

func (r *UpdateServiceRequest) Validate() error {
	switch {
	case r.Name != nil && strings.TrimSpace(*r.Name) == "":
		return ErrInvalidName
	case r.DurationMinutes != nil && *r.DurationMinutes <= 0:
		return ErrInvalidDuration
	case r.Price != nil && *r.Price < 0:
		return ErrInvalidPrice
	}
	return nil
}

// Apply copies the present fields onto s.
func (r *UpdateServiceRequest) Apply(s *Service) {
	if r.Name != nil {
		s.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		s.Description = *r.Description
	}
	if r.DurationMinutes != nil {
		s.DurationMinutes = *r.DurationMinutes
	}
	if r.Price != nil {
		s.Price = *r.Price
	}
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
}

// ListFilter narrows List results.
type ListFilter struct {
	ProviderID *uuid.UUID
	ActiveOnly bool
}
