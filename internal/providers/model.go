package providers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/availability"
)

// DefaultColor is the calendar color for providers created without one.
const DefaultColor = "#1a73e8"

// Provider is a staff member whose calendar is scheduled.
type Provider struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Title        string    `json:"title"`
	Specialty    string    `json:"specialty"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Color        string    `json:"color"`
	WorkingHours string    `json:"workingHours"`
	Notes        string    `json:"notes"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DisplayName prefixes the name with the title when one is set.
func (p *Provider) DisplayName() string {
	if p.Title != "" {
		return p.Title + " " + p.Name
	}
	return p.Name
}

// MarshalJSON adds the computed displayName field.
func (p Provider) MarshalJSON() ([]byte, error) {
	type alias Provider
	return json.Marshal(struct {
		alias
		DisplayName string `json:"displayName"`
	}{alias: alias(p), DisplayName: p.DisplayName()})
}

// CreateProviderRequest is the body of POST /api/providers.
type CreateProviderRequest struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Specialty    string `json:"specialty"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Color        string `json:"color"`
	WorkingHours string `json:"working_hours"`
	Notes        string `json:"notes"`
}

// Validate trims input, applies defaults and checks required fields.
func (r *CreateProviderRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Color) == "" {
		r.Color = DefaultColor
	}
	hours, err := availability.ParseWorkingHours(r.WorkingHours)
	if err != nil {
		return fmt.Errorf("working_hours: %w", err)
	}
	r.WorkingHours = hours.String()
	return nil
}

func (r *CreateProviderRequest) provider(id uuid.UUID, now time.Time) *Provider {
	return &Provider{
		ID:           id,
		Name:         r.Name,
		Title:        strings.TrimSpace(r.Title),
		Specialty:    r.Specialty,
		Email:        r.Email,
		Phone:        r.Phone,
		Color:        r.Color,
		WorkingHours: r.WorkingHours,
		Notes:        r.Notes,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// UpdateProviderRequest is a partial update; nil fields are left unchanged.
type UpdateProviderRequest struct {
	Name         *string `json:"name"`
	Title        *string `json:"title"`
	Specialty    *string `json:"specialty"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Color        *string `json:"color"`
	WorkingHours *string `json:"working_hours"`
	Notes        *string `json:"notes"`
	IsActive     *bool   `json:"is_active"`
}

// Validate checks the fields that are present.
func (r *UpdateProviderRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return ErrInvalidName
	}
	if r.WorkingHours != nil {
		hours, err := availability.ParseWorkingHours(*r.WorkingHours)
		if err != nil {
			return fmt.Errorf("working_hours: %w", err)
		}
		normalized := hours.String()
		r.WorkingHours = &normalized
	}
	return nil
}

// Apply copies the present fields onto p.
func (r *UpdateProviderRequest) Apply(p *Provider) {
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.Title != nil {
		p.Title = strings.TrimSpace(*r.Title)
	}
	if r.Specialty != nil {
		p.Specialty = *r.Specialty
	}
	if r.Email != nil {
		p.Email = *r.Email
	}
	if r.Phone != nil {
		p.Phone = *r.Phone
	}
	if r.Color != nil && *r.Color != "" {
		p.Color = *r.Color
	}
	if r.WorkingHours != nil {
		p.WorkingHours = *r.WorkingHours
	}
	if r.Notes != nil {
		p.Notes = *r.Notes
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
}

// ListFilter narrows List results.
type ListFilter struct {
	ActiveOnly bool
}
