package clients

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxListLimit caps List results.
const MaxListLimit = 100

// Client is a patient or customer of the clinic.
type Client struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	Address     string     `json:"address"`
	Notes       string     `json:"notes"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateClientRequest is the body of POST /api/clients.
type CreateClientRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address"`
	Notes       string `json:"notes"`

	dob *time.Time
}

// Validate trims input and parses the optional birth date.
func (r *CreateClientRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrInvalidName
	}
	dob, err := parseDate(r.DateOfBirth)
	if err != nil {
		return err
	}
	r.dob = dob
	return nil
}

func (r *CreateClientRequest) client(id uuid.UUID, now time.Time) *Client {
	return &Client{
		ID:          id,
		Name:        r.Name,
		Email:       strings.TrimSpace(r.Email),
		Phone:       strings.TrimSpace(r.Phone),
		DateOfBirth: r.dob,
		Address:     r.Address,
		Notes:       r.Notes,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// UpdateClientRequest is a partial update; nil fields are left unchanged.
type UpdateClientRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	DateOfBirth *string `json:"date_of_birth"`
	Address     *string `json:"address"`
	Notes       *string `json:"notes"`
	IsActive    *bool   `json:"is_active"`

	dob *time.Time
}

func (r *UpdateClientRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return ErrInvalidName
	}
	if r.DateOfBirth != nil {
		dob, err := parseDate(*r.DateOfBirth)
		if err != nil {
			return err
		}
		r.dob = dob
	}
	return nil
}

// Apply copies the present fields onto c.
func (r *UpdateClientRequest) Apply(c *Client) {
	if r.Name != nil {
		c.Name = strings.TrimSpace(*r.Name)
	}
	if r.Email != nil {
		c.Email = strings.TrimSpace(*r.Email)
	}
	if r.Phone != nil {
		c.Phone = strings.TrimSpace(*r.Phone)
	}
	if r.DateOfBirth != nil {
		c.DateOfBirth = r.dob
	}
	if r.Address != nil {
		c.Address = *r.Address
	}
	if r.Notes != nil {
		c.Notes = *r.Notes
	}
	if r.IsActive != nil {
		c.IsActive = *r.IsActive
	}
}

// ListFilter narrows List results. Search matches name, phone or email.
type ListFilter struct {
	Search     string
	ActiveOnly bool
	Limit      int
}

func (f ListFilter) limit() int {
	if f.Limit <= 0 || f.Limit > MaxListLimit {
		return MaxListLimit
	}
	return f.Limit
}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		y, m, d := t.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &day, nil
	}
	return nil, ErrInvalidDateOfBirth
}
