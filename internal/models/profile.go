// internal/models/profile.go
package models

import (
	"strings"
	"time"
)

// Profile is the organization being compared. Numeric and temporal fields are
// pointers so that "absent" and "zero" stay distinct; blank strings and empty
// lists are treated as absent.
type Profile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Country     string `json:"country,omitempty"`
	City        string `json:"city,omitempty"`
	Type        string `json:"type,omitempty"`
	Size        string `json:"size,omitempty"`
	Stage       string `json:"stage,omitempty"`

	Industry     []string `json:"industry,omitempty"`
	Platforms    []string `json:"platforms,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Markets      []string `json:"markets,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Needs        []string `json:"needs,omitempty"`

	Employees         *int       `json:"employees,omitempty"`
	FoundedYear       *int       `json:"foundedYear,omitempty"`
	Revenue           *float64   `json:"revenue,omitempty"`
	LastFundingAmount *float64   `json:"lastFundingAmount,omitempty"`
	LastFundingDate   *time.Time `json:"lastFundingDate,omitempty"`

	Pitch      string `json:"pitch,omitempty"`
	LookingFor string `json:"lookingFor,omitempty"`

	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Location joins city and country into the string used for proximity scoring.
func (p *Profile) Location() string {
	parts := make([]string, 0, 2)
	if c := strings.TrimSpace(p.City); c != "" {
		parts = append(parts, c)
	}
	if c := strings.TrimSpace(p.Country); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, " ")
}

// HasText reports whether s carries any non-blank content.
func HasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

// HasItems reports whether list holds at least one non-blank element.
func HasItems(list []string) bool {
	for _, item := range list {
		if HasText(item) {
			return true
		}
	}
	return false
}

// IntPtr and FloatPtr are helpers for building profiles in code and tests.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }

func TimePtr(v time.Time) *time.Time { return &v }
