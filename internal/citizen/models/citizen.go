// Package models defines the citizen record and the search descriptor used
// to query it.
package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "civreg/pkg/domain-errors"
)

// UnassignedID is the id sentinel meaning "not yet persisted". Storage owns
// identity assignment; any record entering a create path has its ID forced
// to this value first.
const UnassignedID int64 = 0

// Citizen is a durable record of a person.
//
// Invariants:
//   - FullName is non-empty, at most 256 characters, trimmed before persistence
//   - Snils, when present, is exactly 14 characters and globally unique
//   - Inn, when present, is exactly 12 characters and globally unique
//   - DeathDate, when present, should not precede BirthDate (declared, not
//     enforced by the system)
//
// SNILS content format (XXX-XXX-XXX YY) and INN content format (12 digits)
// are deliberately not validated; only length is enforced at the boundary.
type Citizen struct {
	ID        int64  `json:"id"`
	FullName  string `json:"fullName" validate:"required,max=256"`
	Snils     string `json:"snils,omitempty" validate:"omitempty,len=14"`
	Inn       string `json:"inn,omitempty" validate:"omitempty,len=12"`
	BirthDate Date   `json:"birthDate"`
	DeathDate *Date  `json:"deathDate,omitempty"`
}

var validate = validator.New()

// Normalize applies write-path normalization: surrounding whitespace is
// stripped from the full name.
func (c *Citizen) Normalize() {
	c.FullName = strings.TrimSpace(c.FullName)
}

// Validate normalizes the record and checks its declared constraints,
// returning a validation-coded domain error on failure.
func (c *Citizen) Validate() error {
	c.Normalize()
	if c.BirthDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "birthDate is required")
	}
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("%s failed %s constraint", lowerFirst(fe.Field()), constraintText(fe)))
		}
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid citizen record")
	}
	return nil
}

func constraintText(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// SearchRequest is an ephemeral query descriptor. Nil/empty fields impose no
// filter; string fields are prefix matches, dates are exact matches.
// PageNumber is zero-based.
type SearchRequest struct {
	FullName   string
	Snils      string
	Inn        string
	BirthDate  *Date
	DeathDate  *Date
	PageNumber *int
	PageSize   *int
}

// Normalize trims the full-name prefix before use.
func (r *SearchRequest) Normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
}
