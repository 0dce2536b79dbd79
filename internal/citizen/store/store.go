// Package store persists citizen records. It provides an in-memory
// implementation for tests and a PostgreSQL implementation for production;
// both answer the same criteria built by BuildCriteria.
package store

import (
	"context"
	"math"

	"civreg/internal/citizen/models"
)

// Store is interface-driven to keep the service testable and to allow
// swapping in-memory and PostgreSQL persistence without rewiring business
// code.
type Store interface {
	// FindByID returns the record with the given id, or sentinel.ErrNotFound.
	FindByID(ctx context.Context, id int64) (models.Citizen, error)

	// Create inserts a record and returns the storage-assigned id.
	// Returns sentinel.ErrConflict on a snils/inn uniqueness violation.
	Create(ctx context.Context, c models.Citizen) (int64, error)

	// Update fully replaces the record with c.ID. Returns
	// sentinel.ErrNotFound when no row was affected.
	Update(ctx context.Context, c models.Citizen) error

	// Delete removes the record. Returns sentinel.ErrNotFound when no row
	// was affected.
	Delete(ctx context.Context, id int64) error

	// Find returns all records matching the criteria, applying its paging
	// window when present. An empty result is not an error.
	Find(ctx context.Context, crit Criteria) ([]models.Citizen, error)

	// CreateBatch inserts all records atomically: a uniqueness violation on
	// any record rolls back the whole batch (sentinel.ErrConflict).
	CreateBatch(ctx context.Context, cs []models.Citizen) error

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)
}

// Page is a paging window: skip Number*Size records, take up to Size.
type Page struct {
	Number int
	Size   int
}

// offset returns the number of records the window skips. The product
// saturates at math.MaxInt so oversized paging values request a window past
// the data instead of overflowing into a negative skip.
func (p *Page) offset() int {
	if p.Size != 0 && p.Number > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return p.Number * p.Size
}

// Criteria is the executable form of a search request: a conjunction of
// optional per-field conditions plus an optional paging window. Zero-valued
// string fields and nil dates impose no condition.
type Criteria struct {
	FullNamePrefix string
	SnilsPrefix    string
	InnPrefix      string
	BirthDate      *models.Date
	DeathDate      *models.Date

	// Page is nil when the full matching set should be returned.
	Page *Page
}

const (
	defaultPageNumber = 0
	defaultPageSize   = 10
)

// BuildCriteria turns a search request into executable criteria.
//
// Paging applies when forcePaging is true or when the caller supplied both
// PageNumber and PageSize explicitly; otherwise the criteria return the full
// matching set. Missing paging values default to page 0, size 10. Negative
// values clamp to zero, so a negative size yields an empty page rather than
// an unbounded one.
func BuildCriteria(req models.SearchRequest, forcePaging bool) Criteria {
	req.Normalize()

	crit := Criteria{
		FullNamePrefix: req.FullName,
		SnilsPrefix:    req.Snils,
		InnPrefix:      req.Inn,
		BirthDate:      req.BirthDate,
		DeathDate:      req.DeathDate,
	}

	if forcePaging || (req.PageNumber != nil && req.PageSize != nil) {
		crit.Page = &Page{
			Number: clampNonNegative(valueOr(req.PageNumber, defaultPageNumber)),
			Size:   clampNonNegative(valueOr(req.PageSize, defaultPageSize)),
		}
	}
	return crit
}

func valueOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
