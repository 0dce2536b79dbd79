// Package service orchestrates citizen CRUD and bulk operations against the
// store, translating storage outcomes into domain errors. Storage failures
// are logged with full detail here and cross the boundary only as opaque
// internal errors.
package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"civreg/internal/citizen/csv"
	citizenmetrics "civreg/internal/citizen/metrics"
	"civreg/internal/citizen/models"
	"civreg/internal/citizen/store"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/sentinel"
	"civreg/pkg/requestcontext"
)

// Operation names for logs and metrics.
const (
	opGet    = "get"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
	opSearch = "search"
	opExport = "export"
	opImport = "import"
)

// Service implements the citizen record operations.
type Service struct {
	store   store.Store
	logger  *slog.Logger
	metrics *citizenmetrics.Metrics
}

// New constructs the citizen service. metrics may be nil.
func New(st store.Store, logger *slog.Logger, metrics *citizenmetrics.Metrics) *Service {
	return &Service{
		store:   st,
		logger:  logger,
		metrics: metrics,
	}
}

// Get returns the citizen with the given id.
func (s *Service) Get(ctx context.Context, id int64) (models.Citizen, error) {
	start := time.Now()
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return models.Citizen{}, s.fail(ctx, opGet, start, err)
	}
	s.done(opGet, start)
	return c, nil
}

// Create validates and inserts a new citizen, returning the storage-assigned
// id. Any id carried by the incoming record is discarded.
func (s *Service) Create(ctx context.Context, c models.Citizen) (int64, error) {
	start := time.Now()
	c.ID = models.UnassignedID
	if err := c.Validate(); err != nil {
		return 0, s.fail(ctx, opCreate, start, err)
	}

	id, err := s.store.Create(ctx, c)
	if err != nil {
		return 0, s.fail(ctx, opCreate, start, err)
	}
	if id == models.UnassignedID {
		// Defensive: should not happen with a functioning store.
		return 0, s.fail(ctx, opCreate, start,
			dErrors.New(dErrors.CodeBadRequest, "storage did not assign an id"))
	}
	s.done(opCreate, start)
	return id, nil
}

// Update fully replaces the citizen with the given id. The path id is
// authoritative; any id in the body is ignored.
func (s *Service) Update(ctx context.Context, id int64, c models.Citizen) error {
	start := time.Now()
	c.ID = id
	if err := c.Validate(); err != nil {
		return s.fail(ctx, opUpdate, start, err)
	}
	if err := s.store.Update(ctx, c); err != nil {
		return s.fail(ctx, opUpdate, start, err)
	}
	s.done(opUpdate, start)
	return nil
}

// Delete removes the citizen with the given id, reporting not-found when the
// record does not exist.
func (s *Service) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return s.fail(ctx, opDelete, start, err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return s.fail(ctx, opDelete, start, err)
	}
	s.done(opDelete, start)
	return nil
}

// Search returns citizens matching the request. Paging always applies, with
// defaults when the caller supplied none.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) ([]models.Citizen, error) {
	start := time.Now()
	citizens, err := s.store.Find(ctx, store.BuildCriteria(req, true))
	if err != nil {
		return nil, s.fail(ctx, opSearch, start, err)
	}
	s.done(opSearch, start)
	return citizens, nil
}

// Export returns the matching set encoded as CSV. Paging applies only when
// the caller supplied both paging parameters; otherwise the full matching
// set is exported.
func (s *Service) Export(ctx context.Context, req models.SearchRequest) ([]byte, error) {
	start := time.Now()
	citizens, err := s.store.Find(ctx, store.BuildCriteria(req, false))
	if err != nil {
		return nil, s.fail(ctx, opExport, start, err)
	}

	var buf bytes.Buffer
	if err := csv.Encode(&buf, citizens); err != nil {
		return nil, s.fail(ctx, opExport, start, err)
	}
	s.metrics.AddTransferred("export", len(citizens))
	s.done(opExport, start)
	return buf.Bytes(), nil
}

// Import decodes a CSV stream, validates every record, strips CSV-supplied
// ids, and inserts the batch atomically. A malformed stream is a client
// error; a uniqueness violation anywhere fails the whole import.
func (s *Service) Import(ctx context.Context, r io.Reader) (int, error) {
	start := time.Now()
	citizens, err := csv.Decode(r)
	if err != nil {
		return 0, s.fail(ctx, opImport, start,
			dErrors.Wrap(err, dErrors.CodeValidation, "malformed CSV input"))
	}

	for i := range citizens {
		citizens[i].ID = models.UnassignedID
		if err := citizens[i].Validate(); err != nil {
			return 0, s.fail(ctx, opImport, start, err)
		}
	}

	if err := s.store.CreateBatch(ctx, citizens); err != nil {
		return 0, s.fail(ctx, opImport, start, err)
	}
	s.metrics.AddTransferred("import", len(citizens))
	s.done(opImport, start)
	return len(citizens), nil
}

// fail translates an operation error into a domain error and records it.
// Sentinel outcomes map to their codes; anything unclassified is logged with
// full detail and surfaced as an opaque internal error.
func (s *Service) fail(ctx context.Context, op string, start time.Time, err error) error {
	translated := s.translate(ctx, op, err)
	s.metrics.RecordOperation(op, outcome(translated), time.Since(start))
	return translated
}

func (s *Service) done(op string, start time.Time) {
	s.metrics.RecordOperation(op, "ok", time.Since(start))
}

func (s *Service) translate(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "citizen not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "snils and inn must be unique")
	}

	var de *dErrors.Error
	if errors.As(err, &de) && de.Code != dErrors.CodeInternal {
		return err
	}

	s.logger.ErrorContext(ctx, "storage failure",
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	return dErrors.New(dErrors.CodeInternal, "storage failure")
}

func outcome(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeValidation, dErrors.CodeBadRequest:
		return "invalid"
	default:
		return "error"
	}
}
