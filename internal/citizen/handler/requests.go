package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"civreg/internal/citizen/models"
	dErrors "civreg/pkg/domain-errors"
)

// idParam parses the {id} path parameter.
func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "id must be an integer")
	}
	return id, nil
}

// parseSearchRequest binds search/export query parameters. Empty parameters
// are treated as absent, matching the optional-filter semantics: an absent
// field imposes no condition.
func parseSearchRequest(r *http.Request) (models.SearchRequest, error) {
	q := r.URL.Query()
	req := models.SearchRequest{
		FullName: q.Get("fullName"),
		Snils:    q.Get("snils"),
		Inn:      q.Get("inn"),
	}

	var err error
	if req.BirthDate, err = dateParam(q.Get("birthDate"), "birthDate"); err != nil {
		return models.SearchRequest{}, err
	}
	if req.DeathDate, err = dateParam(q.Get("deathDate"), "deathDate"); err != nil {
		return models.SearchRequest{}, err
	}
	if req.PageNumber, err = intParam(q.Get("pageNumber"), "pageNumber"); err != nil {
		return models.SearchRequest{}, err
	}
	if req.PageSize, err = intParam(q.Get("pageSize"), "pageSize"); err != nil {
		return models.SearchRequest{}, err
	}

	req.Normalize()
	return req, nil
}

func dateParam(raw, name string) (*models.Date, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, name+" must be a date in the form "+models.DateLayout)
	}
	return &d, nil
}

func intParam(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, name+" must be an integer")
	}
	return &n, nil
}
