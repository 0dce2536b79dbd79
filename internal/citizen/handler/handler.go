// Package handler wires the citizen endpoints to the record service.
package handler

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"civreg/internal/citizen/models"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/httputil"
	"civreg/pkg/requestcontext"
)

// maxImportMemory bounds how much of a multipart upload is held in memory
// before spilling to disk.
const maxImportMemory = 32 << 20

// Service defines the record operations the handler depends on.
type Service interface {
	Get(ctx context.Context, id int64) (models.Citizen, error)
	Create(ctx context.Context, c models.Citizen) (int64, error)
	Update(ctx context.Context, id int64, c models.Citizen) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, req models.SearchRequest) ([]models.Citizen, error)
	Export(ctx context.Context, req models.SearchRequest) ([]byte, error)
	Import(ctx context.Context, r io.Reader) (int, error)
}

// Handler serves /api/citizen endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a citizen handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the citizen endpoints on the router. The static routes
// (search, export, import) must not be shadowed by {id}, which chi
// guarantees by matching static segments first.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/citizen", func(r chi.Router) {
		r.Get("/search", h.HandleSearch)
		r.Get("/export", h.HandleExport)
		r.Post("/import", h.HandleImport)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// HandleGet handles GET /api/citizen/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	citizen, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, citizen)
}

// HandleCreate handles POST /api/citizen.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	citizen, ok := httputil.DecodeAndPrepare[models.Citizen](w, r, h.logger)
	if !ok {
		return
	}

	id, err := h.service.Create(ctx, *citizen)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "citizen created",
		"request_id", requestcontext.RequestID(ctx),
		"citizen_id", id,
	)
	httputil.WriteJSON(w, http.StatusCreated, CreateResponse{ID: id})
}

// HandleUpdate handles PUT /api/citizen/{id}. The path id is authoritative;
// a body id is ignored.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	citizen, ok := httputil.DecodeAndPrepare[models.Citizen](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.Update(ctx, id, *citizen); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nil)
}

// HandleDelete handles DELETE /api/citizen/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nil)
}

// HandleSearch handles GET /api/citizen/search.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := parseSearchRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	citizens, err := h.service.Search(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, citizens)
}

// HandleExport handles GET /api/citizen/export.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := parseSearchRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	data, err := h.service.Export(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="citizens.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleImport handles POST /api/citizen/import (multipart file upload).
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	file, err := importFile(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer file.Close()

	count, err := h.service.Import(ctx, file)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "citizens imported",
		"request_id", requestID,
		"count", count,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, ImportResponse{Imported: count})
}

// importFile extracts the uploaded CSV file from the multipart form. The
// field name is not fixed: the first file part wins, so both "file" and
// older clients posting other field names work.
func importFile(r *http.Request) (multipart.File, error) {
	if err := r.ParseMultipartForm(maxImportMemory); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "multipart form with a CSV file is required")
	}
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			file, err := header.Open()
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not read uploaded file")
			}
			return file, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeBadRequest, "no file in multipart form")
}
