package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "altum/internal/errors"
	"altum/internal/fieldbook"
	"altum/internal/leveling"
	"altum/internal/middleware"
	"altum/internal/services"
	api "altum/pkg/contracts/api/v1"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"

	// multipartMemory is how much of an upload is kept in memory before
	// spilling to temporary files.
	multipartMemory = 8 << 20
)

// LevelingHandler handles leveling computations, uploads and downloads
type LevelingHandler struct {
	service        LevelingServiceInterface
	validator      *middleware.Validator
	params         *middleware.ParamValidator
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewLevelingHandler creates a new leveling handler
func NewLevelingHandler(
	service LevelingServiceInterface,
	validator *middleware.Validator,
	maxUploadBytes int64,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *LevelingHandler {
	return &LevelingHandler{
		service:        service,
		validator:      validator,
		params:         middleware.NewParamValidator(errorHandler),
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("handler", "leveling")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the leveling routes
func (h *LevelingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator(h.errorHandler, "application/json"))
		r.Post("/compute", h.Compute)
		r.Post("/batch", h.Batch)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"))
		r.Post("/upload", h.Upload)
		r.Post("/export", h.Export)
	})

	r.Get("/template", h.Template)

	return r
}

// Compute handles POST /api/leveling/compute
func (h *LevelingHandler) Compute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var req api.ComputeRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	start, target := h.service.Defaults()
	survey := toSurvey(req, start, target)

	outcome, err := h.service.Compute(r.Context(), survey)
	h.respond(w, r, survey, outcome, err)
}

// Batch handles POST /api/leveling/batch
func (h *LevelingHandler) Batch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var req api.BatchRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	start, target := h.service.Defaults()
	surveys := make([]leveling.Survey, len(req.Surveys))
	for i, s := range req.Surveys {
		surveys[i] = toSurvey(s, start, target)
		if surveys[i].Name == "" {
			surveys[i].Name = "line-" + strconv.Itoa(i+1)
		}
	}

	results, err := h.service.ComputeBatch(r.Context(), surveys)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := api.BatchResponse{Results: make([]api.BatchItem, len(results))}
	for i, res := range results {
		item := api.BatchItem{Name: res.Survey}
		if len(res.Outcome.Rows) > 0 {
			result := newComputeResponse(surveys[i], res.Outcome, res.Err)
			item.Result = &result
		}
		if acceptable(res.Err) {
			resp.Succeeded++
		} else {
			p := h.errorHandler.ErrorToProblem(res.Err, r)
			item.Error = &api.Problem{Type: p.Type, Title: p.Title, Status: p.Status, Detail: p.Detail}
			resp.Failed++
		}
		resp.Results[i] = item
	}

	h.logger.InfoContext(r.Context(), "batch computed",
		slog.Int("surveys", len(results)),
		slog.Int("failed", resp.Failed),
	)
	render.JSON(w, r, resp)
}

// Upload handles POST /api/leveling/upload
func (h *LevelingHandler) Upload(w http.ResponseWriter, r *http.Request) {
	survey, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	outcome, err := h.service.Compute(r.Context(), survey)
	h.respond(w, r, survey, outcome, err)
}

// Export handles POST /api/leveling/export?format=xlsx|csv
func (h *LevelingHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, ok := h.params.ValidateEnum(w, r, "format", []string{services.FormatXLSX, services.FormatCSV}, services.FormatXLSX)
	if !ok {
		return
	}

	survey, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	outcome, err := h.service.Compute(r.Context(), survey)
	if !acceptable(err) {
		h.fail(w, r, outcome, err)
		return
	}

	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf, format, outcome, survey.Name); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	name, contentType := fieldbook.ResultFileName, contentTypeXLSX
	if format == services.FormatCSV {
		name, contentType = fieldbook.CSVFileName, contentTypeCSV
	}
	writeAttachment(w, name, contentType, buf.Bytes())
}

// Template handles GET /api/leveling/template
func (h *LevelingHandler) Template(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.Template(r.Context(), &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	writeAttachment(w, fieldbook.TemplateName, contentTypeXLSX, buf.Bytes())
}

// readUpload parses the multipart field book and the elevation fields. On
// failure the error response has already been written.
func (h *LevelingHandler) readUpload(w http.ResponseWriter, r *http.Request) (leveling.Survey, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = apierrors.InvalidRequestWithError(err)
		}
		h.errorHandler.HandleError(w, r, err)
		return leveling.Survey{}, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("file", err))
		return leveling.Survey{}, false
	}
	defer file.Close()

	if !isWorkbook(header) {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnsupportedMediaType)
		return leveling.Survey{}, false
	}

	defStart, defTarget := h.service.Defaults()
	start, ok := h.params.ValidateFloat(w, r, "start_elevation", defStart)
	if !ok {
		return leveling.Survey{}, false
	}
	target, ok := h.params.ValidateFloat(w, r, "target_elevation", defTarget)
	if !ok {
		return leveling.Survey{}, false
	}

	book, err := h.service.Import(r.Context(), file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return leveling.Survey{}, false
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	h.logger.InfoContext(r.Context(), "field book uploaded",
		slog.String("file", header.Filename),
		slog.Int64("size", header.Size),
		slog.String("sheet", book.Sheet),
		slog.Int("observations", len(book.Observations)),
	)
	return book.Survey(name, start, target), true
}

func (h *LevelingHandler) respond(w http.ResponseWriter, r *http.Request, survey leveling.Survey, outcome leveling.Outcome, err error) {
	if !acceptable(err) {
		h.fail(w, r, outcome, err)
		return
	}
	render.JSON(w, r, newComputeResponse(survey, outcome, err))
}

// fail renders a computation error, attaching the diagnostics whenever the
// rows could be reduced.
func (h *LevelingHandler) fail(w http.ResponseWriter, r *http.Request, outcome leveling.Outcome, err error) {
	var ext map[string]interface{}
	if len(outcome.Rows) > 0 {
		ext = map[string]interface{}{
			"leveling_status": outcome.Status,
			"diagnostics":     outcome.Diagnostics,
		}
	}
	h.errorHandler.HandleErrorWith(w, r, err, ext)
}

func isWorkbook(header *multipart.FileHeader) bool {
	return strings.EqualFold(filepath.Ext(header.Filename), ".xlsx")
}

func writeAttachment(w http.ResponseWriter, name, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
