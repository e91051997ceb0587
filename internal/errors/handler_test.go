package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"altum/internal/fieldbook"
	"altum/internal/infrastructure"
	"altum/internal/leveling"
)

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func TestErrorToProblem(t *testing.T) {
	h := newTestHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/leveling/compute", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		check      func(*testing.T, *ProblemDetails)
	}{
		{
			name:       "missing backsight",
			err:        fmt.Errorf("reduce %q: %w", "norte", leveling.ErrMissingBacksight),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeMissingBacksight,
		},
		{
			name:       "empty survey",
			err:        leveling.ErrEmptySurvey,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeEmptySurvey,
		},
		{
			name:       "arithmetic inconsistency",
			err:        fmt.Errorf("compensate: %w", &leveling.ArithmeticInconsistencyError{Discrepancy: 0.005}),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeArithmeticInconsistency,
			check: func(t *testing.T, p *ProblemDetails) {
				assert.Equal(t, 0.005, p.Extensions["discrepancy"])
				assert.Equal(t, leveling.ArithmeticTolerance, p.Extensions["tolerance"])
			},
		},
		{
			name:       "invalid rows",
			err:        &leveling.InvalidRowError{Rows: []int{2, 5}},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeInvalidRows,
			check: func(t *testing.T, p *ProblemDetails) {
				assert.Equal(t, []int{2, 5}, p.Extensions["rows"])
			},
		},
		{
			name:       "invalid cell",
			err:        &fieldbook.CellError{Sheet: "Registro", Cell: "C4", Column: fieldbook.ColBacksight, Value: "x", Err: fieldbook.ErrNotNumeric},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeFieldBookInvalidCell,
			check: func(t *testing.T, p *ProblemDetails) {
				assert.Equal(t, "C4", p.Extensions["cell"])
				assert.Equal(t, "Atras", p.Extensions["column"])
			},
		},
		{
			name:       "missing columns",
			err:        &fieldbook.MissingColumnError{Sheet: "Hoja1", Columns: []string{"Adelante"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeFieldBookMissingColumns,
		},
		{
			name:       "no field book",
			err:        fieldbook.ErrNoFieldBook,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeFieldBookUnreadable,
		},
		{
			name:       "too many rows",
			err:        fmt.Errorf("%w (10)", fieldbook.ErrTooManyRows),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeFieldBookTooLarge,
		},
		{
			name:       "parsing app error",
			err:        NewParsingError("failed to read workbook", fmt.Errorf("zip: not a valid zip file")),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeFieldBookUnreadable,
		},
		{
			name:       "body too large",
			err:        &http.MaxBytesError{Limit: 1024},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
		},
		{
			name:       "api validation error",
			err:        NewValidationErrors([]ValidationError{{Field: "start_elevation", Message: "required"}}),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			check: func(t *testing.T, p *ProblemDetails) {
				assert.Equal(t, "VALIDATION_FAILED", p.Extensions["error_code"])
			},
		},
		{
			name:       "unsupported media type",
			err:        ErrUnsupportedMediaType,
			wantStatus: http.StatusUnsupportedMediaType,
			wantType:   TypeUnsupportedMediaType,
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "unknown",
			err:        fmt.Errorf("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := h.ErrorToProblem(tt.err, r)
			assert.Equal(t, tt.wantStatus, p.Status)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, "/api/leveling/compute", p.Instance)
			if tt.check != nil {
				tt.check(t, p)
			}
		})
	}
}

func TestHandleErrorWith(t *testing.T) {
	h := newTestHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/leveling/compute", nil)
	r = r.WithContext(infrastructure.WithRequestID(r.Context(), "req-1"))
	w := httptest.NewRecorder()

	h.HandleErrorWith(w, r, &leveling.ArithmeticInconsistencyError{Discrepancy: -0.01}, map[string]interface{}{
		"diagnostics": leveling.Diagnostics{SumBacksight: 2.6},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeArithmeticInconsistency, body["type"])
	assert.Equal(t, -0.01, body["discrepancy"])
	assert.Equal(t, "req-1", body["request_id"])
	diag := body["diagnostics"].(map[string]interface{})
	assert.Equal(t, 2.6, diag["sum_back"])
}

func TestHandleError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	newTestHandler().HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Zero(t, w.Body.Len())
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	p := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/x").
		WithExtension("type", "ignored").
		WithExtension("hint", "check the route")

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"/errors/not-found","title":"Not Found","status":404,"instance":"/x","hint":"check the route"}`, string(data))
	assert.Equal(t, "Not Found", p.Error())
}

func TestErrorMiddleware_RecoversPanic(t *testing.T) {
	h := newTestHandler()
	mw := NewErrorMiddleware(h, slog.New(slog.NewTextHandler(io.Discard, nil)))

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leveling/template", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeInternal, body["type"])
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestHandler()

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "DELETE")
}

func TestAppError(t *testing.T) {
	cause := fmt.Errorf("zip: not a valid zip file")
	err := NewParsingError("failed to read workbook", cause).WithContext("file", "a.xlsx")

	assert.Equal(t, "[PARSING] failed to read workbook: zip: not a valid zip file", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "a.xlsx", err.Context["file"])
	assert.Equal(t, "[STORAGE] write failed", NewStorageError("write failed", nil).Error())
}
