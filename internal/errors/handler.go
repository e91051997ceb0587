package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/render"

	"altum/internal/fieldbook"
	"altum/internal/infrastructure"
	"altum/internal/leveling"
)

// Common error types following RFC 7807
const (
	TypeValidation           = "/errors/validation"
	TypeNotFound             = "/errors/not-found"
	TypeMethodNotAllowed     = "/errors/method-not-allowed"
	TypeRateLimit            = "/errors/rate-limit"
	TypeInternal             = "/errors/internal"
	TypeServiceDown          = "/errors/service-unavailable"
	TypeTimeout              = "/errors/timeout"
	TypePayloadTooLarge      = "/errors/payload-too-large"
	TypeUnsupportedMediaType = "/errors/unsupported-media-type"
)

// Domain-specific error types
const (
	TypeMissingBacksight        = "/errors/leveling/missing-backsight"
	TypeEmptySurvey             = "/errors/leveling/empty-survey"
	TypeArithmeticInconsistency = "/errors/leveling/arithmetic-inconsistency"
	TypeInvalidRows             = "/errors/leveling/invalid-rows"
	TypeZeroDistance            = "/errors/leveling/zero-distance"
	TypeFieldBookUnreadable     = "/errors/fieldbook/unreadable"
	TypeFieldBookInvalidCell    = "/errors/fieldbook/invalid-cell"
	TypeFieldBookMissingColumns = "/errors/fieldbook/missing-columns"
	TypeFieldBookTooLarge       = "/errors/fieldbook/too-many-rows"
	TypeFieldBookNoObservations = "/errors/fieldbook/no-observations"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	h.HandleErrorWith(w, r, err, nil)
}

// HandleErrorWith responds like HandleError and adds extensions to the problem.
func (h *ErrorHandler) HandleErrorWith(w http.ResponseWriter, r *http.Request, err error, extensions map[string]interface{}) {
	if err == nil {
		return
	}

	reqID := infrastructure.GetRequestID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.String("problem_type", problem.Type),
		slog.Int("status", problem.Status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	for k, v := range extensions {
		problem.WithExtension(k, v)
	}
	if reqID != "" {
		problem.WithExtension("request_id", reqID)
	}
	if traceID := infrastructure.TraceIDFromContext(r.Context()); traceID != "" {
		problem.WithExtension("trace_id", traceID)
	}

	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	instance := r.URL.Path

	var (
		problem      *ProblemDetails
		apiErr       *APIError
		inconsistent *leveling.ArithmeticInconsistencyError
		invalidRows  *leveling.InvalidRowError
		cellErr      *fieldbook.CellError
		missingCols  *fieldbook.MissingColumnError
		maxBytesErr  *http.MaxBytesError
		appErr       *AppError
	)

	switch {
	case errors.As(err, &problem):
		return problem

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			instance,
		)

	case errors.As(err, &apiErr):
		return h.apiErrorToProblem(apiErr, r)

	case errors.As(err, &maxBytesErr):
		return NewProblemDetails(
			http.StatusRequestEntityTooLarge,
			TypePayloadTooLarge,
			"Payload Too Large",
			fmt.Sprintf("The request body exceeds the %d byte limit", maxBytesErr.Limit),
			instance,
		).WithExtension("limit", maxBytesErr.Limit)

	case errors.Is(err, leveling.ErrMissingBacksight):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeMissingBacksight,
			"Missing Backsight",
			"The first observation must carry a backsight to establish the instrument height",
			instance,
		)

	case errors.Is(err, leveling.ErrEmptySurvey):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeEmptySurvey,
			"Empty Survey",
			"The survey has no observations",
			instance,
		)

	case errors.As(err, &inconsistent):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeArithmeticInconsistency,
			"Arithmetic Check Failed",
			"The backsight and foresight sums disagree with the reduced elevations; check the field book for transcription errors",
			instance,
		).WithExtension("discrepancy", inconsistent.Discrepancy).
			WithExtension("tolerance", leveling.ArithmeticTolerance)

	case errors.As(err, &invalidRows):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeInvalidRows,
			"Invalid Rows",
			"Some rows carry neither an intermediate nor a foresight reading",
			instance,
		).WithExtension("rows", invalidRows.Rows)

	case errors.As(err, &cellErr):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeFieldBookInvalidCell,
			"Invalid Cell",
			cellErr.Error(),
			instance,
		).WithExtension("sheet", cellErr.Sheet).
			WithExtension("cell", cellErr.Cell).
			WithExtension("column", cellErr.Column.String())

	case errors.As(err, &missingCols):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeFieldBookMissingColumns,
			"Missing Columns",
			missingCols.Error(),
			instance,
		).WithExtension("columns", missingCols.Columns)

	case errors.Is(err, fieldbook.ErrTooManyRows):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeFieldBookTooLarge,
			"Too Many Rows",
			err.Error(),
			instance,
		)

	case errors.Is(err, fieldbook.ErrNoObservations):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeFieldBookNoObservations,
			"No Observations",
			"The field book has headers but no observation rows",
			instance,
		)

	case errors.Is(err, fieldbook.ErrNoFieldBook):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeFieldBookUnreadable,
			"Field Book Not Found",
			"No worksheet has the Punto, Distancia, Atras, Intermedia and Adelante columns",
			instance,
		)

	case errors.As(err, &appErr) && appErr.Type == ErrTypeParsing:
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeFieldBookUnreadable,
			"Unreadable Field Book",
			appErr.Error(),
			instance,
		)

	case errors.As(err, &appErr) && appErr.Type == ErrTypeValidation:
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Validation Failed",
			appErr.Message,
			instance,
		)

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			instance,
		)
	}
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "INVALID_PARAMETER", "MISSING_PARAMETER":
		problemType = TypeValidation
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "PAYLOAD_TOO_LARGE":
		problemType = TypePayloadTooLarge
	case "UNSUPPORTED_MEDIA_TYPE":
		problemType = TypeUnsupportedMediaType
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "SERVICE_UNAVAILABLE":
		problemType = TypeServiceDown
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := infrastructure.GetRequestID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("request_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("request_id", infrastructure.GetRequestID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("request_id", infrastructure.GetRequestID(r.Context()))

	render.Render(w, r, problem)
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
