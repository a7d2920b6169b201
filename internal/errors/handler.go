package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"cptmerge/internal/infrastructure"
	"cptmerge/internal/services"
	"cptmerge/internal/validation"
	"cptmerge/pkg/contracts/domain"
)

// Problem types following RFC 7807
const (
	TypeValidation      = "/errors/validation"
	TypeParse           = "/errors/parse"
	TypeComputation     = "/errors/computation"
	TypeNoData          = "/errors/no-data"
	TypeNotFound        = "/errors/not-found"
	TypeConflict        = "/errors/conflict"
	TypePayloadTooLarge = "/errors/payload-too-large"
	TypeRateLimit       = "/errors/rate-limit"
	TypeTimeout         = "/errors/timeout"
	TypeMethod          = "/errors/method-not-allowed"
	TypeInternal        = "/errors/internal"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	traceID := traceID(r)
	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", traceID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	_ = problem.Write(w)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	path := r.URL.Path

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var parseErr *domain.ParseError
	if errors.As(err, &parseErr) {
		p := NewProblemDetails(http.StatusUnprocessableEntity, TypeParse,
			"Workbook Could Not Be Read", parseErr.Error(), path).
			WithExtension("file", parseErr.File)
		if parseErr.Sheet != "" {
			p.WithExtension("sheet", parseErr.Sheet)
		}
		if parseErr.Row > 0 {
			p.WithExtension("row", parseErr.Row)
		}
		if parseErr.Column != "" {
			p.WithExtension("column", parseErr.Column)
		}
		return p
	}

	var compErr *domain.ComputationError
	if errors.As(err, &compErr) {
		p := NewProblemDetails(http.StatusUnprocessableEntity, TypeComputation,
			"Value Cannot Be Computed", compErr.Error(), path).
			WithExtension("sounding", compErr.Sounding).
			WithExtension("record", compErr.Index+1).
			WithExtension("field", compErr.Field)
		if compErr.Row > 0 {
			p.WithExtension("row", compErr.Row)
		}
		return p
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, ValidationError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed on %q", fe.Tag()),
			})
		}
		return NewProblemDetails(http.StatusBadRequest, TypeValidation,
			"Validation Failed", "One or more fields are invalid", path).
			WithExtension("errors", out)
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) || errors.Is(err, validation.ErrFileTooLarge) {
		return NewProblemDetails(http.StatusRequestEntityTooLarge, TypePayloadTooLarge,
			"Payload Too Large", err.Error(), path)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout,
			"Request Timeout", "The request took too long to process and was cancelled", path)

	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSoundingNotFound):
		return NewProblemDetails(http.StatusNotFound, TypeNotFound,
			"Resource Not Found", err.Error(), path)

	case errors.Is(err, domain.ErrTooManySoundings):
		return NewProblemDetails(http.StatusConflict, TypeConflict,
			"Sounding Limit Reached", err.Error(), path)

	case errors.Is(err, domain.ErrLengthMismatch):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeValidation,
			"Table Does Not Match", err.Error(), path)

	case errors.Is(err, domain.ErrNoData):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeNoData,
			"No Data", err.Error(), path)

	case errors.Is(err, domain.ErrUnsupportedFileExt),
		errors.Is(err, domain.ErrSheetNotFound),
		errors.Is(err, domain.ErrInvalidCell),
		errors.Is(err, validation.ErrEmptyFile):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeParse,
			"Workbook Could Not Be Read", err.Error(), path)

	case errors.Is(err, domain.ErrNonPositiveInput):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeComputation,
			"Value Cannot Be Computed", err.Error(), path)

	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrNoFiles),
		errors.Is(err, domain.ErrInvalidColumnSpec),
		errors.Is(err, domain.ErrInvalidReadOptions),
		errors.Is(err, domain.ErrUnknownVariable),
		errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, validation.ErrTempFile):
		return NewProblemDetails(http.StatusBadRequest, TypeValidation,
			"Validation Failed", err.Error(), path)

	default:
		return NewProblemDetails(http.StatusInternalServerError, TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request", path)
	}
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "MISSING_PARAMETER":
		problemType = TypeValidation
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "PAYLOAD_TOO_LARGE":
		problemType = TypePayloadTooLarge
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
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
	traceID := traceID(r)

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("trace_id", traceID),
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
	).WithExtension("trace_id", traceID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	_ = problem.Write(w)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", traceID(r))

	_ = problem.Write(w)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethod,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", traceID(r))

	_ = problem.Write(w)
}

// Middleware recovers panics from downstream handlers.
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.HandlePanic(w, r, rec)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func traceID(r *http.Request) string {
	if id := infrastructure.GetTraceID(r.Context()); id != "" {
		return id
	}
	return middleware.GetReqID(r.Context())
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
