package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "cptmerge/internal/errors"
	"cptmerge/internal/exporter"
	"cptmerge/internal/middleware"
	"cptmerge/internal/services"
	api "cptmerge/pkg/contracts/api/v1"
	"cptmerge/pkg/contracts/domain"
)

// multipartMemory is the part of a multipart form kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

// SessionHandler serves the workspace API: sessions, the sounding table,
// charts and exports.
type SessionHandler struct {
	service         MergeServiceInterface
	events          http.Handler
	validation      *middleware.ValidationMiddleware
	query           *middleware.QueryParamValidator
	errorHandler    *apierrors.ErrorHandler
	maxRequestBytes int64
	logger          *slog.Logger
}

// NewSessionHandler creates the handler. events serves the websocket feed
// and may be nil; maxRequestBytes bounds a whole upload request.
func NewSessionHandler(
	service MergeServiceInterface,
	events http.Handler,
	validation *middleware.ValidationMiddleware,
	errorHandler *apierrors.ErrorHandler,
	maxRequestBytes int64,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		service:         service,
		events:          events,
		validation:      validation,
		query:           middleware.NewQueryParamValidator(logger, errorHandler),
		errorHandler:    errorHandler,
		maxRequestBytes: maxRequestBytes,
		logger:          logger.With(slog.String("handler", "session")),
	}
}

// Routes returns the session routes
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.validation.ValidateRequest).Post("/", h.CreateSession)

	r.Route("/{sid}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.With(h.validation.ValidateRequest).Patch("/", h.RenameProject)
		r.Delete("/", h.DeleteSession)

		r.Route("/soundings", func(r chi.Router) {
			r.Post("/", h.Upload)
			r.Get("/", h.ListSoundings)
			r.With(h.validation.ValidateRequest).Put("/", h.ReplaceTable)

			r.Route("/{id}", func(r chi.Router) {
				r.With(h.validation.ValidateRequest).Patch("/", h.UpdateSounding)
				r.Delete("/", h.RemoveSounding)
				r.Get("/records", h.Records)
				r.Get("/summary", h.Summary)
			})
		})

		r.Get("/chart", h.Chart)
		r.Get("/chart.html", h.ChartHTML)
		r.Get("/export/{format}", h.Export)

		if h.events != nil {
			r.Handle("/events", h.events)
		}
	})

	return r
}

// CreateSession handles POST /sessions. The body is optional.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if r.ContentLength != 0 {
		if err := h.validation.DecodeAndValidate(r, &req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	sess := h.service.CreateSession(r.Context(), req.ProjectName)
	h.logger.InfoContext(r.Context(), "session created",
		slog.String("session_id", sess.ID),
		slog.String("project", sess.ProjectName))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.SessionResponse{Session: sess})
}

// GetSession handles GET /sessions/{sid}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.GetSession(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.SessionResponse{Session: sess})
}

// RenameProject handles PATCH /sessions/{sid}
func (h *SessionHandler) RenameProject(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateSessionRequest
	if err := h.validation.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	sess, err := h.service.RenameProject(r.Context(), chi.URLParam(r, "sid"), req.ProjectName)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.SessionResponse{Session: sess})
}

// DeleteSession handles DELETE /sessions/{sid}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), chi.URLParam(r, "sid")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload handles POST /sessions/{sid}/soundings, a multipart form with one
// or more "files" parts and the optional read option fields sheet,
// header_row, data_start_row and columns.
func (h *SessionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxRequestBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := readOptionsFromForm(r.MultipartForm)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	headers := r.MultipartForm.File["files"]
	files := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		files = append(files, services.Upload{
			Name: fh.Filename,
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	res, err := h.service.Upload(r.Context(), chi.URLParam(r, "sid"), opts, files)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "upload processed",
		slog.Int("added", len(res.Added)),
		slog.Int("failed", len(res.Failed)))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.UploadResponse{Added: res.Added, Failed: res.Failed})
}

// readOptionsFromForm overlays the submitted fields on the default layout.
func readOptionsFromForm(form *multipart.Form) (domain.ReadOptions, error) {
	opts := domain.DefaultReadOptions()
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	if v := value("sheet"); v != "" {
		opts.Sheet = v
	}
	if v := value("columns"); v != "" {
		opts.Columns = v
	}
	for key, dst := range map[string]*int{"header_row": &opts.HeaderRow, "data_start_row": &opts.DataStartRow} {
		v := value(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, apierrors.NewValidationErrors([]apierrors.ValidationError{{
				Field: key, Message: fmt.Sprintf("%s must be a whole row number", key),
			}})
		}
		*dst = n
	}
	return opts, nil
}

// ListSoundings handles GET /sessions/{sid}/soundings
func (h *SessionHandler) ListSoundings(w http.ResponseWriter, r *http.Request) {
	soundings, err := h.service.ListSoundings(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.SoundingListResponse{Soundings: soundings, Count: len(soundings)})
}

// ReplaceTable handles PUT /sessions/{sid}/soundings
func (h *SessionHandler) ReplaceTable(w http.ResponseWriter, r *http.Request) {
	var req api.ReplaceTableRequest
	if err := h.validation.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	soundings, err := h.service.ReplaceTable(r.Context(), chi.URLParam(r, "sid"), req.Rows)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.SoundingListResponse{Soundings: soundings, Count: len(soundings)})
}

// UpdateSounding handles PATCH /sessions/{sid}/soundings/{id}
func (h *SessionHandler) UpdateSounding(w http.ResponseWriter, r *http.Request) {
	var patch domain.SoundingPatch
	if err := h.validation.DecodeAndValidate(r, &patch); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	snd, err := h.service.UpdateSounding(r.Context(), chi.URLParam(r, "sid"), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, snd)
}

// RemoveSounding handles DELETE /sessions/{sid}/soundings/{id}
func (h *SessionHandler) RemoveSounding(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveSounding(r.Context(), chi.URLParam(r, "sid"), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Records handles GET /sessions/{sid}/soundings/{id}/records
func (h *SessionHandler) Records(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Records(r.Context(), chi.URLParam(r, "sid"), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.RecordsResponse{Sounding: p})
}

// Summary handles GET /sessions/{sid}/soundings/{id}/summary
func (h *SessionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary(r.Context(), chi.URLParam(r, "sid"), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, sum)
}

// Chart handles GET /sessions/{sid}/chart?x=SBT&xmax=4
func (h *SessionHandler) Chart(w http.ResponseWriter, r *http.Request) {
	q, ok := h.chartQuery(w, r)
	if !ok {
		return
	}

	fig, err := h.service.Figure(r.Context(), chi.URLParam(r, "sid"), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, fig)
}

// ChartHTML handles GET /sessions/{sid}/chart.html, the interactive chart
// shown inline by the frontend.
func (h *SessionHandler) ChartHTML(w http.ResponseWriter, r *http.Request) {
	q, ok := h.chartQuery(w, r)
	if !ok {
		return
	}

	res, err := h.service.Export(r.Context(), chi.URLParam(r, "sid"), q, exporter.FormatHTML)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(res.Data)
}

// Export handles GET /sessions/{sid}/export/{format}
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := exporter.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q, ok := h.chartQuery(w, r)
	if !ok {
		return
	}

	res, err := h.service.Export(r.Context(), chi.URLParam(r, "sid"), q, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "export served",
		slog.String("format", string(format)),
		slog.String("filename", res.Filename),
		slog.Int("bytes", len(res.Data)))

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	http.ServeContent(w, r, res.Filename, time.Time{}, bytes.NewReader(res.Data))
}

// chartQuery reads x and xmax. A missing x selects SBT.
func (h *SessionHandler) chartQuery(w http.ResponseWriter, r *http.Request) (services.ChartQuery, bool) {
	names := make([]string, len(domain.Variables))
	for i, v := range domain.Variables {
		names[i] = string(v)
	}
	x, ok := h.query.ValidateEnum(w, r, "x", names, string(domain.VariableSBT))
	if !ok {
		return services.ChartQuery{}, false
	}
	xmax, ok := h.query.ValidateFloat(w, r, "xmax")
	if !ok {
		return services.ChartQuery{}, false
	}
	return services.ChartQuery{Variable: domain.Variable(x), XMax: xmax}, true
}
