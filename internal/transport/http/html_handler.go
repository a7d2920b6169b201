package http

import (
	"bytes"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"cptmerge/internal/chart"
	"cptmerge/pkg/contracts"
	"cptmerge/pkg/contracts/domain"
)

// PageData is handed to the index template.
type PageData struct {
	Title              string
	Version            string
	ProjectName        string
	ReferenceElevation float64
	AssetsHost         string
	APIBase            string
	Variables          []chart.AxisSettings
	DefaultVariable    domain.Variable
}

// FrontendHandler serves the single page UI from an embedded filesystem.
// index.html is rendered as a template; every other file is served as is.
type FrontendHandler struct {
	files  fs.FS
	index  *template.Template
	data   PageData
	logger *slog.Logger
}

// NewFrontendHandler parses index.html from files.
func NewFrontendHandler(files fs.FS, data PageData, logger *slog.Logger) (*FrontendHandler, error) {
	tmpl, err := template.ParseFS(files, "index.html")
	if err != nil {
		return nil, err
	}
	if data.Version == "" {
		data.Version = contracts.Version
	}
	if data.DefaultVariable == "" {
		data.DefaultVariable = domain.VariableSBT
	}
	if data.Variables == nil {
		data.Variables = chart.AllAxes()
	}
	return &FrontendHandler{
		files:  files,
		index:  tmpl,
		data:   data,
		logger: logger.With(slog.String("handler", "frontend")),
	}, nil
}

// Routes sets up the frontend routes
func (h *FrontendHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	r.Get("/*", h.Static)
	return r
}

// Index renders the main page
func (h *FrontendHandler) Index(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.index.Execute(&buf, h.data); err != nil {
		h.logger.ErrorContext(r.Context(), "Error rendering page", slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

// Static serves embedded assets, falling back to the main page for
// unknown paths without an extension.
func (h *FrontendHandler) Static(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" || name == "index.html" {
		h.Index(w, r)
		return
	}
	if _, err := fs.Stat(h.files, name); err != nil {
		if path.Ext(name) == "" {
			h.Index(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, h.files, name)
}
