package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontendHandler(t *testing.T) {
	files := fstest.MapFS{
		"index.html": {Data: []byte(`<title>{{.Title}}</title><p data-ref="{{.ReferenceElevation}}">{{.ProjectName}}</p>{{range .Variables}}<option>{{.Variable}}</option>{{end}}`)},
		"app.js":     {Data: []byte(`console.log("ok")`)},
	}
	h, err := NewFrontendHandler(files, PageData{Title: "CPT Merge", ProjectName: "Quay", ReferenceElevation: 100.01}, discardLogger())
	require.NoError(t, err)
	router := h.Routes()

	tests := []struct {
		name         string
		path         string
		wantStatus   int
		wantContains string
	}{
		{"index", "/", http.StatusOK, `data-ref="100.01"`},
		{"variables", "/", http.StatusOK, "<option>SBT</option>"},
		{"asset", "/app.js", http.StatusOK, `console.log`},
		{"client route", "/workspace", http.StatusOK, "<title>CPT Merge</title>"},
		{"missing asset", "/missing.css", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantContains != "" {
				assert.Contains(t, rec.Body.String(), tt.wantContains)
			}
		})
	}
}

func TestFrontendHandler_MissingIndex(t *testing.T) {
	_, err := NewFrontendHandler(fstest.MapFS{}, PageData{}, discardLogger())
	assert.Error(t, err)
}
