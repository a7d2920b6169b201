package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "cptmerge/internal/errors"
	"cptmerge/internal/shared/testutil"
)

type tableRow struct {
	Name      string  `json:"name" validate:"required,max=10"`
	Elevation float64 `json:"reference_elevation" validate:"finite"`
	Columns   string  `json:"columns" validate:"omitempty,columns"`
}

func newValidation(t *testing.T) *ValidationMiddleware {
	logger, _ := testutil.NewTestLogger(t)
	return NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))
}

func TestValidationMiddleware_ValidateStruct(t *testing.T) {
	m := newValidation(t)

	require.NoError(t, m.ValidateStruct(&tableRow{Name: "CPT-01", Elevation: 100.01, Columns: "A, B, C"}))

	err := m.ValidateStruct(&tableRow{Elevation: math.Inf(1), Columns: "A"})
	require.Error(t, err)

	apiErr, ok := err.(*apierrors.APIError)
	require.True(t, ok)
	details := apiErr.Details.(apierrors.ValidationErrors)
	require.Len(t, details.Errors, 3)

	byField := map[string]string{}
	for _, e := range details.Errors {
		byField[e.Field] = e.Message
	}
	assert.Equal(t, "name is required", byField["name"])
	assert.Equal(t, "reference_elevation must be a finite number", byField["reference_elevation"])
	assert.Contains(t, byField["columns"], `"A, B, C"`)
}

func TestValidationMiddleware_DecodeAndValidate(t *testing.T) {
	m := newValidation(t)

	var row tableRow
	r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"CPT-02","reference_elevation":99.5}`))
	require.NoError(t, m.DecodeAndValidate(r, &row))
	assert.Equal(t, 99.5, row.Elevation)

	r = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"far too long a name"}`))
	err := m.DecodeAndValidate(r, &row)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", err.(*apierrors.APIError).ErrorCode)

	r = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`[`))
	err = m.DecodeAndValidate(r, &row)
	require.Error(t, err)
	assert.Equal(t, "INVALID_REQUEST", err.(*apierrors.APIError).ErrorCode)
}

func TestValidationMiddleware_ValidateRequest(t *testing.T) {
	m := newValidation(t)
	m.maxBodySize = 64

	var got string
	handler := m.ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		got, _ = body["name"].(string)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantName    string
	}{
		{"valid json", "application/json", `{"name":"CPT-01"}`, http.StatusOK, "CPT-01"},
		{"malformed json", "application/json", `{"name":`, http.StatusBadRequest, ""},
		{"too large", "application/json", `{"name":"` + strings.Repeat("x", 100) + `"}`, http.StatusRequestEntityTooLarge, ""},
		{"multipart bypass", "multipart/form-data; boundary=x", strings.Repeat("x", 100), http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = ""
			r := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantName, got)
		})
	}
}

func TestContentTypeValidator(t *testing.T) {
	handler := ContentTypeValidator("application/json", "multipart/form-data")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x"))
	r.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQueryParamValidator(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewQueryParamValidator(logger, apierrors.NewErrorHandler(logger, false))

	t.Run("enum", func(t *testing.T) {
		w := httptest.NewRecorder()
		got, ok := v.ValidateEnum(w, httptest.NewRequest(http.MethodGet, "/?x=sbt", nil), "x", []string{"qc", "Rf", "SBT"}, "SBT")
		assert.True(t, ok)
		assert.Equal(t, "SBT", got)

		got, ok = v.ValidateEnum(w, httptest.NewRequest(http.MethodGet, "/", nil), "x", []string{"qc"}, "qc")
		assert.True(t, ok)
		assert.Equal(t, "qc", got)

		w = httptest.NewRecorder()
		_, ok = v.ValidateEnum(w, httptest.NewRequest(http.MethodGet, "/?x=fs", nil), "x", []string{"qc", "Rf"}, "qc")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("float", func(t *testing.T) {
		w := httptest.NewRecorder()
		got, ok := v.ValidateFloat(w, httptest.NewRequest(http.MethodGet, "/?xmax=12.5", nil), "xmax")
		assert.True(t, ok)
		assert.Equal(t, 12.5, got)

		got, ok = v.ValidateFloat(w, httptest.NewRequest(http.MethodGet, "/", nil), "xmax")
		assert.True(t, ok)
		assert.Zero(t, got)

		for _, bad := range []string{"abc", "-1", "NaN", "Inf"} {
			w = httptest.NewRecorder()
			_, ok = v.ValidateFloat(w, httptest.NewRequest(http.MethodGet, "/?xmax="+bad, nil), "xmax")
			assert.False(t, ok, bad)
			assert.Equal(t, http.StatusBadRequest, w.Code, bad)
		}
	})

	t.Run("int", func(t *testing.T) {
		w := httptest.NewRecorder()
		got, ok := v.ValidateInt(w, httptest.NewRequest(http.MethodGet, "/?width=900", nil), "width", 200, 4000, 800)
		assert.True(t, ok)
		assert.Equal(t, 900, got)

		_, ok = v.ValidateInt(w, httptest.NewRequest(http.MethodGet, "/?width=50", nil), "width", 200, 4000, 800)
		assert.False(t, ok)
	})
}
