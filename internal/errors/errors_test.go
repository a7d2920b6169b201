package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Render(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
	}{
		{name: "bad request", err: ErrInvalidRequest, wantStatus: http.StatusBadRequest},
		{name: "not found", err: ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "too large", err: ErrPayloadTooLarge, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "internal", err: ErrInternalServer, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)

			require.NoError(t, render.Render(w, r, tt.err))
			assert.Equal(t, tt.wantStatus, w.Code)

			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.err.ErrorCode, body.ErrorCode)
			assert.Equal(t, tt.err.Message, body.Message)
		})
	}
}

func TestAPIError_Helpers(t *testing.T) {
	err := InvalidRequestWithError(errors.New("unexpected EOF"))
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "unexpected EOF", err.Details)

	missing := MissingParameter("variable")
	assert.Equal(t, "MISSING_PARAMETER", missing.ErrorCode)
	assert.Contains(t, missing.Message, `"variable"`)

	v := NewValidationErrors([]ValidationError{{Field: "reference_elevation", Message: "required"}})
	require.IsType(t, ValidationErrors{}, v.Details)
	assert.Len(t, v.Details.(ValidationErrors).Errors, 1)

	var target *APIError
	assert.True(t, errors.As(error(NewValidationError("bad")), &target))
	assert.Equal(t, "bad", target.Error())
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ErrRateLimitExceeded)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	p := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Resource Not Found", "session not found", "/api/v1/sessions/x").
		WithExtension("trace_id", "abc").
		WithExtension("status", 999)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, TypeNotFound, got["type"])
	assert.Equal(t, "abc", got["trace_id"])
	// Standard members win over extensions with the same key.
	assert.Equal(t, float64(http.StatusNotFound), got["status"])
	assert.Equal(t, "/api/v1/sessions/x", got["instance"])

	bare, err := json.Marshal(&ProblemDetails{Type: TypeInternal, Title: "x", Status: 500})
	require.NoError(t, err)
	assert.NotContains(t, string(bare), "detail")
	assert.NotContains(t, string(bare), "instance")
}

func TestProblemDetails_Write(t *testing.T) {
	w := httptest.NewRecorder()

	pd := NewProblemDetails(http.StatusConflict, TypeConflict, "Conflict", "limit reached", "/").
		WithExtension("trace_id", "abc")
	require.NoError(t, pd.Write(w))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ProblemContentType, w.Header().Get("Content-Type"))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, TypeConflict, got["type"])
	assert.Equal(t, "limit reached", got["detail"])
	assert.Equal(t, "abc", got["trace_id"])
}
