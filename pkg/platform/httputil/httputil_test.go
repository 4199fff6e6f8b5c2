package httputil_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "skdm/pkg/domain-errors"
	"skdm/pkg/platform/httputil"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeInvalidInput, http.StatusBadRequest},
		{dErrors.CodeUnauthorized, http.StatusUnauthorized},
		{dErrors.CodeForbidden, http.StatusForbidden},
		{dErrors.CodeNotFound, http.StatusNotFound},
		{dErrors.CodeConflict, http.StatusConflict},
		{dErrors.CodeInvariantViolation, http.StatusConflict},
		{dErrors.CodeUnavailable, http.StatusServiceUnavailable},
		{dErrors.CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			httputil.WriteError(rec, dErrors.New(tc.code, "reason"))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestWriteErrorHidesSensitiveDetail(t *testing.T) {
	for _, code := range []dErrors.Code{dErrors.CodeInternal, dErrors.CodeUnauthorized} {
		rec := httptest.NewRecorder()
		httputil.WriteError(rec, dErrors.New(code, "tenant mismatch on declarations"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, string(code), body["error"])
		assert.Empty(t, body["error_description"], "description must not leak for %s", code)
	}
}

func TestWriteErrorIncludesDescriptionForClientFaults(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.WriteError(rec, dErrors.New(dErrors.CodeInvalidInput, "reporting year is outside the CBAM range 2023-2035"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "reporting year is outside the CBAM range 2023-2035", body["error_description"])
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.WriteJSON(rec, http.StatusCreated, map[string]int{"year": 2025})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"year": 2025}`, rec.Body.String())
}

func TestDecodeRejectsMalformedBody(t *testing.T) {
	type payload struct {
		Year int `json:"year"`
	}

	r := httptest.NewRequest(http.MethodPost, "/declarations", strings.NewReader(`{"year": `))
	_, err := httputil.Decode[payload](r)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	r = httptest.NewRequest(http.MethodPost, "/declarations", strings.NewReader(`{"year": 2025}`))
	req, err := httputil.Decode[payload](r)
	require.NoError(t, err)
	assert.Equal(t, 2025, req.Year)
}
