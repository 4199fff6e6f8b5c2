package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoginRouter(t *testing.T) chi.Router {
	t.Helper()
	svc, _, _, _ := newTestService(t)
	r := chi.NewRouter()
	NewHandler(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func TestLoginEndpointReturnsToken(t *testing.T) {
	router := newLoginRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"ops@ecosfer.com","password":"correct horse"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
}

func TestLoginEndpointRejectsWrongPasswordWithoutDetail(t *testing.T) {
	router := newLoginRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"ops@ecosfer.com","password":"wrong"}`)))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	// The body never says whether the email or the password was wrong.
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestLoginEndpointRequiresCredentials(t *testing.T) {
	router := newLoginRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"ops@ecosfer.com"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
