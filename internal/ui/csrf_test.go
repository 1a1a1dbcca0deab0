package ui

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestCSRFMiddleware_RejectsMissingToken(t *testing.T) {
	h := &Handler{}

	r := httptest.NewRequest(http.MethodPost, "/chat/"+testChatID+"/ask", strings.NewReader("question=x"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	h.RequireCSRF(noContent()).ServeHTTP(rr, r)
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "Missing CSRF token cookie.")
}

func TestCSRFMiddleware_RejectsMismatchedHeader(t *testing.T) {
	h := &Handler{}

	r := httptest.NewRequest(http.MethodPost, "/chat/"+testChatID+"/ask", strings.NewReader(`{"question":"x"}`))
	r.Header.Set("X-CSRF-Token", "other")
	r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "abc123"})
	rr := httptest.NewRecorder()

	h.RequireCSRF(noContent()).ServeHTTP(rr, r)
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCSRFMiddleware_AllowsMatchingToken(t *testing.T) {
	h := &Handler{}

	t.Run("form_field", func(t *testing.T) {
		form := url.Values{}
		form.Set("csrf_token", "abc123")
		r := httptest.NewRequest(http.MethodPost, "/chat/"+testChatID+"/ask", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "abc123"})
		rr := httptest.NewRecorder()

		h.RequireCSRF(noContent()).ServeHTTP(rr, r)
		require.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/chat/"+testChatID+"/ask", strings.NewReader(`{"question":"x"}`))
		r.Header.Set("X-CSRF-Token", "abc123")
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "abc123"})
		rr := httptest.NewRecorder()

		h.RequireCSRF(noContent()).ServeHTTP(rr, r)
		require.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestCSRFMiddleware_SafeMethodsPass(t *testing.T) {
	h := &Handler{}
	rr := httptest.NewRecorder()

	h.RequireCSRF(noContent()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chat", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestEnsureCSRFToken_SetsCookieWhenMissing(t *testing.T) {
	h := &Handler{}
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = csrfToken(r)
		w.WriteHeader(http.StatusNoContent)
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	h.EnsureCSRFToken(next).ServeHTTP(rr, r)
	require.Equal(t, http.StatusNoContent, rr.Code)
	setCookie := rr.Header().Get("Set-Cookie")
	require.Contains(t, setCookie, csrfCookieName+"=")
	assert.NotEmpty(t, seen)
	assert.Contains(t, setCookie, seen)
}

func TestEnsureCSRFToken_ReusesCookie(t *testing.T) {
	h := &Handler{}
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = csrfToken(r)
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "abc123"})
	rr := httptest.NewRecorder()

	h.EnsureCSRFToken(next).ServeHTTP(rr, r)
	assert.Equal(t, "abc123", seen)
	assert.Empty(t, rr.Header().Get("Set-Cookie"))
}
