package ui

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
)

// The chat page posts questions with a double-submit token: the cookie set
// on page load must be echoed in the X-CSRF-Token header (Datastar actions)
// or the csrf_token form field (plain forms).
const (
	csrfCookieName = "invoice_csrf"
	csrfHeaderName = "X-CSRF-Token"
	csrfFormField  = "csrf_token"
	csrfTokenBytes = 32
)

type csrfKey struct{}

// EnsureCSRFToken makes a token available to page renderers, issuing the
// cookie when the browser does not have one yet.
func (h *Handler) EnsureCSRFToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := cookieCSRFToken(r)
		if !ok {
			token = newCSRFToken()
			http.SetCookie(w, h.csrfCookie(token))
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey{}, token)))
	})
}

// RequireCSRF guards state-changing requests such as asking a question.
func (h *Handler) RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		want, ok := cookieCSRFToken(r)
		if !ok {
			csrfFailure(w, "Missing CSRF token cookie.")
			return
		}
		if subtle.ConstantTimeCompare([]byte(want), []byte(submittedCSRFToken(r))) != 1 {
			csrfFailure(w, "Invalid or missing CSRF token.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) csrfCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Production,
		SameSite: http.SameSiteLaxMode,
	}
}

// csrfToken returns the token to embed in the rendered chat page.
func csrfToken(r *http.Request) string {
	if token, ok := r.Context().Value(csrfKey{}).(string); ok && token != "" {
		return token
	}
	token, _ := cookieCSRFToken(r)
	return token
}

func cookieCSRFToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(csrfCookieName)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(c.Value)
	return token, token != ""
}

// submittedCSRFToken prefers the header; the form is only parsed when the
// header is absent so JSON bodies stay unread.
func submittedCSRFToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(csrfHeaderName)); token != "" {
		return token
	}
	_ = r.ParseForm()
	return strings.TrimSpace(r.PostFormValue(csrfFormField))
}

func safeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func csrfFailure(w http.ResponseWriter, detail string) {
	renderHTML(w, http.StatusForbidden, errorPage("CSRF Validation Failed", detail))
}

func newCSRFToken() string {
	b := make([]byte, csrfTokenBytes)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
