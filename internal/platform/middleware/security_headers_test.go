package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func headersFor(t *testing.T, hsts bool, handler echo.HandlerFunc) (http.Header, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/prescriptions/rx-1/pdf", nil), rec)
	err := SecurityHeaders(hsts)(handler)(c)
	return rec.Header(), err
}

func TestSecurityHeaders(t *testing.T) {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	h, err := headersFor(t, false, ok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"X-XSS-Protection":        "0",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":         "no-referrer",
		"Cache-Control":           "no-store",
	}
	for header, want := range expected {
		if got := h.Get(header); got != want {
			t.Errorf("header %s: got %q, want %q", header, got, want)
		}
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent without TLS")
	}

	h, _ = headersFor(t, true, ok)
	if got := h.Get("Strict-Transport-Security"); got != hstsValue {
		t.Errorf("HSTS = %q, want %q", got, hstsValue)
	}
}

func TestSecurityHeaders_SetEvenWhenHandlerFails(t *testing.T) {
	want := errors.New("boom")
	h, err := headersFor(t, false, func(echo.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if h.Get("X-Frame-Options") != "DENY" {
		t.Error("headers should be set even when the handler fails")
	}
}
