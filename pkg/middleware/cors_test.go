package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"chrome-extension://abcdef/"}
	cases := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"chrome-extension://abcdef", true},
		{"https://evil.example", false},
	}
	for _, tc := range cases {
		if got := OriginAllowed(allowed, tc.origin); got != tc.want {
			t.Errorf("OriginAllowed(%q) = %v, want %v", tc.origin, got, tc.want)
		}
	}
	if !OriginAllowed(nil, "https://any.example") {
		t.Error("empty allow list should permit any origin")
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"chrome-extension://abcdef"}))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	preflight := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	preflight.Header.Set("Origin", "chrome-extension://abcdef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, preflight)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "chrome-extension://abcdef" {
		t.Fatalf("unexpected preflight response: %d %v", w.Code, w.Header())
	}

	denied := httptest.NewRequest(http.MethodGet, "/ping", nil)
	denied.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, denied)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}
