package auth

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/api/v1/book/getAll", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"books": []string{}})
	})
	router.GET("/api/v1/book/dashboard", func(c *gin.Context) {
		respondError(c, http.StatusUnauthorized, "authentication required", "UNAUTHORIZED")
	})
	router.GET("/media/thumbnails/dune.png", func(c *gin.Context) {
		c.Data(http.StatusOK, "image/png", []byte{0x89, 'P', 'N', 'G'})
	})

	want := map[string]string{
		"X-Frame-Options":         "DENY",
		"X-Content-Type-Options":  "nosniff",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Content-Security-Policy": apiContentSecurityPolicy,
	}

	for _, path := range []string{"/api/v1/book/getAll", "/api/v1/book/dashboard", "/media/thumbnails/dune.png"} {
		t.Run(path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

			for header, value := range want {
				if got := rr.Header().Get(header); got != value {
					t.Errorf("%s = %q, want %q", header, got, value)
				}
			}
			if rr.Header().Get("Permissions-Policy") == "" {
				t.Error("Permissions-Policy header should be set")
			}
		})
	}
}

func TestStrictTransportSecurityMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(StrictTransportSecurityMiddleware(3600))
	router.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name   string
		mutate func(r *http.Request)
		want   string
	}{
		{"plain http", func(r *http.Request) {}, ""},
		{"behind https proxy", func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") }, "max-age=3600; includeSubDomains"},
		{"direct tls", func(r *http.Request) { r.TLS = &tls.ConnectionState{} }, "max-age=3600; includeSubDomains"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			tt.mutate(req)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if got := rr.Header().Get("Strict-Transport-Security"); got != tt.want {
				t.Errorf("Strict-Transport-Security = %q, want %q", got, tt.want)
			}
		})
	}
}
