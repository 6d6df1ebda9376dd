package auth

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// apiContentSecurityPolicy allows nothing to load; responses are JSON or images.
const apiContentSecurityPolicy = "default-src 'none'; img-src 'self'; frame-ancestors 'none'"

// SecurityHeadersMiddleware adds security headers to all responses.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent clickjacking
		c.Header("X-Frame-Options", "DENY")

		// Prevent MIME type sniffing, uploaded thumbnails included
		c.Header("X-Content-Type-Options", "nosniff")

		// Referrer policy - don't leak URLs to external sites
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Header("Content-Security-Policy", apiContentSecurityPolicy)

		// Permissions Policy - disable unnecessary browser features
		c.Header("Permissions-Policy",
			"accelerometer=(), "+
				"camera=(), "+
				"geolocation=(), "+
				"gyroscope=(), "+
				"magnetometer=(), "+
				"microphone=(), "+
				"payment=(), "+
				"usb=()")

		c.Next()
	}
}

// StrictTransportSecurityMiddleware adds HSTS header for HTTPS-only access.
// maxAge is in seconds; only enable this when serving over HTTPS.
func StrictTransportSecurityMiddleware(maxAge int) gin.HandlerFunc {
	value := fmt.Sprintf("max-age=%d; includeSubDomains", maxAge)
	return func(c *gin.Context) {
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Header("Strict-Transport-Security", value)
		}
		c.Next()
	}
}
