package middleware

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// BodyLimits caps whole request bodies. Multipart bodies carry uploads and get
// their own, larger budget; everything else falls under Default.
type BodyLimits struct {
	Default   int64
	Multipart int64
}

// multipartOverhead covers scalar fields, part headers and boundaries around one upload
const multipartOverhead int64 = 1 << 20

// NewBodyLimits derives body limits from the per-file upload cap and the JSON cap
func NewBodyLimits(maxUploadBytes, maxJSONBytes int64) BodyLimits {
	return BodyLimits{
		Default:   maxJSONBytes,
		Multipart: maxUploadBytes + multipartOverhead,
	}
}

// BodySizeLimitMiddleware limits the size of request bodies
// SECURITY: Prevents denial-of-service attacks through oversized payloads
func BodySizeLimitMiddleware(limits BodyLimits) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip for GET, HEAD, OPTIONS requests (no body)
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		limit := limits.Default
		if mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type")); err == nil && mediaType == binding.MIMEMultipartPOSTForm {
			limit = limits.Multipart
		}

		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()
	}
}
