package middleware

import (
	"net/http"
	"time"

	"github.com/codecom/codecom-api/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware opens the submission API to browser forms on the configured
// origins ("*" for any). Browser preflights are answered with a bare 200
// and never reach the handlers.
func CORSMiddleware(server config.ServerConfig) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:              []string{http.MethodPost, http.MethodOptions},
		AllowHeaders:              []string{"Content-Type", "Accept"},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}

	if server.AllowsAllOrigins() {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = server.AllowedOrigins
	}

	return cors.New(cfg)
}
