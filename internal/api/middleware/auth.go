package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swivel-scan/swivel/internal/logger"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	APIKeys []string
}

// validateAPIKey checks a presented key against the configured set.
func validateAPIKey(apiKey string, cfg AuthConfig) error {
	if len(cfg.APIKeys) == 0 {
		return errors.New("no API keys configured")
	}

	for _, key := range cfg.APIKeys {
		if key != "" && key == apiKey {
			return nil
		}
	}

	return errors.New("invalid API key")
}

// APIKeyAuth returns a gin middleware that requires an
// "Authorization: ApiKey <key>" header. Mutating endpoints sit behind it;
// read endpoints stay open.
func APIKeyAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		var err error
		parts := strings.SplitN(authHeader, " ", 2)
		switch {
		case authHeader == "":
			err = errors.New("missing Authorization header")
		case len(parts) != 2 || !strings.EqualFold(parts[0], "apikey"):
			err = errors.New("invalid Authorization header format")
		default:
			err = validateAPIKey(parts[1], cfg)
		}

		if err != nil {
			logger.Warn("Authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Authentication failed",
					"details": err.Error(),
				},
			})
			return
		}

		c.Next()
	}
}
