package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/pktdms/docgate/internal/auth/domain"
	"go.uber.org/zap"
)

const contextIdentityKey = "identity"

// AccessLog writes one structured line per request.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	access := log.Named("http.access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		access.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// AuthRequired validates the bearer token and stores the caller identity.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			AbortWithError(c, authdomain.ErrInvalidToken)
			return
		}

		identity, err := s.authSvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextIdentityKey, identity)
		c.Next()
	}
}

func identityFrom(c *gin.Context) authdomain.Identity {
	if value, ok := c.Get(contextIdentityKey); ok {
		if identity, ok := value.(authdomain.Identity); ok {
			return identity
		}
	}
	return authdomain.Identity{}
}
