package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"tundra/internal/logger"
	"tundra/internal/token"
	"tundra/pkg/envelope"
	"tundra/pkg/logging"
	"tundra/pkg/metrics"
)

const identityKey = "auth_identity"

// TokenVerifier is the slice of the token service the auth stages need.
type TokenVerifier interface {
	Verify(tokenString string) *token.Claims
}

// RequireAuth validates the bearer token and short-circuits on failure: a
// missing or malformed header yields code 401, a rejected token code 604.
// The inner handler never runs on either path.
func RequireAuth(tokens TokenVerifier, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			headerState := "missing"
			if authHeader != "" {
				headerState = "present but invalid format"
			}
			log.WarnwCtx(c.Request.Context(), "Missing or invalid authorization header",
				"method", c.Request.Method,
				"url", c.Request.URL.RequestURI(),
				"auth_header", headerState,
			)
			metrics.AuthFailuresTotal.WithLabelValues("missing_header").Inc()

			c.Abort()
			envelope.Write(c, envelope.Error(envelope.CodeUnauthorized, "Authorization token required"))
			return
		}

		claims := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if claims == nil {
			log.WarnwCtx(c.Request.Context(), "Invalid or expired token",
				"method", c.Request.Method,
				"url", c.Request.URL.RequestURI(),
			)
			metrics.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()

			c.Abort()
			envelope.Write(c, envelope.Error(envelope.CodeInvalidToken, "Invalid or expired token"))
			return
		}

		setIdentity(c, claims)
		log.InfowCtx(c.Request.Context(), "User authenticated successfully",
			"user_id", claims.UserID,
			"device_id", claims.DeviceID,
			"app_id", claims.AppID,
		)

		c.Next()
	}
}

// OptionalAuth runs the same token inspection but silently proceeds without
// an identity on any failure. For endpoints that personalize but do not
// require login.
func OptionalAuth(tokens TokenVerifier, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			if claims := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer ")); claims != nil {
				setIdentity(c, claims)
				log.InfowCtx(c.Request.Context(), "Optional auth: user authenticated",
					"user_id", claims.UserID,
					"device_id", claims.DeviceID,
				)
			}
		}

		c.Next()
	}
}

func setIdentity(c *gin.Context, claims *token.Claims) {
	c.Set(identityKey, claims)
	c.Request = c.Request.WithContext(logging.WithUserID(c.Request.Context(), claims.UserID))
}

// Identity returns the authenticated claims or nil.
func Identity(c *gin.Context) *token.Claims {
	if v, ok := c.Get(identityKey); ok {
		if claims, ok := v.(*token.Claims); ok {
			return claims
		}
	}
	return nil
}
