// Package middleware implements the request lifecycle pipeline: correlation,
// security scanning, timing, CORS, body limits, panic recovery and error
// normalization. Stages run in registration order inward and in reverse on
// the way out.
package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tundra/internal/constants"
	"tundra/internal/logger"
	"tundra/pkg/envelope"
	apperrors "tundra/pkg/errors"
	"tundra/pkg/logging"
	"tundra/pkg/metrics"
)

// RequestID assigns the per-request correlation id. It must be the outermost
// stage so every later log line carries the id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(logging.RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithClientIP(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.\./`),          // path traversal
	regexp.MustCompile(`(?i)<script`),    // XSS attempts
	regexp.MustCompile(`(?i)union.*select`),
	regexp.MustCompile(`(?i)exec\s*\(`),  // command injection
}

// SecurityScan flags requests matching known attack signatures. Detection
// only: the request always proceeds.
func SecurityScan(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		url := strings.ToLower(c.Request.URL.RequestURI())
		userAgent := strings.ToLower(c.Request.UserAgent())

		for _, pattern := range suspiciousPatterns {
			if pattern.MatchString(url) || pattern.MatchString(userAgent) {
				log.WarnwCtx(c.Request.Context(), "Suspicious request detected",
					"method", c.Request.Method,
					"url", c.Request.URL.RequestURI(),
					"user_agent", c.Request.UserAgent(),
					"pattern", pattern.String(),
				)
				break
			}
		}

		c.Next()
	}
}

// timingWriter injects X-Response-Time just before the first byte goes out;
// headers cannot be added once the body is written.
type timingWriter struct {
	gin.ResponseWriter
	start       time.Time
	headerAdded bool
}

func (w *timingWriter) WriteHeader(code int) {
	w.addTimingHeader()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timingWriter) Write(b []byte) (int, error) {
	w.addTimingHeader()
	return w.ResponseWriter.Write(b)
}

func (w *timingWriter) WriteString(s string) (int, error) {
	w.addTimingHeader()
	return w.ResponseWriter.WriteString(s)
}

func (w *timingWriter) addTimingHeader() {
	if !w.headerAdded {
		w.Header().Set("X-Response-Time", fmt.Sprintf("%dms", time.Since(w.start).Milliseconds()))
		w.headerAdded = true
	}
}

// ResponseTime wraps the writer for the timing header, emits the per-request
// performance log and records the request metrics.
func ResponseTime(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Writer = &timingWriter{ResponseWriter: c.Writer, start: start}

		c.Next()

		elapsed := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		code := c.Writer.Status()
		if envelopeCode, ok := c.Get(envelope.CodeContextKey); ok {
			if n, ok := envelopeCode.(int); ok {
				code = n
			}
		}

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, fmt.Sprint(code)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(float64(elapsed.Milliseconds()))

		logData := []interface{}{
			"method", c.Request.Method,
			"url", c.Request.URL.RequestURI(),
			"code", code,
			"response_time_ms", elapsed.Milliseconds(),
		}

		ctx := c.Request.Context()
		switch {
		case elapsed > constants.VerySlowRequestThreshold:
			log.WarnwCtx(ctx, "Very slow response detected", logData...)
		case elapsed > 2*constants.SlowRequestThreshold:
			log.WarnwCtx(ctx, "Slow response detected", logData...)
		case elapsed > constants.SlowRequestThreshold:
			log.WarnwCtx(ctx, "Moderate response time", logData...)
		default:
			log.InfowCtx(ctx, "Response time recorded", logData...)
		}
	}
}

type CORSConfig struct {
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
}

func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigin:  "*",
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
	}
}

// CORS applies a permissive-by-default policy and short-circuits preflight
// requests.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	if cfg.AllowOrigin == "" {
		cfg.AllowOrigin = "*"
	}
	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", cfg.AllowOrigin)
		if allowMethods != "" {
			c.Header("Access-Control-Allow-Methods", allowMethods)
		}
		if allowHeaders != "" {
			c.Header("Access-Control-Allow-Headers", allowHeaders)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// BodyLimit caps request body size. Oversized bodies fail during binding and
// surface as validation failures.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = constants.DefaultBodyLimitBytes
	}
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// Recovery converts panics, including non-error panic values, into internal
// failures for the error normalizer. It sits just outside the route handlers.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("%v", r)
				}
				log.ErrorwCtx(c.Request.Context(), "Panic recovered",
					"error", err,
					"method", c.Request.Method,
					"url", c.Request.URL.RequestURI(),
					"stack", string(debug.Stack()),
				)
				c.Error(apperrors.ErrInternal.WithCause(err)) //nolint:errcheck
				c.Abort()
			}
		}()
		c.Next()
	}
}

// ErrorHandler is the single place failures become envelopes. Anything a
// deeper stage attached to the context is classified, logged, optionally
// redacted, and written at transport status 200. notify receives the failure
// out of band and must not block.
func ErrorHandler(log logger.Logger, production bool, notify func(error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		appErr := apperrors.From(err)
		status := apperrors.LogStatus(appErr)

		fields := []interface{}{
			"method", c.Request.Method,
			"url", c.Request.URL.RequestURI(),
			"code", appErr.Code,
			"status", status,
		}
		if appErr.Cause != nil {
			fields = append(fields, "cause", appErr.Cause.Error())
		}

		ctx := c.Request.Context()
		if status >= 500 {
			metrics.InternalErrorsTotal.Inc()
			log.ErrorwCtx(ctx, "Server error occurred", fields...)
		} else {
			log.WarnwCtx(ctx, "Client error occurred", fields...)
		}

		if notify != nil {
			go notify(appErr)
		}

		if c.Writer.Written() {
			return
		}

		envelope.Write(c, apperrors.ToResponse(appErr, production))
	}
}

// NotFound handles unrouted paths: still an envelope, still transport 200.
func NotFound(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log.WarnwCtx(c.Request.Context(), "Route not found",
			"method", c.Request.Method,
			"url", c.Request.URL.RequestURI(),
			"user_agent", c.Request.UserAgent(),
		)
		envelope.Write(c, envelope.Error(envelope.CodeNotFound, "Route not found"))
	}
}

func MethodNotAllowed(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log.WarnwCtx(c.Request.Context(), "Method not allowed",
			"method", c.Request.Method,
			"url", c.Request.URL.RequestURI(),
		)
		envelope.Write(c, envelope.Error(envelope.CodeMethodNotAllowed, "Method not allowed"))
	}
}
