package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "stockchart/internal/errors"
	"stockchart/internal/logger"
)

const (
	requestIDKey = "requestID"
	loggerKey    = "logger"
	maxBodyBytes = 1 << 20
)

// requestLogging logs each request with a generated request id.
func requestLogging(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := uuid.New().String()
		c.Set(requestIDKey, requestID)
		c.Set(loggerKey, log.With("request_id", requestID))
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		log.Infow("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// loggerFrom returns the request-scoped logger.
func loggerFrom(c *gin.Context) *zap.SugaredLogger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*zap.SugaredLogger); ok {
			return l
		}
	}
	return logger.Get()
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// limitBody caps request body size.
func limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && c.Request.Method != http.MethodGet {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		}
		c.Next()
	}
}

// recovery turns a handler panic into a generic 500.
func recovery(log *zap.SugaredLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		log.Errorw("handler panic",
			"panic", rec,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		c.AbortWithStatusJSON(apperrors.ErrInternalServer.StatusCode, errorBody(apperrors.ErrInternalServer))
	})
}
