package middleware

import (
	"log/slog"

	"github.com/dwikikusuma/storefront-gateway/pkg/apperr"
	"github.com/gin-gonic/gin"
)

// Fail records err on the context and stops the handler chain. ErrorHandler
// renders it once the chain unwinds.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func ErrorHandler(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		writeError(c, l)
	}
}

func writeError(c *gin.Context, l *slog.Logger) {
	if c.Writer.Written() || len(c.Errors) == 0 {
		return
	}

	err := c.Errors.Last().Err
	status, code, msg := apperr.HTTPStatus(err)
	rid := GetRequestID(c)

	level := slog.LevelWarn
	if status >= 500 {
		level = slog.LevelError
	}
	l.LogAttrs(c.Request.Context(), level, "request_failed",
		slog.String("request_id", rid),
		slog.Int("status", status),
		slog.String("kind", string(apperr.KindOf(err))),
		slog.Any("err", err),
	)

	payload := gin.H{
		"error":      msg,
		"code":       code,
		"kind":       apperr.KindOf(err),
		"request_id": rid,
	}
	if ae, ok := apperr.As(err); ok && len(ae.Fields) > 0 {
		payload["fields"] = ae.Fields
	}
	c.AbortWithStatusJSON(status, payload)
}
