package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/dwikikusuma/storefront-gateway/pkg/apperr"
	"github.com/gin-gonic/gin"
)

func Recovery(l *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		l.LogAttrs(c.Request.Context(), slog.LevelError, "panic_recovered",
			slog.String("request_id", GetRequestID(c)),
			slog.Any("panic", recovered),
			slog.String("stack", string(debug.Stack())),
		)

		Fail(c, apperr.Wrap(apperr.Internal, "internal error", fmt.Errorf("panic: %v", recovered)))
		writeError(c, l)
	})
}
