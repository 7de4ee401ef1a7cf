package audit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WriteAuditMiddleware mirrors every mutating /api request to the audit
// webhook after the handler has run. A nil client disables it.
func WriteAuditMiddleware(client *Client, logger *zap.Logger) gin.HandlerFunc {
	if client == nil {
		return func(g *gin.Context) { g.Next() }
	}
	return func(g *gin.Context) {
		start := time.Now()
		g.Next()

		path := g.Request.URL.Path
		method := strings.ToUpper(g.Request.Method)
		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}

		status := g.Writer.Status()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := client.Send(ctx, Event{
			Action: "journal_http_write",
			Level:  levelFromStatus(status),
			Details: map[string]any{
				"method":   method,
				"path":     path,
				"status":   status,
				"duration": time.Since(start).String(),
			},
		})
		if err != nil && logger != nil {
			logger.Debug("audit webhook send failed", zap.Error(err))
		}
	}
}

func levelFromStatus(status int) string {
	if status >= 500 {
		return "error"
	}
	if status >= 400 {
		return "warn"
	}
	return "info"
}
