package audit

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

func InjectClientMiddleware(c *Client) gin.HandlerFunc {
	return func(g *gin.Context) {
		if c != nil && g.Request != nil {
			g.Request = g.Request.WithContext(WithClient(g.Request.Context(), c))
		}
		g.Next()
	}
}

func ClientFromGin(g *gin.Context) *Client {
	if g == nil || g.Request == nil {
		return nil
	}
	return ClientFromContext(g.Request.Context())
}

// LogBestEffort sends an audit event from a handler without holding up the
// response for more than two seconds. Failures are dropped.
func LogBestEffort(g *gin.Context, action, level string, details map[string]any) {
	c := ClientFromGin(g)
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.Send(ctx, Event{Action: action, Level: level, Details: details})
}
