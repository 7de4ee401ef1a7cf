package audit

import (
	"context"
	"time"
)

type ctxKey int

const clientCtxKey ctxKey = 1

// WithClient rides the audit client on a context so background services can
// report without holding a reference themselves.
func WithClient(ctx context.Context, c *Client) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, clientCtxKey, c)
}

func ClientFromContext(ctx context.Context) *Client {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(clientCtxKey).(*Client)
	return c
}

// LogBestEffortCtx is LogBestEffort for code that runs outside a request,
// like the cron services. No client on the context means no event.
func LogBestEffortCtx(ctx context.Context, action, level string, details map[string]any) {
	c := ClientFromContext(ctx)
	if c == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.Send(sendCtx, Event{Action: action, Level: level, Details: details})
}
