package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# Risk Journal

Single-user decision journal with a risk lifecycle and pattern reports.

## Auth

When auth.token is set in the config, all /api/* routes require a
Bearer token. Health endpoints are always public.

## Entries

- POST /api/v1/entries
- GET /api/v1/entries
- GET /api/v1/entries/:id
- PUT /api/v1/entries/:id
- DELETE /api/v1/entries/:id

## Risks

- POST /api/v1/risks
- POST /api/v1/risks/quick
- GET /api/v1/risks
- GET /api/v1/risks/suggest
- GET /api/v1/risks/:id
- POST /api/v1/risks/:id/adjust
- POST /api/v1/risks/:id/close

## Insights

- GET /api/v1/insights/misalignment
- GET /api/v1/insights/drift
- GET /api/v1/insights/ownership
- GET /api/v1/insights/review/prompts
- GET /api/v1/insights/review/questions
- GET /api/v1/insights/review/due
- GET /api/v1/insights/review/field-usage
- GET /api/v1/insights/review/iterations

## Stats and Settings

- GET /api/v1/stats/daily
- POST /api/v1/stats/daily/rebuild
- GET /api/v1/system-settings
- GET /api/v1/system-settings/:key
- PUT /api/v1/system-settings/:key
- GET /api/v1/system-settings/switches
- GET /api/v1/system-settings/switches/:name
- PUT /api/v1/system-settings/switches/:name

## Misc

- GET /healthz
- GET /readyz
- GET /swagger/index.html
- GET /api/v1/stream (websocket, journal events)
`)
	})
}
