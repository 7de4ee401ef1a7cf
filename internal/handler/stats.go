package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riskjournal/internal/audit"
	"riskjournal/internal/repository"
)

type StatsHandler struct {
	Repo repository.Repository
}

func (h *StatsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/stats")
	g.GET("/daily", h.listDaily)
	g.POST("/daily/rebuild", h.rebuild)
}

func (h *StatsHandler) listDaily(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 90)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListJournalDailyStats(c.Request.Context(), repository.ListDailyStatsParams{
		Limit:  limit,
		Offset: offset,
		Since:  timeQuery(c, "since"),
		Until:  timeQuery(c, "until"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, items, map[string]any{
		"limit":  limit,
		"offset": offset,
		"count":  len(items),
	})
}

// rebuild recomputes the daily rollups from the entries table, bounded by
// optional since/until query parameters.
func (h *StatsHandler) rebuild(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	since := timeQuery(c, "since")
	until := timeQuery(c, "until")
	updated, err := h.Repo.RebuildJournalDailyStats(c.Request.Context(), since, until)
	if err != nil {
		respondError(c, err)
		return
	}
	audit.LogBestEffort(c, "daily_stats_rebuilt", "info", map[string]any{
		"days_updated": updated,
	})
	Ok(c, gin.H{"days_updated": updated}, nil)
}
