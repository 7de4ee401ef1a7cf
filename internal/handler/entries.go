package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"riskjournal/internal/audit"
	"riskjournal/internal/repository"
	"riskjournal/internal/service"
)

type EntryHandler struct {
	Service *service.EntryService
}

func (h *EntryHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/entries")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

type createEntryRequest struct {
	EntryType string         `json:"entry_type"`
	Notes     string         `json:"notes"`
	Tags      []string       `json:"tags"`
	Metadata  map[string]any `json:"metadata"`
	Source    string         `json:"source"`
}

// @Summary Log a journal entry
// @Tags entries
// @Accept json
// @Success 200 {object} handler.apiResponse
// @Router /api/v1/entries [post]
func (h *EntryHandler) create(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "entry service unavailable", nil)
		return
	}
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Service.Create(c.Request.Context(), service.CreateEntryInput{
		EntryType: req.EntryType,
		Notes:     req.Notes,
		Tags:      req.Tags,
		Metadata:  req.Metadata,
		Source:    req.Source,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	audit.LogBestEffort(c, "journal_entry_created", "info", map[string]any{
		"entry_id":   item.ID,
		"entry_type": item.EntryType,
	})
	Ok(c, item, nil)
}

func (h *EntryHandler) list(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "entry service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	var entryType *string
	if v := strings.ToLower(strings.TrimSpace(c.Query("entry_type"))); v != "" {
		entryType = &v
	}
	var status *string
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status = &v
	}
	var tag *string
	if v := strings.TrimSpace(c.Query("tag")); v != "" {
		tag = &v
	}
	params := repository.ListEntriesParams{
		Limit:     limit,
		Offset:    offset,
		EntryType: entryType,
		Status:    status,
		Tag:       tag,
		Since:     timeQuery(c, "since"),
		Until:     timeQuery(c, "until"),
		OrderBy:   strings.TrimSpace(c.Query("order_by")),
		Asc:       boolQueryPtr(c, "asc"),
	}
	items, total, err := h.Service.List(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *EntryHandler) get(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "entry service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, item, nil)
}

type updateEntryRequest struct {
	Notes    *string        `json:"notes"`
	Tags     []string       `json:"tags"`
	Metadata map[string]any `json:"metadata"`
	Source   *string        `json:"source"`
}

func (h *EntryHandler) update(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "entry service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Service.Update(c.Request.Context(), id, service.UpdateEntryInput{
		Notes:    req.Notes,
		Tags:     req.Tags,
		Metadata: req.Metadata,
		Source:   req.Source,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	audit.LogBestEffort(c, "journal_entry_updated", "info", map[string]any{
		"entry_id": id,
	})
	Ok(c, item, nil)
}

func (h *EntryHandler) delete(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "entry service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	audit.LogBestEffort(c, "journal_entry_deleted", "info", map[string]any{
		"entry_id": id,
	})
	Ok(c, gin.H{"deleted": true, "entry_id": id}, nil)
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQueryPtr(c *gin.Context, key string) *bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return &b
		}
	}
	return nil
}

func timeQuery(c *gin.Context, key string) *time.Time {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			t := ts.UTC()
			return &t
		}
	}
	return nil
}

func paginationMeta(limit, offset int, total int64) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	hasNext := int64(offset+limit) < total
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": hasNext,
	}
}
