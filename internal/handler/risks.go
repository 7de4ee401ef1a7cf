package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"riskjournal/internal/audit"
	"riskjournal/internal/currency"
	"riskjournal/internal/models"
	"riskjournal/internal/risk"
	"riskjournal/internal/tagger"
)

type RiskHandler struct {
	Manager *risk.Manager
	Tagger  *tagger.Tagger
}

func (h *RiskHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/risks")
	g.POST("", h.open)
	g.POST("/quick", h.quickOpen)
	g.GET("", h.list)
	g.GET("/suggest", h.suggest)
	g.GET("/:id", h.get)
	g.POST("/:id/adjust", h.adjust)
	g.POST("/:id/close", h.close)
}

// riskView is the API shape of a risk entry: the stored row plus display
// strings derived from its metadata.
type riskView struct {
	Entry   models.Entry `json:"entry"`
	Status  string       `json:"status"`
	Cost    string       `json:"cost"`
	Outcome string       `json:"outcome,omitempty"`
	ROIPct  *float64     `json:"roi_pct,omitempty"`
}

func newRiskView(v risk.View) riskView {
	out := riskView{
		Entry:  v.Entry,
		Status: v.Meta.Status,
		Cost:   currency.Format(v.Meta.Cost, v.Meta.Currency),
	}
	if outcome, ok := v.Meta.Outcome(); ok {
		out.Outcome = currency.Format(outcome, v.Meta.Currency)
		if roi, ok := v.Meta.ROIPct(); ok {
			r := roi
			out.ROIPct = &r
		}
	}
	return out
}

type openRiskRequest struct {
	Notes    string         `json:"notes"`
	Tags     []string       `json:"tags"`
	Source   string         `json:"source"`
	Metadata map[string]any `json:"metadata"`
}

// @Summary Open a risk entry
// @Tags risks
// @Accept json
// @Success 200 {object} handler.apiResponse
// @Router /api/v1/risks [post]
func (h *RiskHandler) open(c *gin.Context) {
	if h.Manager == nil {
		Error(c, http.StatusInternalServerError, "risk manager unavailable", nil)
		return
	}
	var req openRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	view, err := h.Manager.Open(c.Request.Context(), risk.OpenInput{
		Notes:    req.Notes,
		Tags:     req.Tags,
		Source:   req.Source,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	audit.LogBestEffort(c, "risk_opened", "info", map[string]any{
		"entry_id": view.Entry.ID,
		"cost":     view.Meta.Cost.String(),
		"currency": view.Meta.Currency,
	})
	Ok(c, newRiskView(*view), nil)
}

type quickRiskRequest struct {
	Notes    string          `json:"notes"`
	Cost     decimal.Decimal `json:"cost"`
	Currency string          `json:"currency"`
}

// @Summary Open a risk with just notes and cost
// @Tags risks
// @Accept json
// @Success 200 {object} handler.apiResponse
// @Router /api/v1/risks/quick [post]
func (h *RiskHandler) quickOpen(c *gin.Context) {
	if h.Manager == nil {
		Error(c, http.StatusInternalServerError, "risk manager unavailable", nil)
		return
	}
	var req quickRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	view, err := h.Manager.QuickOpen(c.Request.Context(), risk.QuickOpenInput{
		Notes:    req.Notes,
		Cost:     req.Cost,
		Currency: req.Currency,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	audit.LogBestEffort(c, "risk_opened", "info", map[string]any{
		"entry_id": view.Entry.ID,
		"cost":     view.Meta.Cost.String(),
		"currency": view.Meta.Currency,
		"quick":    true,
	})
	Ok(c, newRiskView(*view), nil)
}

func (h *RiskHandler) list(c *gin.Context) {
	if h.Manager == nil {
		Error(c, http.StatusInternalServerError, "risk manager unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	views, err := h.Manager.List(c.Request.Context(), risk.ListParams{
		Status:   strings.TrimSpace(c.Query("status")),
		Category: strings.TrimSpace(c.Query("category")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]riskView, 0, len(views))
	for _, v := range views {
		out = append(out, newRiskView(v))
	}
	Ok(c, out, map[string]any{
		"limit":  limit,
		"offset": offset,
		"count":  len(out),
	})
}

func (h *RiskHandler) get(c *gin.Context) {
	if h.Manager == nil {
		Error(c, http.StatusInternalServerError, "risk manager unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	view, err := h.Manager.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, newRiskView(*view), nil)
}

type adjustRiskRequest struct {
	Changes map[string]any   `json:"changes"`
	Reward  *decimal.Decimal `json:"reward"`
	Reason  string           `json:"reason"`
}

func (h *RiskHandler) adjust(c *gin.Context) {
	if h.Manager == nil {
		Error(c, http.StatusInternalServerError, "risk manager unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req adjustRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	view, err := h.Manager.Adjust(c.Request.Context(), id, risk.AdjustInput{
		Changes: req.Changes,
		Reward:  req.Reward,
		Reason:  req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	audit.LogBestEffort(c, "risk_adjusted", "info", map[string]any{
		"entry_id": id,
	})
	Ok(c, newRiskView(*view), nil)
}

type closeRiskRequest struct {
	RealizedValue *decimal.Decimal `json:"realized_value"`
	Reason        string           `json:"reason"`
}

func (h *RiskHandler) close(c *gin.Context) {
	if h.Manager == nil {
		Error(c, http.StatusInternalServerError, "risk manager unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req closeRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	view, err := h.Manager.Close(c.Request.Context(), id, risk.CloseInput{
		RealizedValue: req.RealizedValue,
		Reason:        req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	details := map[string]any{
		"entry_id": id,
	}
	if outcome, ok := view.Meta.Outcome(); ok {
		details["outcome"] = outcome.String()
	}
	audit.LogBestEffort(c, "risk_closed", "info", details)
	Ok(c, newRiskView(*view), nil)
}

// suggest previews what the tagger would infer from notes before anything is
// saved.
func (h *RiskHandler) suggest(c *gin.Context) {
	if h.Tagger == nil {
		Error(c, http.StatusInternalServerError, "tagger unavailable", nil)
		return
	}
	notes := strings.TrimSpace(c.Query("notes"))
	if notes == "" {
		Error(c, http.StatusBadRequest, "notes query parameter required", nil)
		return
	}
	entryType, typeConfidence := h.Tagger.SuggestEntryType(notes)
	category, categoryConfidence := h.Tagger.SuggestRiskCategory(notes)
	Ok(c, gin.H{
		"entry_type":          entryType,
		"type_confidence":     typeConfidence,
		"category":            category,
		"category_confidence": categoryConfidence,
		"hashtags":            tagger.ExtractHashtags(notes),
	}, nil)
}

func uint64Param(c *gin.Context, key string) uint64 {
	val := strings.TrimSpace(c.Param(key))
	if val == "" {
		return 0
	}
	var out uint64
	for i := 0; i < len(val); i++ {
		ch := val[i]
		if ch < '0' || ch > '9' {
			return 0
		}
		out = out*10 + uint64(ch-'0')
	}
	return out
}
