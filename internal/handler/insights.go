package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riskjournal/internal/insights"
)

type InsightsHandler struct {
	Engine *insights.Engine
}

func (h *InsightsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/insights")
	g.GET("/misalignment", h.misalignment)
	g.GET("/drift", h.drift)
	g.GET("/ownership", h.ownership)
	g.GET("/review/prompts", h.reviewPrompts)
	g.GET("/review/questions", h.reviewQuestions)
	g.GET("/review/due", h.reviewDue)
	g.GET("/review/field-usage", h.fieldUsage)
	g.GET("/review/iterations", h.iterations)
}

// @Summary Misalignment report over the trailing window
// @Tags insights
// @Param days query int false "window size in days"
// @Success 200 {object} handler.apiResponse
// @Router /api/v1/insights/misalignment [get]
func (h *InsightsHandler) misalignment(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "insights engine unavailable", nil)
		return
	}
	rep, err := h.Engine.DetectMisalignment(c.Request.Context(), intQuery(c, "days", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, rep, nil)
}

func (h *InsightsHandler) drift(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "insights engine unavailable", nil)
		return
	}
	rep, err := h.Engine.DetectDrift(c.Request.Context(), intQuery(c, "days", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, rep, nil)
}

func (h *InsightsHandler) ownership(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "insights engine unavailable", nil)
		return
	}
	rep, err := h.Engine.OwnershipCorrelation(c.Request.Context(), intQuery(c, "days", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, rep, nil)
}

func (h *InsightsHandler) reviewPrompts(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "insights engine unavailable", nil)
		return
	}
	prompts, err := h.Engine.ReviewPrompts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, prompts, nil)
}

func (h *InsightsHandler) reviewQuestions(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "insights engine unavailable", nil)
		return
	}
	questions, err := h.Engine.ReviewQuestions(c.Request.Context(), intQuery(c, "days", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, questions, nil)
}

func (h *InsightsHandler) reviewDue(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "insights engine unavailable", nil)
		return
	}
	schedule, err := h.Engine.ReviewDue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, schedule, nil)
}

func (h *InsightsHandler) fieldUsage(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "insights engine unavailable", nil)
		return
	}
	usage, err := h.Engine.FieldUsage(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, usage, nil)
}

func (h *InsightsHandler) iterations(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "insights engine unavailable", nil)
		return
	}
	suggestions, err := h.Engine.SuggestIterations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, suggestions, nil)
}
