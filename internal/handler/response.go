package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riskjournal/internal/models"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// respondError translates the journal error taxonomy to HTTP: bad input is
// 400, missing ids are 404, anything else is 500.
func respondError(c *gin.Context, err error) {
	switch {
	case models.IsValidation(err):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case models.IsNotFound(err):
		Error(c, http.StatusNotFound, err.Error(), nil)
	default:
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	}
}
