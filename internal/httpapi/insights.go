package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusattend/internal/insight"
)

// ---------- AI insights ----------

func (h *Handler) CourseSummary(c *gin.Context) {
	var in insight.CourseSummaryInput
	if err := bindJSON(c, &in); err != nil {
		writeServiceError(c, err)
		return
	}
	out, err := h.insights.CourseSummary(c.Request.Context(), in)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) StudentSummary(c *gin.Context) {
	var in insight.StudentSummaryInput
	if err := bindJSON(c, &in); err != nil {
		writeServiceError(c, err)
		return
	}
	out, err := h.insights.StudentSummary(c.Request.Context(), in)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Goal(c *gin.Context) {
	var in insight.GoalInput
	if err := bindJSON(c, &in); err != nil {
		writeServiceError(c, err)
		return
	}
	text, err := h.insights.Goal(c.Request.Context(), in)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal": text})
}

func (h *Handler) Prediction(c *gin.Context) {
	var in insight.PredictionInput
	if err := bindJSON(c, &in); err != nil {
		writeServiceError(c, err)
		return
	}
	text, err := h.insights.Prediction(c.Request.Context(), in)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prediction": text})
}

func (h *Handler) Chat(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	if err := bindJSON(c, &req); err != nil {
		writeServiceError(c, err)
		return
	}
	text, err := h.insights.Chat(c.Request.Context(), req.Prompt)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": text})
}
