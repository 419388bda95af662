package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lab_inventory/app"
	"lab_inventory/inventory"
	"lab_inventory/models"
)

type FeedbackController struct{ *Srv }

func NewFeedbackController(s *Srv) *FeedbackController { return &FeedbackController{Srv: s} }

// POST /api/suggestions  {type, title, description}
func (fc *FeedbackController) SubmitSuggestion(c *gin.Context) {
	var in struct {
		Type        models.SuggestionType `json:"type"`
		Title       string                `json:"title"`
		Description string                `json:"description"`
	}
	if !bindJSON(c, &in) {
		return
	}
	s, err := fc.Engine.SubmitSuggestion(c.Request.Context(), inventory.SuggestionInput{
		UserID:      currentUserID(c),
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// POST /api/suggestions/:id/approve-item  {category, totalQuantity}
func (fc *FeedbackController) ApproveItemSuggestion(c *gin.Context) {
	var in struct {
		Category      string `json:"category"`
		TotalQuantity int    `json:"totalQuantity"`
	}
	if !bindJSON(c, &in) {
		return
	}
	res, err := fc.Engine.ApproveItemSuggestion(c.Request.Context(), c.Param("id"), in.Category, in.TotalQuantity)
	if err != nil {
		respondError(c, err)
		return
	}
	fc.invalidateReport(c)
	c.JSON(http.StatusOK, res)
}

// POST /api/suggestions/:id/approve-feature
func (fc *FeedbackController) ApproveFeatureSuggestion(c *gin.Context) {
	s, err := fc.Engine.ApproveFeatureSuggestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"updatedSuggestion": s})
}

// POST /api/suggestions/:id/deny  {reason}
func (fc *FeedbackController) DenySuggestion(c *gin.Context) {
	var in struct {
		Reason string `json:"reason"`
	}
	if !bindOptionalJSON(c, &in) {
		return
	}
	res, err := fc.Engine.DenySuggestion(c.Request.Context(), c.Param("id"), currentUserID(c), in.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/suggestions/:id/comments  {text}
func (fc *FeedbackController) AddComment(c *gin.Context) {
	var in struct {
		Text string `json:"text"`
	}
	if !bindJSON(c, &in) {
		return
	}
	cm, err := fc.Engine.AddComment(c.Request.Context(), currentUserID(c), c.Param("id"), in.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}
