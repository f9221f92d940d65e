package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/propertindo/pemilu-api/internal/logger"
	"github.com/propertindo/pemilu-api/internal/middleware"
	"github.com/propertindo/pemilu-api/internal/response"
	"github.com/propertindo/pemilu-api/internal/scheduler"
	"github.com/propertindo/pemilu-api/internal/validation"
)

// TurnHandler exposes the turn scheduler over HTTP.
type TurnHandler struct {
	driver *scheduler.Driver
	log    *log.Logger
}

// NewTurnHandler creates a new turn handler
func NewTurnHandler(driver *scheduler.Driver) *TurnHandler {
	return &TurnHandler{
		driver: driver,
		log:    logger.Handler("turn"),
	}
}

// CastSelectionRequest is the payload for claiming a listing.
type CastSelectionRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
}

// RegisterParticipant handles POST /api/events/:event_id/register
func (h *TurnHandler) RegisterParticipant(c *gin.Context) {
	eventID := c.Param("event_id")
	if err := validation.ValidateUUID(eventID, "event_id"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	agentID, ok := middleware.AgentID(c)
	if !ok {
		response.UnauthorizedError(c, "missing agent identity")
		return
	}

	seat, created, err := h.driver.RegisterParticipant(eventID, agentID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	status := http.StatusOK
	message := "already registered"
	if created {
		status = http.StatusCreated
		message = "registered"
	}

	response.SuccessResponse(c, status, message, seat)
}

// GetRegistration handles GET /api/events/:event_id/registration
func (h *TurnHandler) GetRegistration(c *gin.Context) {
	eventID := c.Param("event_id")
	if err := validation.ValidateUUID(eventID, "event_id"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	agentID, ok := middleware.AgentID(c)
	if !ok {
		response.UnauthorizedError(c, "missing agent identity")
		return
	}

	seat, err := h.driver.GetRegistration(eventID, agentID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", seat)
}

// StartEvent handles POST /api/events/:event_id/start
func (h *TurnHandler) StartEvent(c *gin.Context) {
	eventID := c.Param("event_id")
	if err := validation.ValidateUUID(eventID, "event_id"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	snapshot, err := h.driver.StartEvent(eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "event started", snapshot)
}

// AdvanceTurn handles POST /api/events/:event_id/advance
func (h *TurnHandler) AdvanceTurn(c *gin.Context) {
	eventID := c.Param("event_id")
	if err := validation.ValidateUUID(eventID, "event_id"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	snapshot, err := h.driver.AdvanceTurn(eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "turn advanced", snapshot)
}

// CastSelection handles POST /api/events/:event_id/selections
func (h *TurnHandler) CastSelection(c *gin.Context) {
	eventID := c.Param("event_id")
	if err := validation.ValidateUUID(eventID, "event_id"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	agentID, ok := middleware.AgentID(c)
	if !ok {
		response.UnauthorizedError(c, "missing agent identity")
		return
	}

	var req CastSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "invalid request payload")
		return
	}

	if err := validation.ValidateUUID(req.ListingID, "listing_id"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	sel, err := h.driver.CastSelection(eventID, agentID, req.ListingID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "selection recorded", sel)
}

// ListSelections handles GET /api/events/:event_id/selections
func (h *TurnHandler) ListSelections(c *gin.Context) {
	eventID := c.Param("event_id")
	if err := validation.ValidateUUID(eventID, "event_id"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	selections, err := h.driver.ListSelections(eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", selections)
}

// GetStatus handles GET /api/events/:event_id/status
func (h *TurnHandler) GetStatus(c *gin.Context) {
	eventID := c.Param("event_id")
	if err := validation.ValidateUUID(eventID, "event_id"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	snapshot, err := h.driver.GetStatus(eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", snapshot)
}

// RunTick handles POST /api/internal/tick, the entry point for the external
// periodic trigger. An optional event_id query limits the sweep.
func (h *TurnHandler) RunTick(c *gin.Context) {
	if eventID := c.Query("event_id"); eventID != "" {
		if err := validation.ValidateUUID(eventID, "event_id"); err != nil {
			response.BadRequestError(c, err.Error())
			return
		}

		transitioned, err := h.driver.RunTick(eventID)
		if err != nil {
			response.FromError(c, err)
			return
		}

		response.SuccessResponse(c, http.StatusOK, "tick completed", gin.H{"transitions": boolToCount(transitioned)})
		return
	}

	committed, err := h.driver.RunTickAll()
	if err != nil {
		h.log.Error("tick sweep failed", "error", err)
		response.InternalServerError(c, "tick sweep failed")
		return
	}

	response.SuccessResponse(c, http.StatusOK, "tick completed", gin.H{"transitions": committed})
}

func boolToCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
