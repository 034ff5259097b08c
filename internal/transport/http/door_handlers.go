package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/fanout"
	"github.com/sotalab/labdesk-server/internal/store"
)

// DoorHandlers provides HTTP handlers for the lab door status. The status
// is a single row; posting broadcasts first (the door sign updates
// immediately) and persists the value only when it actually changed.
type DoorHandlers struct {
	store  store.Store
	fanout *fanout.Door
	log    *zerolog.Logger
}

// NewDoorHandlers creates a new door handlers instance.
func NewDoorHandlers(st store.Store, f *fanout.Door, logger *zerolog.Logger) *DoorHandlers {
	return &DoorHandlers{
		store:  st,
		fanout: f,
		log:    logger,
	}
}

// DoorStatusRequest represents the post door status body.
type DoorStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// GetStatus returns the current door status, "unknown" before the first post.
// GET /door_status
func (h *DoorHandlers) GetStatus(c *gin.Context) {
	status, err := h.store.GetDoorStatus(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get door status")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// PostStatus broadcasts the raw status string and upserts the stored value.
// POST /door_status
func (h *DoorHandlers) PostStatus(c *gin.Context) {
	var req DoorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid door status request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	h.fanout.StatusPosted(req.Status)

	current, err := h.store.GetDoorStatus(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get door status")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if current == req.Status {
		c.JSON(http.StatusOK, gin.H{"message": "status sent"})
		return
	}

	if err := h.store.SetDoorStatus(c.Request.Context(), req.Status); err != nil {
		h.log.Error().Err(err).Msg("failed to set door status")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "status sent and updated"})
}
