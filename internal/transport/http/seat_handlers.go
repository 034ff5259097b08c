package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/fanout"
	"github.com/sotalab/labdesk-server/internal/store"
)

// SeatHandlers provides HTTP handlers for the lab seat map.
type SeatHandlers struct {
	store  store.Store
	fanout *fanout.Seat
	log    *zerolog.Logger
}

// NewSeatHandlers creates a new seat handlers instance.
func NewSeatHandlers(st store.Store, f *fanout.Seat, logger *zerolog.Logger) *SeatHandlers {
	return &SeatHandlers{
		store:  st,
		fanout: f,
		log:    logger,
	}
}

// SeatUpdate represents one seat in the bulk update body.
type SeatUpdate struct {
	ID     int64  `json:"id" binding:"required"`
	Status string `json:"status" binding:"required"`
}

// SeatResponse represents one seat in API responses.
type SeatResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func seatResponses(seats []*store.Seat) []SeatResponse {
	out := make([]SeatResponse, 0, len(seats))
	for _, s := range seats {
		out = append(out, SeatResponse{ID: s.ID, Status: s.Status})
	}
	return out
}

// ListSeats returns the current seat map. Clients attaching to the live
// topic after a broadcast fetch the state here; there is no replay.
// GET /seats
func (h *SeatHandlers) ListSeats(c *gin.Context) {
	seats, err := h.store.ListSeats(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list seats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, seatResponses(seats))
}

// UpsertSeats applies a batch of seat changes, then broadcasts the full
// updated set verbatim on the seat topic.
// POST /seats
func (h *SeatHandlers) UpsertSeats(c *gin.Context) {
	var req []SeatUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid seats request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	updates := make([]*store.Seat, 0, len(req))
	for _, s := range req {
		updates = append(updates, &store.Seat{ID: s.ID, Status: s.Status})
	}

	seats, err := h.store.UpsertSeats(c.Request.Context(), updates)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to upsert seats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.fanout.SeatsUpdated(seats)
	c.JSON(http.StatusOK, seatResponses(seats))
}
