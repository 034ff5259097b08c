package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/fanout"
	"github.com/sotalab/labdesk-server/internal/store"
)

// MeetingHandlers provides HTTP handlers for meeting records and their
// collaboratively edited main text.
type MeetingHandlers struct {
	store  store.Store
	fanout *fanout.Meeting
	log    *zerolog.Logger
}

// NewMeetingHandlers creates a new meeting handlers instance.
func NewMeetingHandlers(st store.Store, f *fanout.Meeting, logger *zerolog.Logger) *MeetingHandlers {
	return &MeetingHandlers{
		store:  st,
		fanout: f,
		log:    logger,
	}
}

// CreateMeetingRequest represents the create meeting body.
type CreateMeetingRequest struct {
	Title    string `json:"title" binding:"required"`
	Team     string `json:"team"`
	MainText string `json:"main_text"`
	UserID   string `json:"user_id" binding:"required"`
	Kinds    string `json:"kinds"`
}

// UpdateMeetingRequest represents the update metadata body.
type UpdateMeetingRequest struct {
	Title string `json:"title"`
	Team  string `json:"team"`
	Kinds string `json:"kinds"`
}

// UpdateMainTextRequest represents the replacement main text body.
type UpdateMainTextRequest struct {
	MainText string `json:"main_text"`
}

// MeetingResponse represents a meeting in API responses.
type MeetingResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	Team      string `json:"team"`
	MainText  string `json:"main_text"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Kinds     string `json:"kinds"`
}

func meetingResponse(m *store.Meeting) MeetingResponse {
	return MeetingResponse{
		ID:        m.ID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
		Team:      m.Team,
		MainText:  m.MainText,
		UserID:    m.UserID,
		UserName:  m.UserName,
		Kinds:     m.Kinds,
	}
}

// ListMeetings lists every meeting record.
// GET /meetings
func (h *MeetingHandlers) ListMeetings(c *gin.Context) {
	meetings, err := h.store.ListMeetings(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list meetings")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	out := make([]MeetingResponse, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, meetingResponse(m))
	}
	c.JSON(http.StatusOK, out)
}

// GetMeeting fetches one meeting record.
// GET /meetings/:id
func (h *MeetingHandlers) GetMeeting(c *gin.Context) {
	meeting, ok := h.meetingByID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, meetingResponse(meeting))
}

// CreateMeeting inserts a meeting record.
// POST /meetings
func (h *MeetingHandlers) CreateMeeting(c *gin.Context) {
	var req CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create meeting request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	meeting, err := h.store.CreateMeeting(c.Request.Context(), &store.Meeting{
		Title:     req.Title,
		CreatedAt: time.Now().UTC(),
		Team:      req.Team,
		MainText:  req.MainText,
		UserID:    req.UserID,
		Kinds:     req.Kinds,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create meeting")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, meetingResponse(meeting))
}

// UpdateMeeting updates a meeting's metadata.
// PATCH /meetings/:id
func (h *MeetingHandlers) UpdateMeeting(c *gin.Context) {
	meeting, ok := h.meetingByID(c)
	if !ok {
		return
	}

	var req UpdateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update meeting request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Title != "" {
		meeting.Title = req.Title
	}
	if req.Team != "" {
		meeting.Team = req.Team
	}
	if req.Kinds != "" {
		meeting.Kinds = req.Kinds
	}

	updated, err := h.store.UpdateMeeting(c.Request.Context(), meeting)
	if err != nil {
		h.log.Error().Err(err).Int64("meeting_id", meeting.ID).Msg("failed to update meeting")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, meetingResponse(updated))
}

// UpdateMainText commits the replacement main text, then broadcasts the
// full text to everyone following the meeting. Concurrent editors race at
// the store; whoever commits last is what all subscribers converge on.
// PATCH /update_main_text/:id
func (h *MeetingHandlers) UpdateMainText(c *gin.Context) {
	meeting, ok := h.meetingByID(c)
	if !ok {
		return
	}

	var req UpdateMainTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update main text request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	updated, err := h.store.UpdateMeetingMainText(c.Request.Context(), meeting.ID, req.MainText)
	if err != nil {
		h.log.Error().Err(err).Int64("meeting_id", meeting.ID).Msg("failed to update main text")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.fanout.MainTextUpdated(updated.ID, updated.MainText)
	c.JSON(http.StatusOK, meetingResponse(updated))
}

// DeleteMeeting removes a meeting record.
// DELETE /meetings/:id
func (h *MeetingHandlers) DeleteMeeting(c *gin.Context) {
	meeting, ok := h.meetingByID(c)
	if !ok {
		return
	}

	if err := h.store.DeleteMeeting(c.Request.Context(), meeting.ID); err != nil {
		h.log.Error().Err(err).Int64("meeting_id", meeting.ID).Msg("failed to delete meeting")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MeetingHandlers) meetingByID(c *gin.Context) (*store.Meeting, bool) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return nil, false
	}
	meeting, err := h.store.GetMeeting(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("meeting_id", id).Msg("failed to get meeting")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return nil, false
	}
	if meeting == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "meeting not found"})
		return nil, false
	}
	return meeting, true
}
