package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/fanout"
	"github.com/sotalab/labdesk-server/internal/store"
)

// AttendanceHandlers provides HTTP handlers for the attendance roster and
// manual status changes.
type AttendanceHandlers struct {
	store      store.Store
	presence   *fanout.Presence
	attendance *fanout.Attendance
	log        *zerolog.Logger
}

// NewAttendanceHandlers creates a new attendance handlers instance.
func NewAttendanceHandlers(st store.Store, presence *fanout.Presence, attendance *fanout.Attendance, logger *zerolog.Logger) *AttendanceHandlers {
	return &AttendanceHandlers{
		store:      st,
		presence:   presence,
		attendance: attendance,
		log:        logger,
	}
}

// UpdateStatusRequest represents the manual status change body.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AttendanceRequest represents the create/update attendance body.
type AttendanceRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	UserID      string    `json:"user_id"`
	MailSend    bool      `json:"mail_send"`
	Start       time.Time `json:"start" binding:"required"`
	End         time.Time `json:"end" binding:"required"`
	Undecided   bool      `json:"undecided"`
}

// AttendanceResponse represents an attendance entry in API responses.
type AttendanceResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	MailSend    bool   `json:"mail_send"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Undecided   bool   `json:"undecided"`
}

func attendanceResponse(a *store.Attendance) AttendanceResponse {
	return AttendanceResponse{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		UserID:      a.UserID,
		UserName:    a.UserName,
		MailSend:    a.MailSend,
		Start:       a.Start.Format(time.RFC3339),
		End:         a.End.Format(time.RFC3339),
		Undecided:   a.Undecided,
	}
}

// ListUsersAttendance lists all lab members with their current statuses.
// GET /users_attendance
func (h *AttendanceHandlers) ListUsersAttendance(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, userResponses(users))
}

// UpdateUserStatus commits a manual status change and fans it out.
// PATCH /update_user_status/:user_id
func (h *AttendanceHandlers) UpdateUserStatus(c *gin.Context) {
	userID := c.Param("user_id")

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update status request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.store.GetUserByFirebaseID(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to get user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	updated, err := h.store.UpdateUserStatus(c.Request.Context(), userID, req.Status)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to update status")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.presence.StatusChanged(updated.FirebaseUserID, updated.Status)
	c.JSON(http.StatusOK, userResponse(updated))
}

// ListAttendances lists every roster entry.
// GET /attendances
func (h *AttendanceHandlers) ListAttendances(c *gin.Context) {
	entries, err := h.store.ListAttendances(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list attendances")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	out := make([]AttendanceResponse, 0, len(entries))
	for _, a := range entries {
		out = append(out, attendanceResponse(a))
	}
	c.JSON(http.StatusOK, out)
}

// CreateAttendance creates a roster entry and fans it out.
// POST /attendances
func (h *AttendanceHandlers) CreateAttendance(c *gin.Context) {
	var req AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create attendance request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	entry, err := h.store.CreateAttendance(c.Request.Context(), &store.Attendance{
		Title:       req.Title,
		Description: req.Description,
		UserID:      req.UserID,
		MailSend:    req.MailSend,
		Start:       req.Start,
		End:         req.End,
		Undecided:   req.Undecided,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create attendance")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.attendance.Created(entry)
	c.JSON(http.StatusCreated, attendanceResponse(entry))
}

// UpdateAttendance updates a roster entry and fans it out.
// PATCH /attendances/:id
func (h *AttendanceHandlers) UpdateAttendance(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	var req AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update attendance request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	existing, err := h.store.GetAttendance(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("attendance_id", id).Msg("failed to get attendance")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "attendance not found"})
		return
	}

	entry, err := h.store.UpdateAttendance(c.Request.Context(), &store.Attendance{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		MailSend:    req.MailSend,
		Start:       req.Start,
		End:         req.End,
		Undecided:   req.Undecided,
	})
	if err != nil {
		h.log.Error().Err(err).Int64("attendance_id", id).Msg("failed to update attendance")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.attendance.Updated(entry)
	c.JSON(http.StatusOK, attendanceResponse(entry))
}

// DeleteAttendance removes a roster entry and fans out the deletion.
// DELETE /attendances/:id
func (h *AttendanceHandlers) DeleteAttendance(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	existing, err := h.store.GetAttendance(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("attendance_id", id).Msg("failed to get attendance")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "attendance not found"})
		return
	}

	if err := h.store.DeleteAttendance(c.Request.Context(), id); err != nil {
		h.log.Error().Err(err).Int64("attendance_id", id).Msg("failed to delete attendance")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.attendance.Deleted(id)
	c.Status(http.StatusNoContent)
}
