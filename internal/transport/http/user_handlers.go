package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/fanout"
	"github.com/sotalab/labdesk-server/internal/store"
)

// Locations the floor map reports. A user who checked into the lab once has
// their location flag set, and from then on location changes drive status.
const (
	locationInLab     = "研究室内"
	locationOffCampus = "キャンパス外"
)

// Statuses derived from committed locations.
const (
	statusPresent = "出席"
	statusAway    = "一時退席"
	statusGone    = "帰宅"
)

// UserHandlers provides HTTP handlers for user and presence endpoints.
type UserHandlers struct {
	store    store.Store
	presence *fanout.Presence
	log      *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, presence *fanout.Presence, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store:    st,
		presence: presence,
		log:      logger,
	}
}

// CreateUserRequest represents the create user request body.
type CreateUserRequest struct {
	Email          string `json:"email" binding:"required"`
	Grade          string `json:"grade"`
	Group          string `json:"group"`
	Name           string `json:"name" binding:"required"`
	Status         string `json:"status"`
	FirebaseUserID string `json:"firebase_user_id" binding:"required"`
	ImageName      string `json:"image_name"`
	ImageURL       string `json:"image_url"`
}

// UpdateUserRequest represents the update user request body.
type UpdateUserRequest struct {
	Email     string `json:"email"`
	Grade     string `json:"grade"`
	Group     string `json:"group"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	ImageName string `json:"image_name"`
	ImageURL  string `json:"image_url"`
}

// UpdateLocationRequest represents the update location request body.
type UpdateLocationRequest struct {
	NowLocation string `json:"now_location" binding:"required"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	Grade          string `json:"grade"`
	Group          string `json:"group"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	FirebaseUserID string `json:"firebase_user_id"`
	ImageName      string `json:"image_name"`
	ImageURL       string `json:"image_url"`
	NowLocation    string `json:"now_location"`
	LocationFlag   bool   `json:"location_flag"`
}

func userResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		Grade:          u.Grade,
		Group:          u.Group,
		Name:           u.Name,
		Status:         u.Status,
		FirebaseUserID: u.FirebaseUserID,
		ImageName:      u.ImageName,
		ImageURL:       u.ImageURL,
		NowLocation:    u.NowLocation,
		LocationFlag:   u.LocationFlag,
	}
}

func userResponses(users []*store.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	return out
}

// ListUsers handles listing all lab members.
// GET /users
func (h *UserHandlers) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, userResponses(users))
}

// ListChatUsers handles listing everyone except the requesting user.
// GET /chat_users/:firebase_user_id
func (h *UserHandlers) ListChatUsers(c *gin.Context) {
	users, err := h.store.ListChatUsers(c.Request.Context(), c.Param("firebase_user_id"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list chat users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, userResponses(users))
}

// GetUser handles fetching one user by Firebase id.
// GET /users/:firebase_user_id
func (h *UserHandlers) GetUser(c *gin.Context) {
	user, ok := h.userByFirebaseID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// GetUserID resolves a Firebase id to the numeric user id.
// GET /user_id/:firebase_user_id
func (h *UserHandlers) GetUserID(c *gin.Context) {
	user, ok := h.userByFirebaseID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID})
}

// GetUserNameID resolves a Firebase id to the numeric id and display name.
// GET /user_name_id/:firebase_user_id
func (h *UserHandlers) GetUserNameID(c *gin.Context) {
	user, ok := h.userByFirebaseID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "name": user.Name})
}

// CreateUser handles registering a new lab member.
// POST /users
func (h *UserHandlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create user request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.store.CreateUser(c.Request.Context(), &store.User{
		Email:          req.Email,
		Grade:          req.Grade,
		Group:          req.Group,
		Name:           req.Name,
		Status:         req.Status,
		FirebaseUserID: req.FirebaseUserID,
		ImageName:      req.ImageName,
		ImageURL:       req.ImageURL,
	})
	if err != nil {
		h.log.Error().Err(err).Str("firebase_user_id", req.FirebaseUserID).Msg("failed to create user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("user_id", user.ID).Msg("user created")
	c.JSON(http.StatusCreated, userResponse(user))
}

// UpdateUser handles editing a user's profile.
// PATCH /users/:id
func (h *UserHandlers) UpdateUser(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update user request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", id).Msg("failed to get user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Grade != "" {
		user.Grade = req.Grade
	}
	if req.Group != "" {
		user.Group = req.Group
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Status != "" {
		user.Status = req.Status
	}
	if req.ImageName != "" {
		user.ImageName = req.ImageName
	}
	if req.ImageURL != "" {
		user.ImageURL = req.ImageURL
	}

	if err := h.store.UpdateUser(c.Request.Context(), user); err != nil {
		h.log.Error().Err(err).Int64("user_id", id).Msg("failed to update user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// UpdateUserLocation commits a location change and fans it out. A user's
// first check-in to the lab arms the location flag; once armed, every
// location change also derives a status: in the lab means present, off
// campus means gone for the day, anywhere else means stepped out.
// PATCH /update_user_location/:firebase_user_id
func (h *UserHandlers) UpdateUserLocation(c *gin.Context) {
	firebaseID := c.Param("firebase_user_id")

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update location request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.store.GetUserByFirebaseID(c.Request.Context(), firebaseID)
	if err != nil {
		h.log.Error().Err(err).Str("firebase_user_id", firebaseID).Msg("failed to get user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	// Unchanged location is a no-op: no row rewrite, no broadcast.
	if user.NowLocation == req.NowLocation {
		c.JSON(http.StatusOK, userResponse(user))
		return
	}

	status := ""
	flag := user.LocationFlag
	switch {
	case user.LocationFlag && req.NowLocation == locationInLab:
		status = statusPresent
	case user.LocationFlag && req.NowLocation == locationOffCampus:
		status = statusGone
	case user.LocationFlag:
		status = statusAway
	case req.NowLocation == locationInLab:
		status = statusPresent
		flag = true
	}

	updated, err := h.store.UpdateUserLocation(c.Request.Context(), firebaseID, req.NowLocation, status, flag)
	if err != nil {
		h.log.Error().Err(err).Str("firebase_user_id", firebaseID).Msg("failed to update location")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.presence.LocationChanged(updated.FirebaseUserID, updated.NowLocation)
	c.JSON(http.StatusOK, userResponse(updated))
}

// DeleteUser removes a lab member.
// DELETE /users/:user_id
func (h *UserHandlers) DeleteUser(c *gin.Context) {
	id, ok := pathInt64(c, "user_id")
	if !ok {
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", id).Msg("failed to get user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		h.log.Error().Err(err).Int64("user_id", id).Msg("failed to delete user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandlers) userByFirebaseID(c *gin.Context) (*store.User, bool) {
	firebaseID := c.Param("firebase_user_id")
	user, err := h.store.GetUserByFirebaseID(c.Request.Context(), firebaseID)
	if err != nil {
		h.log.Error().Err(err).Str("firebase_user_id", firebaseID).Msg("failed to get user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return nil, false
	}
	if user == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return nil, false
	}
	return user, true
}
