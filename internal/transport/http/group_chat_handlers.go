package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/fanout"
	"github.com/sotalab/labdesk-server/internal/store"
)

// GroupChatHandlers provides HTTP handlers for group chat rooms, members,
// messages, and unread bookkeeping.
type GroupChatHandlers struct {
	store  store.Store
	fanout *fanout.GroupChat
	log    *zerolog.Logger
}

// NewGroupChatHandlers creates a new group chat handlers instance.
func NewGroupChatHandlers(st store.Store, f *fanout.GroupChat, logger *zerolog.Logger) *GroupChatHandlers {
	return &GroupChatHandlers{
		store:  st,
		fanout: f,
		log:    logger,
	}
}

// CreateRoomRequest represents the create room body.
type CreateRoomRequest struct {
	Name      string   `json:"name" binding:"required"`
	ImageName string   `json:"image_name"`
	ImageURL  string   `json:"image_url"`
	MemberIDs []string `json:"member_ids" binding:"required,min=1"`
}

// AddMembersRequest represents the add members body.
type AddMembersRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1"`
}

// PostGroupMessageRequest represents the post message body.
type PostGroupMessageRequest struct {
	UserID      string    `json:"user_id" binding:"required"`
	MessageType string    `json:"message_type"`
	SentAt      time.Time `json:"sent_at"`
	Content     string    `json:"content"`
	ImageName   string    `json:"image_name"`
	ImageURL    string    `json:"image_url"`
	FileName    string    `json:"file_name"`
	FileURL     string    `json:"file_url"`
}

// CreateUnreadRequest represents the explicit unread-row creation body.
type CreateUnreadRequest struct {
	GroupChatRoomID int64    `json:"group_chat_room_id" binding:"required"`
	GroupMessageID  int64    `json:"group_message_id" binding:"required"`
	UserIDs         []string `json:"user_ids" binding:"required"`
}

// GroupChatRoomResponse represents a room in API responses.
type GroupChatRoomResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ImageName   string `json:"image_name"`
	ImageURL    string `json:"image_url"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	UnreadCount int    `json:"unread_count"`
}

// GroupMessageResponse represents a message in API responses.
type GroupMessageResponse struct {
	ID              int64  `json:"id"`
	GroupChatRoomID int64  `json:"group_chat_room_id"`
	UserID          string `json:"user_id"`
	MessageType     string `json:"message_type"`
	SentAt          string `json:"sent_at"`
	Content         string `json:"content"`
	ImageName       string `json:"image_name"`
	ImageURL        string `json:"image_url"`
	FileName        string `json:"file_name"`
	FileURL         string `json:"file_url"`
	UnreadCount     int    `json:"unread_count"`
}

// GroupChatMemberResponse represents a membership row in API responses.
type GroupChatMemberResponse struct {
	GroupChatRoomID int64      `json:"group_chat_room_id"`
	UserID          string     `json:"user_id"`
	JoinedDate      *time.Time `json:"joined_date"`
	LeaveDate       *time.Time `json:"leave_date"`
	Join            bool       `json:"join"`
}

func groupChatRoomResponse(r *store.GroupChatRoom) GroupChatRoomResponse {
	return GroupChatRoomResponse{
		ID:          r.ID,
		Name:        r.Name,
		ImageName:   r.ImageName,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
		UnreadCount: r.UnreadCount,
	}
}

func groupChatRoomResponses(rooms []*store.GroupChatRoom) []GroupChatRoomResponse {
	out := make([]GroupChatRoomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, groupChatRoomResponse(r))
	}
	return out
}

func groupMessageResponse(m *store.GroupMessage) GroupMessageResponse {
	return GroupMessageResponse{
		ID:              m.ID,
		GroupChatRoomID: m.GroupChatRoomID,
		UserID:          m.UserID,
		MessageType:     m.MessageType,
		SentAt:          m.SentAt.Format(time.RFC3339),
		Content:         m.Content,
		ImageName:       m.ImageName,
		ImageURL:        m.ImageURL,
		FileName:        m.FileName,
		FileURL:         m.FileURL,
		UnreadCount:     m.UnreadCount,
	}
}

// CreateRoom creates a room with its initial members.
// POST /group_chat_room
func (h *GroupChatHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	now := time.Now().UTC()
	room, err := h.store.CreateGroupChatRoom(c.Request.Context(), &store.GroupChatRoom{
		Name:      req.Name,
		ImageName: req.ImageName,
		ImageURL:  req.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}, req.MemberIDs)
	if err != nil {
		h.log.Error().Err(err).Str("room_name", req.Name).Msg("failed to create group chat room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("room_id", room.ID).Int("members", len(req.MemberIDs)).Msg("group chat room created")
	c.JSON(http.StatusCreated, groupChatRoomResponse(room))
}

// GetRoom returns one room with its current member count.
// GET /group_chat_room/:group_chat_room_id
func (h *GroupChatHandlers) GetRoom(c *gin.Context) {
	roomID, ok := pathInt64(c, "group_chat_room_id")
	if !ok {
		return
	}

	room, err := h.store.GetGroupChatRoom(c.Request.Context(), roomID)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to get group chat room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if room == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	count, err := h.store.CountGroupChatMembers(c.Request.Context(), roomID)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to count group chat members")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := groupChatRoomResponse(room)
	c.JSON(http.StatusOK, gin.H{
		"room":         out,
		"member_count": count,
	})
}

// ListRooms lists every room.
// GET /get_group_chat_rooms
func (h *GroupChatHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.store.ListGroupChatRooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list group chat rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, groupChatRoomResponses(rooms))
}

// ListEntryRooms lists the rooms a user has joined, newest activity first.
// GET /get_entry_group_chat_room/:user_id
func (h *GroupChatHandlers) ListEntryRooms(c *gin.Context) {
	rooms, err := h.store.ListEntryGroupChatRooms(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list entry group chat rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, groupChatRoomResponses(rooms))
}

// ListNotEntryRooms lists the rooms a user has not joined.
// GET /get_not_entry_group_chat_room/:user_id
func (h *GroupChatHandlers) ListNotEntryRooms(c *gin.Context) {
	rooms, err := h.store.ListNotEntryGroupChatRooms(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list not-entry group chat rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, groupChatRoomResponses(rooms))
}

// ListRoomMembers lists all membership rows for a room.
// GET /group_chat_room_users/:group_chat_room_id
func (h *GroupChatHandlers) ListRoomMembers(c *gin.Context) {
	roomID, ok := pathInt64(c, "group_chat_room_id")
	if !ok {
		return
	}

	members, err := h.store.ListGroupChatMembers(c.Request.Context(), roomID)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to list group chat members")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]GroupChatMemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, GroupChatMemberResponse{
			GroupChatRoomID: m.GroupChatRoomID,
			UserID:          m.UserID,
			JoinedDate:      m.JoinedDate,
			LeaveDate:       m.LeaveDate,
			Join:            m.Join,
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetRoomMember fetches one membership row.
// GET /get_group_chat_room_user/:group_chat_room_id/:user_id
func (h *GroupChatHandlers) GetRoomMember(c *gin.Context) {
	roomID, ok := pathInt64(c, "group_chat_room_id")
	if !ok {
		return
	}

	member, err := h.store.GetGroupChatMember(c.Request.Context(), roomID, c.Param("user_id"))
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to get group chat member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if member == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "member not found"})
		return
	}
	c.JSON(http.StatusOK, GroupChatMemberResponse{
		GroupChatRoomID: member.GroupChatRoomID,
		UserID:          member.UserID,
		JoinedDate:      member.JoinedDate,
		LeaveDate:       member.LeaveDate,
		Join:            member.Join,
	})
}

// ListUsersNotInRoom lists lab members who are not joined to the room,
// candidates for an invite.
// GET /get_users_not_in_group/:group_chat_room_id
func (h *GroupChatHandlers) ListUsersNotInRoom(c *gin.Context) {
	roomID, ok := pathInt64(c, "group_chat_room_id")
	if !ok {
		return
	}

	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	members, err := h.store.ListGroupChatMembers(c.Request.Context(), roomID)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to list group chat members")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	joined := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.Join {
			joined[m.UserID] = struct{}{}
		}
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		if _, ok := joined[u.FirebaseUserID]; !ok {
			out = append(out, userResponse(u))
		}
	}
	c.JSON(http.StatusOK, out)
}

// LeaveRoom marks a member as left without deleting message history.
// PATCH /group_member_update/:group_chat_room_id/:user_id
func (h *GroupChatHandlers) LeaveRoom(c *gin.Context) {
	roomID, ok := pathInt64(c, "group_chat_room_id")
	if !ok {
		return
	}
	userID := c.Param("user_id")

	if err := h.store.RemoveGroupChatMember(c.Request.Context(), roomID, userID); err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Str("user_id", userID).Msg("failed to remove group chat member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_chat_room_id": roomID, "user_id": userID, "join": false})
}

// AddMembers joins users to the room, re-arming memberships that had left.
// POST /add_members/:group_chat_room_id
func (h *GroupChatHandlers) AddMembers(c *gin.Context) {
	roomID, ok := pathInt64(c, "group_chat_room_id")
	if !ok {
		return
	}

	var req AddMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid add members request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.store.AddGroupChatMembers(c.Request.Context(), roomID, req.UserIDs); err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to add group chat members")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_chat_room_id": roomID, "added": len(req.UserIDs)})
}

// DeleteRoom removes a room and everything hanging off it.
// DELETE /delete_group_chat_room/:group_chat_room_id
func (h *GroupChatHandlers) DeleteRoom(c *gin.Context) {
	roomID, ok := pathInt64(c, "group_chat_room_id")
	if !ok {
		return
	}

	if err := h.store.DeleteGroupChatRoom(c.Request.Context(), roomID); err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to delete group chat room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages returns one descending page of messages with per-message
// unread counts.
// GET /group_messages/:group_chat_room_id?page=N
func (h *GroupChatHandlers) ListMessages(c *gin.Context) {
	roomID, ok := pathInt64(c, "group_chat_room_id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	msgs, err := h.store.ListGroupMessages(c.Request.Context(), roomID, page)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to list group messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]GroupMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, groupMessageResponse(m))
	}
	c.JSON(http.StatusOK, out)
}

// PostMessage persists a group message, writes one unread row per other
// member, bumps the room's activity timestamp, and fans everything out.
// POST /group_messages/:group_chat_room_id
func (h *GroupChatHandlers) PostMessage(c *gin.Context) {
	roomID, ok := pathInt64(c, "group_chat_room_id")
	if !ok {
		return
	}

	var req PostGroupMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid post group message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	sentAt := req.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}
	messageType := req.MessageType
	if messageType == "" {
		messageType = "text"
	}

	msg, err := h.store.SaveGroupMessage(c.Request.Context(), &store.GroupMessage{
		GroupChatRoomID: roomID,
		UserID:          req.UserID,
		MessageType:     messageType,
		SentAt:          sentAt,
		Content:         req.Content,
		ImageName:       req.ImageName,
		ImageURL:        req.ImageURL,
		FileName:        req.FileName,
		FileURL:         req.FileURL,
	})
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to save group message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	otherIDs, err := h.store.ListOtherMemberIDs(c.Request.Context(), roomID, req.UserID)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to list other members")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if len(otherIDs) > 0 {
		if err := h.store.CreateUnreadMessages(c.Request.Context(), roomID, msg.ID, otherIDs); err != nil {
			h.log.Error().Err(err).Int64("message_id", msg.ID).Msg("failed to create unread rows")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
	}
	if err := h.store.TouchGroupChatRoom(c.Request.Context(), roomID, sentAt); err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to touch group chat room")
	}

	h.fanout.MessagePosted(fanout.GroupMessageEvent{
		Message:        msg,
		OtherMemberIDs: otherIDs,
	})
	c.JSON(http.StatusCreated, groupMessageResponse(msg))
}

// CreateUnread writes unread rows explicitly for the given recipients.
// POST /create_unread_messages
func (h *GroupChatHandlers) CreateUnread(c *gin.Context) {
	var req CreateUnreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create unread request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.store.CreateUnreadMessages(c.Request.Context(), req.GroupChatRoomID, req.GroupMessageID, req.UserIDs); err != nil {
		h.log.Error().Err(err).Int64("message_id", req.GroupMessageID).Msg("failed to create unread rows")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": len(req.UserIDs)})
}

// ClearUnread removes a member's unread rows in the room and reports the
// cleared message ids over the room topic.
// PATCH /group_message_unread_update/:group_chat_room_id/:user_id
func (h *GroupChatHandlers) ClearUnread(c *gin.Context) {
	roomID, ok := pathInt64(c, "group_chat_room_id")
	if !ok {
		return
	}

	ids, err := h.store.ClearUnreadMessages(c.Request.Context(), roomID, c.Param("user_id"))
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to clear unread rows")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if len(ids) > 0 {
		h.fanout.UnreadCleared(roomID, ids)
	}
	c.JSON(http.StatusOK, gin.H{"cleared": len(ids)})
}

// ClearUnreadMessage removes one member's unread row for one message and
// reports it over the room topic.
// POST /group_message_unread_update_websocket/:group_chat_room_id/:group_message_id/:user_id
func (h *GroupChatHandlers) ClearUnreadMessage(c *gin.Context) {
	roomID, ok := pathInt64(c, "group_chat_room_id")
	if !ok {
		return
	}
	messageID, ok := pathInt64(c, "group_message_id")
	if !ok {
		return
	}

	if err := h.store.ClearUnreadMessage(c.Request.Context(), roomID, messageID, c.Param("user_id")); err != nil {
		h.log.Error().Err(err).Int64("message_id", messageID).Msg("failed to clear unread row")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.fanout.MessageRead(roomID, messageID)
	c.JSON(http.StatusOK, gin.H{"group_message_id": messageID})
}

// GetUnreadCount totals a user's unread rows across all rooms.
// GET /get_group_unread_count/:user_id
func (h *GroupChatHandlers) GetUnreadCount(c *gin.Context) {
	count, err := h.store.CountUnreadGroupMessages(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to count unread group messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
