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

// PrivateChatHandlers provides HTTP handlers for direct messaging. Posting
// endpoints persist first; only committed state is handed to the fan-out.
type PrivateChatHandlers struct {
	store  store.Store
	fanout *fanout.PrivateChat
	log    *zerolog.Logger
}

// NewPrivateChatHandlers creates a new private chat handlers instance.
func NewPrivateChatHandlers(st store.Store, f *fanout.PrivateChat, logger *zerolog.Logger) *PrivateChatHandlers {
	return &PrivateChatHandlers{
		store:  st,
		fanout: f,
		log:    logger,
	}
}

// PostPrivateMessageRequest represents the post message body. Image and
// file locations are opaque URLs supplied by the caller.
type PostPrivateMessageRequest struct {
	UserID      string    `json:"user_id" binding:"required"`
	MessageType string    `json:"message_type"`
	SentAt      time.Time `json:"sent_at"`
	Content     string    `json:"content"`
	ImageName   string    `json:"image_name"`
	ImageURL    string    `json:"image_url"`
	FileName    string    `json:"file_name"`
	FileURL     string    `json:"file_url"`
}

// PrivateChatRoomResponse represents a chat room in API responses.
type PrivateChatRoomResponse struct {
	ID        int64  `json:"id"`
	User1ID   string `json:"user1_id"`
	User2ID   string `json:"user2_id"`
	UpdatedAt string `json:"updated_at"`
}

// PrivateMessageResponse represents a message in API responses.
type PrivateMessageResponse struct {
	ID                int64  `json:"id"`
	PrivateChatRoomID int64  `json:"private_chat_room_id"`
	UserID            string `json:"user_id"`
	MessageType       string `json:"message_type"`
	SentAt            string `json:"sent_at"`
	IsRead            bool   `json:"is_read"`
	Content           string `json:"content"`
	ImageName         string `json:"image_name"`
	ImageURL          string `json:"image_url"`
	FileName          string `json:"file_name"`
	FileURL           string `json:"file_url"`
}

func privateMessageResponse(m *store.PrivateMessage) PrivateMessageResponse {
	return PrivateMessageResponse{
		ID:                m.ID,
		PrivateChatRoomID: m.PrivateChatRoomID,
		UserID:            m.UserID,
		MessageType:       m.MessageType,
		SentAt:            m.SentAt.Format(time.RFC3339),
		IsRead:            m.IsRead,
		Content:           m.Content,
		ImageName:         m.ImageName,
		ImageURL:          m.ImageURL,
		FileName:          m.FileName,
		FileURL:           m.FileURL,
	}
}

// GetOrCreateRoom returns the room for a user pair, creating it on first
// contact.
// GET /private_chat_room/:user1_id/:user2_id
func (h *PrivateChatHandlers) GetOrCreateRoom(c *gin.Context) {
	room, err := h.store.GetOrCreatePrivateChatRoom(c.Request.Context(), c.Param("user1_id"), c.Param("user2_id"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get or create private chat room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, PrivateChatRoomResponse{
		ID:        room.ID,
		User1ID:   room.User1ID,
		User2ID:   room.User2ID,
		UpdatedAt: room.UpdatedAt.Format(time.RFC3339),
	})
}

// ListRoomIDs returns the ids of every room the user belongs to.
// GET /private_chat_rooms/:user_id
func (h *PrivateChatHandlers) ListRoomIDs(c *gin.Context) {
	ids, err := h.store.ListPrivateChatRoomIDs(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list private chat rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	c.JSON(http.StatusOK, ids)
}

// GetUnreadCount totals unread direct messages addressed to a user.
// GET /get_private_unread_count/:user_id
func (h *PrivateChatHandlers) GetUnreadCount(c *gin.Context) {
	count, err := h.store.CountUnreadPrivateMessages(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to count unread private messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// ListMessages returns one descending page of messages.
// GET /private_messages/:private_chat_room_id?page=N
func (h *PrivateChatHandlers) ListMessages(c *gin.Context) {
	roomID, ok := pathInt64(c, "private_chat_room_id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	msgs, err := h.store.ListPrivateMessages(c.Request.Context(), roomID, page)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to list private messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]PrivateMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, privateMessageResponse(m))
	}
	c.JSON(http.StatusOK, out)
}

// PostMessage persists a direct message and fans it out: the room topic
// gets the full message, and the other member's chat-list and total-unread
// topics get an activity nudge.
// POST /private_messages/:private_chat_room_id
func (h *PrivateChatHandlers) PostMessage(c *gin.Context) {
	roomID, ok := pathInt64(c, "private_chat_room_id")
	if !ok {
		return
	}

	var req PostPrivateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid post private message request")
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

	msg, err := h.store.SavePrivateMessage(c.Request.Context(), &store.PrivateMessage{
		PrivateChatRoomID: roomID,
		UserID:            req.UserID,
		MessageType:       messageType,
		SentAt:            sentAt,
		Content:           req.Content,
		ImageName:         req.ImageName,
		ImageURL:          req.ImageURL,
		FileName:          req.FileName,
		FileURL:           req.FileURL,
	})
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to save private message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.TouchPrivateChatRoom(c.Request.Context(), roomID, sentAt); err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to touch private chat room")
	}

	otherUserID, err := h.store.OtherUserID(c.Request.Context(), roomID, req.UserID)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to resolve other user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.fanout.MessagePosted(fanout.PrivateMessageEvent{
		Message:     msg,
		OtherUserID: otherUserID,
	})
	c.JSON(http.StatusCreated, privateMessageResponse(msg))
}

// ClearUnread marks every message a user had not read in the room and
// reports the cleared ids over the room topic.
// PATCH /private_message_unread_update/:private_chat_room_id/:user_id
func (h *PrivateChatHandlers) ClearUnread(c *gin.Context) {
	roomID, ok := pathInt64(c, "private_chat_room_id")
	if !ok {
		return
	}

	ids, err := h.store.MarkPrivateMessagesRead(c.Request.Context(), roomID, c.Param("user_id"))
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to mark private messages read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if len(ids) > 0 {
		h.fanout.UnreadCleared(roomID, ids)
	}
	c.JSON(http.StatusOK, gin.H{"cleared": len(ids)})
}

// MarkMessageRead flags a single message read and reports it over the room
// topic.
// POST /message_unread_update_websocket/:private_chat_room_id/:private_message_id
func (h *PrivateChatHandlers) MarkMessageRead(c *gin.Context) {
	roomID, ok := pathInt64(c, "private_chat_room_id")
	if !ok {
		return
	}
	messageID, ok := pathInt64(c, "private_message_id")
	if !ok {
		return
	}

	msg, err := h.store.MarkPrivateMessageRead(c.Request.Context(), messageID)
	if err != nil {
		h.log.Error().Err(err).Int64("message_id", messageID).Msg("failed to mark private message read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if msg == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "message not found"})
		return
	}

	h.fanout.MessageRead(roomID, msg.ID, msg.IsRead)
	c.JSON(http.StatusOK, privateMessageResponse(msg))
}

// TouchRoom bumps the room's activity timestamp.
// PATCH /update_datetime_private_chat_room/:private_chat_room_id
func (h *PrivateChatHandlers) TouchRoom(c *gin.Context) {
	roomID, ok := pathInt64(c, "private_chat_room_id")
	if !ok {
		return
	}

	now := time.Now().UTC()
	if err := h.store.TouchPrivateChatRoom(c.Request.Context(), roomID, now); err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to touch private chat room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	room, err := h.store.GetPrivateChatRoom(c.Request.Context(), roomID)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to get private chat room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if room == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	c.JSON(http.StatusOK, PrivateChatRoomResponse{
		ID:        room.ID,
		User1ID:   room.User1ID,
		User2ID:   room.User2ID,
		UpdatedAt: room.UpdatedAt.Format(time.RFC3339),
	})
}
