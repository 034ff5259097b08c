package fanout

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/proto"
	"github.com/sotalab/labdesk-server/internal/realtime"
)

// PrivateChat fans out direct-message activity. A posted message reaches
// two independently keyed audiences: everyone viewing the room, and the
// other member's personal chat-list topic (plus the shared total-unread
// topic) so the room list updates even when that room is not open.
type PrivateChat struct {
	rooms  *realtime.Registry[int64]
	users  *realtime.Registry[string]
	totals *realtime.Registry[string]
	log    *zerolog.Logger
}

// NewPrivateChat builds the coordinator. The totals registry is shared with
// the group chat coordinator; both feed the same per-user unread-total topic.
func NewPrivateChat(totals *realtime.Registry[string], logger *zerolog.Logger) *PrivateChat {
	return &PrivateChat{
		rooms:  realtime.NewRegistry[int64]("private_rooms", logger),
		users:  realtime.NewRegistry[string]("private_userlist", logger),
		totals: totals,
		log:    logger,
	}
}

// AttachRoom subscribes a connection to one room's message feed.
func (p *PrivateChat) AttachRoom(roomID int64, c *realtime.Conn) error {
	return p.rooms.Attach(roomID, c)
}

// AttachUserList subscribes a connection to a user's chat-list topic.
func (p *PrivateChat) AttachUserList(userID string, c *realtime.Conn) error {
	return p.users.Attach(userID, c)
}

// RoomSubscriberCount reports how many connections are viewing the room.
func (p *PrivateChat) RoomSubscriberCount(roomID int64) int {
	return p.rooms.SubscriberCount(roomID)
}

// EchoRoom re-broadcasts a client frame to the room it arrived on.
func (p *PrivateChat) EchoRoom(roomID int64, message json.RawMessage) {
	if data, ok := wrap(p.log, proto.TypeBroadcast, message); ok {
		p.rooms.Broadcast(roomID, data)
	}
}

// EchoUserList re-broadcasts a client frame on the user's chat-list topic.
func (p *PrivateChat) EchoUserList(userID string, message json.RawMessage) {
	if data, ok := wrap(p.log, proto.TypeBroadcast, message); ok {
		p.users.Broadcast(userID, data)
	}
}

// MessagePosted delivers a committed message to the room topic and nudges
// the other member's chat-list and total-unread topics. A recipient with no
// attached connections simply gets no live delivery; the persisted unread
// state covers them on reconnect.
func (p *PrivateChat) MessagePosted(ev PrivateMessageEvent) {
	msg := ev.Message
	if data, ok := wrap(p.log, proto.TypeBroadcast, proto.PrivateMessagePayload{
		ID:                msg.ID,
		PrivateChatRoomID: msg.PrivateChatRoomID,
		UserID:            msg.UserID,
		MessageType:       msg.MessageType,
		SentAt:            msg.SentAt.Format(timeLayout),
		IsRead:            msg.IsRead,
		Content:           msg.Content,
		ImageName:         msg.ImageName,
		ImageURL:          msg.ImageURL,
		FileName:          msg.FileName,
		FileURL:           msg.FileURL,
	}); ok {
		p.rooms.Broadcast(msg.PrivateChatRoomID, data)
	}

	listPayload := proto.ChatListPayload{
		UpdatedAt: msg.SentAt.Format(timeLayout),
		UserID:    msg.UserID,
	}
	if data, ok := wrap(p.log, proto.TypeBroadcast, listPayload); ok {
		p.users.Broadcast(ev.OtherUserID, data)
		p.totals.Broadcast(ev.OtherUserID, data)
	}
}

// UnreadCleared tells the room that a member caught up on the given messages.
func (p *PrivateChat) UnreadCleared(roomID int64, messageIDs []int64) {
	cleared := make([]proto.UnreadClearedPayload, 0, len(messageIDs))
	for _, id := range messageIDs {
		cleared = append(cleared, proto.UnreadClearedPayload{PrivateMessageID: id})
	}
	if data, ok := wrap(p.log, proto.TypeUnreadUpdate, cleared); ok {
		p.rooms.Broadcast(roomID, data)
	}
}

// MessageRead tells the room that one message was marked read.
func (p *PrivateChat) MessageRead(roomID int64, messageID int64, isRead bool) {
	if data, ok := wrap(p.log, proto.TypeMessageUnreadWebsocket, proto.MessageReadPayload{
		ID:     messageID,
		IsRead: isRead,
	}); ok {
		p.rooms.Broadcast(roomID, data)
	}
}
