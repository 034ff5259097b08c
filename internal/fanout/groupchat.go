package fanout

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/proto"
	"github.com/sotalab/labdesk-server/internal/realtime"
)

// GroupChat fans out group room activity. One posted message triggers three
// tiers of broadcasts: the room topic for members currently viewing it, each
// other member's chat-list topic, and each other member's total-unread topic.
type GroupChat struct {
	rooms  *realtime.Registry[int64]
	users  *realtime.Registry[string]
	totals *realtime.Registry[string]
	log    *zerolog.Logger
}

// NewGroupChat builds the coordinator with a shared totals registry.
func NewGroupChat(totals *realtime.Registry[string], logger *zerolog.Logger) *GroupChat {
	return &GroupChat{
		rooms:  realtime.NewRegistry[int64]("group_rooms", logger),
		users:  realtime.NewRegistry[string]("group_userlist", logger),
		totals: totals,
		log:    logger,
	}
}

// AttachRoom subscribes a connection to one room's message feed.
func (g *GroupChat) AttachRoom(roomID int64, c *realtime.Conn) error {
	return g.rooms.Attach(roomID, c)
}

// AttachUserList subscribes a connection to a user's group chat-list topic.
func (g *GroupChat) AttachUserList(userID string, c *realtime.Conn) error {
	return g.users.Attach(userID, c)
}

// AttachTotals subscribes a connection to a user's total-unread topic.
func (g *GroupChat) AttachTotals(userID string, c *realtime.Conn) error {
	return g.totals.Attach(userID, c)
}

// RoomSubscriberCount reports how many connections are viewing the room.
func (g *GroupChat) RoomSubscriberCount(roomID int64) int {
	return g.rooms.SubscriberCount(roomID)
}

// EchoRoom re-broadcasts a client frame to the room it arrived on.
func (g *GroupChat) EchoRoom(roomID int64, message json.RawMessage) {
	if data, ok := wrap(g.log, proto.TypeBroadcast, message); ok {
		g.rooms.Broadcast(roomID, data)
	}
}

// EchoUserList re-broadcasts a client frame on the user's chat-list topic.
func (g *GroupChat) EchoUserList(userID string, message json.RawMessage) {
	if data, ok := wrap(g.log, proto.TypeBroadcast, message); ok {
		g.users.Broadcast(userID, data)
	}
}

// EchoTotals re-broadcasts a client frame on the user's total-unread topic.
func (g *GroupChat) EchoTotals(userID string, message json.RawMessage) {
	if data, ok := wrap(g.log, proto.TypeBroadcast, message); ok {
		g.totals.Broadcast(userID, data)
	}
}

// MessagePosted delivers a committed message to everyone viewing the room,
// with unread_count taken from the live subscriber count minus the poster.
// The poster is assumed to be among the attached subscribers; when they are
// not, the count undercounts by one. That matches the historical behavior
// and the persisted unread rows stay authoritative after reconnect.
// Members who are not attached to the room still get their chat-list and
// total-unread nudges.
func (g *GroupChat) MessagePosted(ev GroupMessageEvent) {
	msg := ev.Message
	unread := g.rooms.SubscriberCount(msg.GroupChatRoomID) - 1
	if data, ok := wrap(g.log, proto.TypeBroadcast, proto.GroupMessagePayload{
		ID:              msg.ID,
		GroupChatRoomID: msg.GroupChatRoomID,
		UserID:          msg.UserID,
		MessageType:     msg.MessageType,
		SentAt:          msg.SentAt.Format(timeLayout),
		Content:         msg.Content,
		ImageName:       msg.ImageName,
		ImageURL:        msg.ImageURL,
		FileName:        msg.FileName,
		FileURL:         msg.FileURL,
		UnreadCount:     unread,
	}); ok {
		g.rooms.Broadcast(msg.GroupChatRoomID, data)
	}

	listPayload := proto.ChatListPayload{
		UpdatedAt:       msg.SentAt.Format(timeLayout),
		GroupChatRoomID: msg.GroupChatRoomID,
	}
	data, ok := wrap(g.log, proto.TypeBroadcast, listPayload)
	if !ok {
		return
	}
	for _, userID := range ev.OtherMemberIDs {
		g.users.Broadcast(userID, data)
		g.totals.Broadcast(userID, data)
	}
}

// UnreadCleared tells the room that a member caught up on the given messages.
func (g *GroupChat) UnreadCleared(roomID int64, messageIDs []int64) {
	cleared := make([]proto.UnreadClearedPayload, 0, len(messageIDs))
	for _, id := range messageIDs {
		cleared = append(cleared, proto.UnreadClearedPayload{GroupMessageID: id})
	}
	if data, ok := wrap(g.log, proto.TypeUnreadUpdate, cleared); ok {
		g.rooms.Broadcast(roomID, data)
	}
}

// MessageRead tells the room that one member read one message.
func (g *GroupChat) MessageRead(roomID int64, messageID int64) {
	if data, ok := wrap(g.log, proto.TypeMessageUnreadWebsocket, proto.MessageReadPayload{
		ID: messageID,
	}); ok {
		g.rooms.Broadcast(roomID, data)
	}
}
