package fanout

import "github.com/sotalab/labdesk-server/internal/store"

// Domain events are built by the HTTP handlers right after the triggering
// persistence operation commits, and consumed once by the matching
// coordinator. Nothing here is ever broadcast for uncommitted state.

// PrivateMessageEvent describes a committed direct message.
type PrivateMessageEvent struct {
	Message *store.PrivateMessage
	// OtherUserID is the room member who did not post the message.
	OtherUserID string
}

// GroupMessageEvent describes a committed group chat message.
type GroupMessageEvent struct {
	Message *store.GroupMessage
	// OtherMemberIDs are the joined room members excluding the poster,
	// attached or not.
	OtherMemberIDs []string
}
