package proto

import "encoding/json"

// Frame types carried in the envelope. Clients echo application frames into
// a topic and receive server-initiated fan-out under the same envelope.
const (
	TypeBroadcast              = "broadcast"
	TypeUnreadUpdate           = "unread_update"
	TypeMessageUnreadWebsocket = "message_unread_websocket"
)

// Envelope wraps every JSON frame exchanged on a topic connection. The door
// status channel is the one exception: it carries the raw status string.
type Envelope struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// Wrap marshals payload into an envelope of the given type.
func Wrap(frameType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: frameType, Message: raw})
}

// PrivateMessagePayload is the room-topic fan-out for a posted private message.
type PrivateMessagePayload struct {
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

// GroupMessagePayload is the room-topic fan-out for a posted group message.
// UnreadCount is computed at broadcast time from the live subscriber count.
type GroupMessagePayload struct {
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

// ChatListPayload lands on a user's personal chat-list topic (and the
// total-unread topic) when a room they belong to gets a new message. Exactly
// one of UserID / GroupChatRoomID is set depending on the source domain.
type ChatListPayload struct {
	UpdatedAt       string `json:"updated_at"`
	UserID          string `json:"user_id,omitempty"`
	GroupChatRoomID int64  `json:"group_chat_room_id,omitempty"`
}

// UnreadClearedPayload reports one message whose unread row was removed.
type UnreadClearedPayload struct {
	GroupMessageID   int64 `json:"group_message_id,omitempty"`
	PrivateMessageID int64 `json:"private_message_id,omitempty"`
}

// MessageReadPayload reports a single message marked read over the room topic.
type MessageReadPayload struct {
	ID     int64 `json:"id"`
	IsRead bool  `json:"is_read,omitempty"`
}

// PresencePayload announces a location or status change on the global
// presence topic. Status is omitted when only the location changed.
type PresencePayload struct {
	UserID      string `json:"user_id"`
	NowLocation string `json:"now_location,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Roster actions tag attendance/board payloads with what happened.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// AttendancePayload is the action-tagged roster broadcast.
type AttendancePayload struct {
	Action      string `json:"action"`
	ID          int64  `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	UserName    string `json:"user_name,omitempty"`
	MailSend    bool   `json:"mail_send,omitempty"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	Undecided   bool   `json:"undecided,omitempty"`
}

// BoardPayload is the action-tagged bulletin board broadcast.
type BoardPayload struct {
	Action           string `json:"action"`
	ID               int64  `json:"id"`
	Content          string `json:"content,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
	Group            string `json:"group,omitempty"`
	UserID           string `json:"user_id,omitempty"`
	UserName         string `json:"user_name,omitempty"`
	Acknowledgements int    `json:"acknowledgements"`
	IsAcknowledged   bool   `json:"is_acknowledged"`
}

// AcknowledgementPayload reports an acknowledgement added or removed.
type AcknowledgementPayload struct {
	Action  string `json:"action"`
	BoardID int64  `json:"board_id"`
}

// SeatPayload is one seat in the full-set seat map broadcast.
type SeatPayload struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// MeetingTextPayload carries the full replacement main text of a meeting
// document. Last writer wins; there is no merge.
type MeetingTextPayload struct {
	ID       int64  `json:"id"`
	MainText string `json:"main_text"`
}
