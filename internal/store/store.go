package store

import (
	"context"
	"time"
)

// User represents a lab member. Firebase user ids are opaque strings issued
// by the identity provider; this service never interprets them.
type User struct {
	ID             int64
	Email          string
	Grade          string
	Group          string
	Name           string
	Status         string
	FirebaseUserID string
	ImageName      string
	ImageURL       string
	NowLocation    string
	LocationFlag   bool
}

// PrivateChatRoom pairs two users for direct messaging.
type PrivateChatRoom struct {
	ID        int64
	User1ID   string
	User2ID   string
	UpdatedAt time.Time
}

// PrivateMessage is a persisted direct message.
type PrivateMessage struct {
	ID                int64
	PrivateChatRoomID int64
	UserID            string
	MessageType       string
	SentAt            time.Time
	IsRead            bool
	Content           string
	ImageName         string
	ImageURL          string
	FileName          string
	FileURL           string
}

// GroupChatRoom is a multi-member chat room.
type GroupChatRoom struct {
	ID        int64
	Name      string
	ImageName string
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
	// UnreadCount is filled by list queries for the requesting user.
	UnreadCount int
}

// GroupChatMember records a user's membership in a group chat room.
// Leaving keeps the row with Join=false so history stays attributable.
type GroupChatMember struct {
	GroupChatRoomID int64
	UserID          string
	JoinedDate      *time.Time
	LeaveDate       *time.Time
	Join            bool
}

// GroupMessage is a persisted group chat message.
type GroupMessage struct {
	ID              int64
	GroupChatRoomID int64
	UserID          string
	MessageType     string
	SentAt          time.Time
	Content         string
	ImageName       string
	ImageURL        string
	FileName        string
	FileURL         string
	// UnreadCount is filled by list queries (members who have not read it).
	UnreadCount int
}

// UnreadMessage is one member's pending-read marker for one group message.
type UnreadMessage struct {
	ID              int64
	GroupChatRoomID int64
	UserID          string
	GroupMessageID  int64
}

// Attendance is a scheduled absence/attendance entry.
type Attendance struct {
	ID          int64
	Title       string
	Description string
	UserID      string
	UserName    string
	MailSend    bool
	Start       time.Time
	End         time.Time
	Undecided   bool
}

// Board is a bulletin board post.
type Board struct {
	ID        int64
	Content   string
	CreatedAt time.Time
	Group     string
	UserID    string
	UserName  string
	// Acknowledgements and IsAcknowledged are filled by list queries.
	Acknowledgements int
	IsAcknowledged   bool
}

// Acknowledgement marks that a user has seen a board post.
type Acknowledgement struct {
	ID      int64
	BoardID int64
	UserID  string
}

// Seat is one seat on the lab seat map.
type Seat struct {
	ID     int64
	Status string
}

// Meeting is a meeting record with a collaboratively edited main text.
type Meeting struct {
	ID        int64
	Title     string
	CreatedAt time.Time
	Team      string
	MainText  string
	UserID    string
	UserName  string
	Kinds     string
}

// UserStore handles user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByFirebaseID(ctx context.Context, firebaseUserID string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	// ListChatUsers lists everyone except the given user.
	ListChatUsers(ctx context.Context, excludeFirebaseID string) ([]*User, error)
	UpdateUser(ctx context.Context, u *User) error
	// UpdateUserLocation persists a location change; status and flag follow
	// the attendance rules applied by the caller.
	UpdateUserLocation(ctx context.Context, firebaseUserID, nowLocation, status string, locationFlag bool) (*User, error)
	UpdateUserStatus(ctx context.Context, firebaseUserID, status string) (*User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// PrivateChatStore handles direct-message persistence.
type PrivateChatStore interface {
	// GetOrCreatePrivateChatRoom returns the room for a user pair, creating
	// it on first contact.
	GetOrCreatePrivateChatRoom(ctx context.Context, user1ID, user2ID string) (*PrivateChatRoom, error)
	GetPrivateChatRoom(ctx context.Context, id int64) (*PrivateChatRoom, error)
	ListPrivateChatRoomIDs(ctx context.Context, userID string) ([]int64, error)
	// OtherUserID resolves the peer of userID in the given room.
	OtherUserID(ctx context.Context, roomID int64, userID string) (string, error)
	SavePrivateMessage(ctx context.Context, msg *PrivateMessage) (*PrivateMessage, error)
	// ListPrivateMessages returns one descending page of ten messages.
	ListPrivateMessages(ctx context.Context, roomID int64, page int) ([]*PrivateMessage, error)
	// MarkPrivateMessagesRead flags every unread message in the room not
	// sent by userID and returns the affected message ids.
	MarkPrivateMessagesRead(ctx context.Context, roomID int64, userID string) ([]int64, error)
	MarkPrivateMessageRead(ctx context.Context, messageID int64) (*PrivateMessage, error)
	CountUnreadPrivateMessages(ctx context.Context, userID string) (int, error)
	TouchPrivateChatRoom(ctx context.Context, roomID int64, updatedAt time.Time) error
}

// GroupChatStore handles group chat persistence.
type GroupChatStore interface {
	CreateGroupChatRoom(ctx context.Context, room *GroupChatRoom, memberIDs []string) (*GroupChatRoom, error)
	GetGroupChatRoom(ctx context.Context, id int64) (*GroupChatRoom, error)
	ListGroupChatRooms(ctx context.Context) ([]*GroupChatRoom, error)
	// ListEntryGroupChatRooms lists rooms userID has joined, newest activity
	// first, each carrying that user's unread count.
	ListEntryGroupChatRooms(ctx context.Context, userID string) ([]*GroupChatRoom, error)
	ListNotEntryGroupChatRooms(ctx context.Context, userID string) ([]*GroupChatRoom, error)
	DeleteGroupChatRoom(ctx context.Context, id int64) error
	ListGroupChatMembers(ctx context.Context, roomID int64) ([]*GroupChatMember, error)
	GetGroupChatMember(ctx context.Context, roomID int64, userID string) (*GroupChatMember, error)
	// ListOtherMemberIDs lists joined members of the room except excludeUserID.
	ListOtherMemberIDs(ctx context.Context, roomID int64, excludeUserID string) ([]string, error)
	CountGroupChatMembers(ctx context.Context, roomID int64) (int, error)
	AddGroupChatMembers(ctx context.Context, roomID int64, userIDs []string) error
	// RemoveGroupChatMember marks the membership left (Join=false).
	RemoveGroupChatMember(ctx context.Context, roomID int64, userID string) error
	SaveGroupMessage(ctx context.Context, msg *GroupMessage) (*GroupMessage, error)
	ListGroupMessages(ctx context.Context, roomID int64, page int) ([]*GroupMessage, error)
	CreateUnreadMessages(ctx context.Context, roomID int64, messageID int64, userIDs []string) error
	// ClearUnreadMessages removes userID's unread rows in the room and
	// returns the message ids that were cleared.
	ClearUnreadMessages(ctx context.Context, roomID int64, userID string) ([]int64, error)
	ClearUnreadMessage(ctx context.Context, roomID int64, messageID int64, userID string) error
	CountUnreadGroupMessages(ctx context.Context, userID string) (int, error)
	TouchGroupChatRoom(ctx context.Context, roomID int64, updatedAt time.Time) error
}

// AttendanceStore handles attendance persistence.
type AttendanceStore interface {
	CreateAttendance(ctx context.Context, a *Attendance) (*Attendance, error)
	GetAttendance(ctx context.Context, id int64) (*Attendance, error)
	ListAttendances(ctx context.Context) ([]*Attendance, error)
	UpdateAttendance(ctx context.Context, a *Attendance) (*Attendance, error)
	DeleteAttendance(ctx context.Context, id int64) error
}

// BoardStore handles bulletin board persistence.
type BoardStore interface {
	CreateBoard(ctx context.Context, b *Board) (*Board, error)
	GetBoard(ctx context.Context, id int64) (*Board, error)
	// ListBoards returns one descending page of ten posts with ack counts
	// and whether userID acknowledged each.
	ListBoards(ctx context.Context, userID string, page int) ([]*Board, error)
	DeleteBoard(ctx context.Context, id int64) error
	CreateAcknowledgement(ctx context.Context, a *Acknowledgement) (*Acknowledgement, error)
	GetAcknowledgement(ctx context.Context, boardID int64, userID string) (*Acknowledgement, error)
	ListAcknowledgedUsers(ctx context.Context, boardID int64) ([]*User, error)
	DeleteAcknowledgement(ctx context.Context, boardID int64, userID string) error
}

// DoorStore persists the single lab door status row.
type DoorStore interface {
	GetDoorStatus(ctx context.Context) (string, error)
	SetDoorStatus(ctx context.Context, status string) error
}

// SeatStore handles seat map persistence.
type SeatStore interface {
	// UpsertSeats applies the batch and returns the full updated seat set.
	UpsertSeats(ctx context.Context, seats []*Seat) ([]*Seat, error)
	ListSeats(ctx context.Context) ([]*Seat, error)
}

// MeetingStore handles meeting persistence.
type MeetingStore interface {
	CreateMeeting(ctx context.Context, m *Meeting) (*Meeting, error)
	GetMeeting(ctx context.Context, id int64) (*Meeting, error)
	ListMeetings(ctx context.Context) ([]*Meeting, error)
	UpdateMeeting(ctx context.Context, m *Meeting) (*Meeting, error)
	// UpdateMeetingMainText overwrites the collaborative text. Last commit
	// wins; concurrent writers are not merged.
	UpdateMeetingMainText(ctx context.Context, id int64, mainText string) (*Meeting, error)
	DeleteMeeting(ctx context.Context, id int64) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	PrivateChatStore
	GroupChatStore
	AttendanceStore
	BoardStore
	DoorStore
	SeatStore
	MeetingStore

	// Close closes the underlying database connection.
	Close() error
}
