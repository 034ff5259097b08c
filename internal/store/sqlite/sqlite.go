package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sotalab/labdesk-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	email            TEXT NOT NULL,
	grade            TEXT NOT NULL DEFAULT '',
	user_group       TEXT NOT NULL DEFAULT '',
	name             TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT '',
	firebase_user_id TEXT NOT NULL UNIQUE,
	image_name       TEXT NOT NULL DEFAULT '',
	image_url        TEXT NOT NULL DEFAULT '',
	now_location     TEXT NOT NULL DEFAULT '',
	location_flag    BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS private_chat_rooms (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user1_id   TEXT NOT NULL,
	user2_id   TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS private_messages (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	private_chat_room_id INTEGER NOT NULL,
	user_id              TEXT NOT NULL,
	message_type         TEXT NOT NULL DEFAULT 'text',
	sent_at              DATETIME NOT NULL,
	is_read              BOOLEAN NOT NULL DEFAULT 0,
	content              TEXT NOT NULL DEFAULT '',
	image_name           TEXT NOT NULL DEFAULT '',
	image_url            TEXT NOT NULL DEFAULT '',
	file_name            TEXT NOT NULL DEFAULT '',
	file_url             TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (private_chat_room_id) REFERENCES private_chat_rooms(id)
);

CREATE TABLE IF NOT EXISTS group_chat_rooms (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	image_name TEXT NOT NULL DEFAULT '',
	image_url  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS group_chat_room_users (
	group_chat_room_id INTEGER NOT NULL,
	user_id            TEXT NOT NULL,
	joined_date        DATETIME,
	leave_date         DATETIME,
	join_flag          BOOLEAN NOT NULL DEFAULT 1,
	PRIMARY KEY (group_chat_room_id, user_id),
	FOREIGN KEY (group_chat_room_id) REFERENCES group_chat_rooms(id)
);

CREATE TABLE IF NOT EXISTS group_messages (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	group_chat_room_id INTEGER NOT NULL,
	user_id            TEXT NOT NULL,
	message_type       TEXT NOT NULL DEFAULT 'text',
	sent_at            DATETIME NOT NULL,
	content            TEXT NOT NULL DEFAULT '',
	image_name         TEXT NOT NULL DEFAULT '',
	image_url          TEXT NOT NULL DEFAULT '',
	file_name          TEXT NOT NULL DEFAULT '',
	file_url           TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (group_chat_room_id) REFERENCES group_chat_rooms(id)
);

CREATE TABLE IF NOT EXISTS unread_messages (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	group_chat_room_id INTEGER NOT NULL,
	user_id            TEXT NOT NULL,
	group_message_id   INTEGER NOT NULL,
	FOREIGN KEY (group_chat_room_id) REFERENCES group_chat_rooms(id),
	FOREIGN KEY (group_message_id) REFERENCES group_messages(id)
);

CREATE TABLE IF NOT EXISTS attendances (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	user_id     TEXT NOT NULL,
	mail_send   BOOLEAN NOT NULL DEFAULT 0,
	start       DATETIME NOT NULL,
	end         DATETIME NOT NULL,
	undecided   BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS boards (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	user_group TEXT NOT NULL DEFAULT '',
	user_id    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS acknowledgements (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	board_id INTEGER NOT NULL,
	user_id  TEXT NOT NULL,
	UNIQUE (board_id, user_id),
	FOREIGN KEY (board_id) REFERENCES boards(id)
);

CREATE TABLE IF NOT EXISTS door_state (
	id     INTEGER PRIMARY KEY CHECK (id = 1),
	status TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS seats (
	id     INTEGER PRIMARY KEY,
	status TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meetings (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	team       TEXT NOT NULL DEFAULT '',
	main_text  TEXT NOT NULL DEFAULT '',
	user_id    TEXT NOT NULL,
	kinds      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_private_messages_room ON private_messages(private_chat_room_id, sent_at DESC);
CREATE INDEX IF NOT EXISTS idx_group_messages_room ON group_messages(group_chat_room_id, sent_at DESC);
CREATE INDEX IF NOT EXISTS idx_unread_messages_user ON unread_messages(user_id, group_chat_room_id);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

const userColumns = `id, email, grade, user_group, name, status, firebase_user_id, image_name, image_url, now_location, location_flag`

func scanUser(row interface{ Scan(...any) error }) (*store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Email, &u.Grade, &u.Group, &u.Name, &u.Status,
		&u.FirebaseUserID, &u.ImageName, &u.ImageURL, &u.NowLocation, &u.LocationFlag)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new lab member.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *store.User) (*store.User, error) {
	query := `
		INSERT INTO users (email, grade, user_group, name, status, firebase_user_id, image_name, image_url, now_location, location_flag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		u.Email, u.Grade, u.Group, u.Name, u.Status, u.FirebaseUserID,
		u.ImageName, u.ImageURL, u.NowLocation, u.LocationFlag)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by numeric id.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetUserByFirebaseID retrieves a user by the opaque Firebase identity.
func (s *SQLiteStore) GetUserByFirebaseID(ctx context.Context, firebaseUserID string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE firebase_user_id = ?`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, firebaseUserID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by firebase id: %w", err)
	}
	return u, nil
}

// ListUsers returns every lab member.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	return s.queryUsers(ctx, query)
}

// ListChatUsers returns everyone except the given user.
func (s *SQLiteStore) ListChatUsers(ctx context.Context, excludeFirebaseID string) ([]*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE firebase_user_id != ? ORDER BY id`
	return s.queryUsers(ctx, query, excludeFirebaseID)
}

func (s *SQLiteStore) queryUsers(ctx context.Context, query string, args ...any) ([]*store.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser overwrites a user's editable profile fields.
func (s *SQLiteStore) UpdateUser(ctx context.Context, u *store.User) error {
	query := `
		UPDATE users
		SET email = ?, grade = ?, user_group = ?, name = ?, status = ?, image_name = ?, image_url = ?
		WHERE id = ?
	`
	_, err := s.db.ExecContext(ctx, query, u.Email, u.Grade, u.Group, u.Name, u.Status, u.ImageName, u.ImageURL, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdateUserLocation persists a committed location change.
func (s *SQLiteStore) UpdateUserLocation(ctx context.Context, firebaseUserID, nowLocation, status string, locationFlag bool) (*store.User, error) {
	query := `
		UPDATE users
		SET now_location = ?, status = CASE WHEN ? != '' THEN ? ELSE status END, location_flag = ?
		WHERE firebase_user_id = ?
	`
	_, err := s.db.ExecContext(ctx, query, nowLocation, status, status, locationFlag, firebaseUserID)
	if err != nil {
		return nil, fmt.Errorf("update user location: %w", err)
	}
	return s.GetUserByFirebaseID(ctx, firebaseUserID)
}

// UpdateUserStatus persists a committed status change.
func (s *SQLiteStore) UpdateUserStatus(ctx context.Context, firebaseUserID, status string) (*store.User, error) {
	query := `UPDATE users SET status = ? WHERE firebase_user_id = ?`
	if _, err := s.db.ExecContext(ctx, query, status, firebaseUserID); err != nil {
		return nil, fmt.Errorf("update user status: %w", err)
	}
	return s.GetUserByFirebaseID(ctx, firebaseUserID)
}

// DeleteUser removes a user row.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ==== PrivateChatStore implementation ====

// GetOrCreatePrivateChatRoom returns the room for a user pair in either
// order, creating it on first contact.
func (s *SQLiteStore) GetOrCreatePrivateChatRoom(ctx context.Context, user1ID, user2ID string) (*store.PrivateChatRoom, error) {
	query := `
		SELECT id, user1_id, user2_id, updated_at FROM private_chat_rooms
		WHERE (user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)
	`
	var room store.PrivateChatRoom
	err := s.db.QueryRowContext(ctx, query, user1ID, user2ID, user2ID, user1ID).
		Scan(&room.ID, &room.User1ID, &room.User2ID, &room.UpdatedAt)
	if err == nil {
		return &room, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get private chat room: %w", err)
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO private_chat_rooms (user1_id, user2_id, updated_at) VALUES (?, ?, ?)`,
		user1ID, user2ID, now)
	if err != nil {
		return nil, fmt.Errorf("insert private chat room: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	return &store.PrivateChatRoom{ID: id, User1ID: user1ID, User2ID: user2ID, UpdatedAt: now}, nil
}

// GetPrivateChatRoom retrieves a room by id.
func (s *SQLiteStore) GetPrivateChatRoom(ctx context.Context, id int64) (*store.PrivateChatRoom, error) {
	var room store.PrivateChatRoom
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user1_id, user2_id, updated_at FROM private_chat_rooms WHERE id = ?`, id).
		Scan(&room.ID, &room.User1ID, &room.User2ID, &room.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get private chat room: %w", err)
	}
	return &room, nil
}

// ListPrivateChatRoomIDs lists every room the user belongs to.
func (s *SQLiteStore) ListPrivateChatRoomIDs(ctx context.Context, userID string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM private_chat_rooms WHERE user1_id = ? OR user2_id = ?`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list private chat room ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan room id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// OtherUserID resolves the peer of userID in the given room.
func (s *SQLiteStore) OtherUserID(ctx context.Context, roomID int64, userID string) (string, error) {
	room, err := s.GetPrivateChatRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	if room == nil {
		return "", fmt.Errorf("private chat room %d not found", roomID)
	}
	if room.User1ID == userID {
		return room.User2ID, nil
	}
	return room.User1ID, nil
}

// SavePrivateMessage persists a direct message.
func (s *SQLiteStore) SavePrivateMessage(ctx context.Context, msg *store.PrivateMessage) (*store.PrivateMessage, error) {
	query := `
		INSERT INTO private_messages (private_chat_room_id, user_id, message_type, sent_at, is_read, content, image_name, image_url, file_name, file_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		msg.PrivateChatRoomID, msg.UserID, msg.MessageType, msg.SentAt, msg.IsRead,
		msg.Content, msg.ImageName, msg.ImageURL, msg.FileName, msg.FileURL)
	if err != nil {
		return nil, fmt.Errorf("insert private message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	saved := *msg
	saved.ID = id
	return &saved, nil
}

// ListPrivateMessages returns one descending page of ten messages.
func (s *SQLiteStore) ListPrivateMessages(ctx context.Context, roomID int64, page int) ([]*store.PrivateMessage, error) {
	if page < 1 {
		page = 1
	}
	query := `
		SELECT id, private_chat_room_id, user_id, message_type, sent_at, is_read, content, image_name, image_url, file_name, file_url
		FROM private_messages
		WHERE private_chat_room_id = ?
		ORDER BY sent_at DESC
		LIMIT 10 OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, (page-1)*10)
	if err != nil {
		return nil, fmt.Errorf("list private messages: %w", err)
	}
	defer rows.Close()

	var msgs []*store.PrivateMessage
	for rows.Next() {
		var m store.PrivateMessage
		if err := rows.Scan(&m.ID, &m.PrivateChatRoomID, &m.UserID, &m.MessageType, &m.SentAt,
			&m.IsRead, &m.Content, &m.ImageName, &m.ImageURL, &m.FileName, &m.FileURL); err != nil {
			return nil, fmt.Errorf("scan private message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// MarkPrivateMessagesRead flags every unread message in the room not sent
// by userID and returns the affected message ids.
func (s *SQLiteStore) MarkPrivateMessagesRead(ctx context.Context, roomID int64, userID string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM private_messages WHERE private_chat_room_id = ? AND user_id != ? AND is_read = 0`,
		roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("list unread private messages: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan message id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE private_messages SET is_read = 1 WHERE private_chat_room_id = ? AND user_id != ? AND is_read = 0`,
		roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("mark private messages read: %w", err)
	}
	return ids, nil
}

// MarkPrivateMessageRead flags a single message read.
func (s *SQLiteStore) MarkPrivateMessageRead(ctx context.Context, messageID int64) (*store.PrivateMessage, error) {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE private_messages SET is_read = 1 WHERE id = ?`, messageID); err != nil {
		return nil, fmt.Errorf("mark private message read: %w", err)
	}

	var m store.PrivateMessage
	err := s.db.QueryRowContext(ctx,
		`SELECT id, private_chat_room_id, user_id, message_type, sent_at, is_read, content, image_name, image_url, file_name, file_url
		 FROM private_messages WHERE id = ?`, messageID).
		Scan(&m.ID, &m.PrivateChatRoomID, &m.UserID, &m.MessageType, &m.SentAt,
			&m.IsRead, &m.Content, &m.ImageName, &m.ImageURL, &m.FileName, &m.FileURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get private message: %w", err)
	}
	return &m, nil
}

// CountUnreadPrivateMessages totals unread direct messages addressed to userID.
func (s *SQLiteStore) CountUnreadPrivateMessages(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM private_messages m
		JOIN private_chat_rooms r ON r.id = m.private_chat_room_id
		WHERE (r.user1_id = ? OR r.user2_id = ?) AND m.user_id != ? AND m.is_read = 0
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, userID, userID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread private messages: %w", err)
	}
	return count, nil
}

// TouchPrivateChatRoom bumps the room's activity timestamp.
func (s *SQLiteStore) TouchPrivateChatRoom(ctx context.Context, roomID int64, updatedAt time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE private_chat_rooms SET updated_at = ? WHERE id = ?`, updatedAt, roomID); err != nil {
		return fmt.Errorf("touch private chat room: %w", err)
	}
	return nil
}

// ==== GroupChatStore implementation ====

// CreateGroupChatRoom inserts a room and memberships in one transaction.
func (s *SQLiteStore) CreateGroupChatRoom(ctx context.Context, room *store.GroupChatRoom, memberIDs []string) (*store.GroupChatRoom, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO group_chat_rooms (name, image_name, image_url, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		room.Name, room.ImageName, room.ImageURL, room.CreatedAt, room.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert group chat room: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	for _, userID := range memberIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO group_chat_room_users (group_chat_room_id, user_id, joined_date, join_flag) VALUES (?, ?, ?, 1)`,
			id, userID, room.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert group chat member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	created := *room
	created.ID = id
	return &created, nil
}

// GetGroupChatRoom retrieves a room by id.
func (s *SQLiteStore) GetGroupChatRoom(ctx context.Context, id int64) (*store.GroupChatRoom, error) {
	var room store.GroupChatRoom
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, image_name, image_url, created_at, updated_at FROM group_chat_rooms WHERE id = ?`, id).
		Scan(&room.ID, &room.Name, &room.ImageName, &room.ImageURL, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group chat room: %w", err)
	}
	return &room, nil
}

// ListGroupChatRooms returns every room.
func (s *SQLiteStore) ListGroupChatRooms(ctx context.Context) ([]*store.GroupChatRoom, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, image_name, image_url, created_at, updated_at FROM group_chat_rooms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list group chat rooms: %w", err)
	}
	defer rows.Close()
	return scanGroupChatRooms(rows, false)
}

// ListEntryGroupChatRooms lists rooms userID has joined, newest activity
// first, each carrying that user's unread count.
func (s *SQLiteStore) ListEntryGroupChatRooms(ctx context.Context, userID string) ([]*store.GroupChatRoom, error) {
	query := `
		SELECT r.id, r.name, r.image_name, r.image_url, r.created_at, r.updated_at,
		       COALESCE(u.unread_count, 0)
		FROM group_chat_rooms r
		JOIN group_chat_room_users m ON m.group_chat_room_id = r.id
		LEFT JOIN (
			SELECT group_chat_room_id, COUNT(id) AS unread_count
			FROM unread_messages
			WHERE user_id = ?
			GROUP BY group_chat_room_id
		) u ON u.group_chat_room_id = r.id
		WHERE m.user_id = ? AND m.join_flag = 1
		ORDER BY r.updated_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list entry group chat rooms: %w", err)
	}
	defer rows.Close()
	return scanGroupChatRooms(rows, true)
}

// ListNotEntryGroupChatRooms lists rooms userID has not joined.
func (s *SQLiteStore) ListNotEntryGroupChatRooms(ctx context.Context, userID string) ([]*store.GroupChatRoom, error) {
	query := `
		SELECT id, name, image_name, image_url, created_at, updated_at
		FROM group_chat_rooms
		WHERE id NOT IN (
			SELECT group_chat_room_id FROM group_chat_room_users WHERE user_id = ? AND join_flag = 1
		)
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list not-entry group chat rooms: %w", err)
	}
	defer rows.Close()
	return scanGroupChatRooms(rows, false)
}

func scanGroupChatRooms(rows *sql.Rows, withUnread bool) ([]*store.GroupChatRoom, error) {
	var result []*store.GroupChatRoom
	for rows.Next() {
		var r store.GroupChatRoom
		var err error
		if withUnread {
			err = rows.Scan(&r.ID, &r.Name, &r.ImageName, &r.ImageURL, &r.CreatedAt, &r.UpdatedAt, &r.UnreadCount)
		} else {
			err = rows.Scan(&r.ID, &r.Name, &r.ImageName, &r.ImageURL, &r.CreatedAt, &r.UpdatedAt)
		}
		if err != nil {
			return nil, fmt.Errorf("scan group chat room: %w", err)
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}

// DeleteGroupChatRoom removes a room and everything hanging off it.
func (s *SQLiteStore) DeleteGroupChatRoom(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, query := range []string{
		`DELETE FROM unread_messages WHERE group_chat_room_id = ?`,
		`DELETE FROM group_messages WHERE group_chat_room_id = ?`,
		`DELETE FROM group_chat_room_users WHERE group_chat_room_id = ?`,
		`DELETE FROM group_chat_rooms WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("delete group chat room: %w", err)
		}
	}
	return tx.Commit()
}

// ListGroupChatMembers returns all membership rows for the room.
func (s *SQLiteStore) ListGroupChatMembers(ctx context.Context, roomID int64) ([]*store.GroupChatMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_chat_room_id, user_id, joined_date, leave_date, join_flag FROM group_chat_room_users WHERE group_chat_room_id = ?`,
		roomID)
	if err != nil {
		return nil, fmt.Errorf("list group chat members: %w", err)
	}
	defer rows.Close()

	var members []*store.GroupChatMember
	for rows.Next() {
		var m store.GroupChatMember
		if err := rows.Scan(&m.GroupChatRoomID, &m.UserID, &m.JoinedDate, &m.LeaveDate, &m.Join); err != nil {
			return nil, fmt.Errorf("scan group chat member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// GetGroupChatMember retrieves one membership row.
func (s *SQLiteStore) GetGroupChatMember(ctx context.Context, roomID int64, userID string) (*store.GroupChatMember, error) {
	var m store.GroupChatMember
	err := s.db.QueryRowContext(ctx,
		`SELECT group_chat_room_id, user_id, joined_date, leave_date, join_flag FROM group_chat_room_users WHERE group_chat_room_id = ? AND user_id = ?`,
		roomID, userID).
		Scan(&m.GroupChatRoomID, &m.UserID, &m.JoinedDate, &m.LeaveDate, &m.Join)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group chat member: %w", err)
	}
	return &m, nil
}

// ListOtherMemberIDs lists joined members of the room except excludeUserID.
func (s *SQLiteStore) ListOtherMemberIDs(ctx context.Context, roomID int64, excludeUserID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM group_chat_room_users WHERE group_chat_room_id = ? AND join_flag = 1 AND user_id != ?`,
		roomID, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("list other member ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountGroupChatMembers counts joined members of the room.
func (s *SQLiteStore) CountGroupChatMembers(ctx context.Context, roomID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM group_chat_room_users WHERE group_chat_room_id = ? AND join_flag = 1`, roomID).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count group chat members: %w", err)
	}
	return count, nil
}

// AddGroupChatMembers re-joins existing memberships and inserts new ones.
func (s *SQLiteStore) AddGroupChatMembers(ctx context.Context, roomID int64, userIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	query := `
		INSERT INTO group_chat_room_users (group_chat_room_id, user_id, joined_date, leave_date, join_flag)
		VALUES (?, ?, ?, NULL, 1)
		ON CONFLICT (group_chat_room_id, user_id)
		DO UPDATE SET join_flag = 1, joined_date = excluded.joined_date, leave_date = NULL
	`
	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx, query, roomID, userID, now); err != nil {
			return fmt.Errorf("add group chat member: %w", err)
		}
	}
	return tx.Commit()
}

// RemoveGroupChatMember marks the membership left without deleting history.
func (s *SQLiteStore) RemoveGroupChatMember(ctx context.Context, roomID int64, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE group_chat_room_users SET join_flag = 0, leave_date = ?, joined_date = NULL WHERE group_chat_room_id = ? AND user_id = ?`,
		time.Now().UTC(), roomID, userID)
	if err != nil {
		return fmt.Errorf("remove group chat member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SaveGroupMessage persists a group chat message.
func (s *SQLiteStore) SaveGroupMessage(ctx context.Context, msg *store.GroupMessage) (*store.GroupMessage, error) {
	query := `
		INSERT INTO group_messages (group_chat_room_id, user_id, message_type, sent_at, content, image_name, image_url, file_name, file_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		msg.GroupChatRoomID, msg.UserID, msg.MessageType, msg.SentAt,
		msg.Content, msg.ImageName, msg.ImageURL, msg.FileName, msg.FileURL)
	if err != nil {
		return nil, fmt.Errorf("insert group message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	saved := *msg
	saved.ID = id
	return &saved, nil
}

// ListGroupMessages returns one descending page of ten messages, each with
// the count of members who have not read it yet.
func (s *SQLiteStore) ListGroupMessages(ctx context.Context, roomID int64, page int) ([]*store.GroupMessage, error) {
	if page < 1 {
		page = 1
	}
	query := `
		SELECT m.id, m.group_chat_room_id, m.user_id, m.message_type, m.sent_at,
		       m.content, m.image_name, m.image_url, m.file_name, m.file_url,
		       COALESCE(u.unread_count, 0)
		FROM group_messages m
		LEFT JOIN (
			SELECT group_message_id, COUNT(id) AS unread_count
			FROM unread_messages
			WHERE group_chat_room_id = ?
			GROUP BY group_message_id
		) u ON u.group_message_id = m.id
		WHERE m.group_chat_room_id = ?
		ORDER BY m.sent_at DESC
		LIMIT 10 OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, roomID, (page-1)*10)
	if err != nil {
		return nil, fmt.Errorf("list group messages: %w", err)
	}
	defer rows.Close()

	var msgs []*store.GroupMessage
	for rows.Next() {
		var m store.GroupMessage
		if err := rows.Scan(&m.ID, &m.GroupChatRoomID, &m.UserID, &m.MessageType, &m.SentAt,
			&m.Content, &m.ImageName, &m.ImageURL, &m.FileName, &m.FileURL, &m.UnreadCount); err != nil {
			return nil, fmt.Errorf("scan group message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// CreateUnreadMessages inserts one unread row per recipient.
func (s *SQLiteStore) CreateUnreadMessages(ctx context.Context, roomID int64, messageID int64, userIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, userID := range userIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO unread_messages (group_chat_room_id, user_id, group_message_id) VALUES (?, ?, ?)`,
			roomID, userID, messageID)
		if err != nil {
			return fmt.Errorf("insert unread message: %w", err)
		}
	}
	return tx.Commit()
}

// ClearUnreadMessages removes userID's unread rows in the room and returns
// the message ids that were cleared.
func (s *SQLiteStore) ClearUnreadMessages(ctx context.Context, roomID int64, userID string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_message_id FROM unread_messages WHERE group_chat_room_id = ? AND user_id = ?`,
		roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("list unread messages: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan unread message id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM unread_messages WHERE group_chat_room_id = ? AND user_id = ?`, roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("clear unread messages: %w", err)
	}
	return ids, nil
}

// ClearUnreadMessage removes a single unread row.
func (s *SQLiteStore) ClearUnreadMessage(ctx context.Context, roomID int64, messageID int64, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM unread_messages WHERE group_chat_room_id = ? AND user_id = ? AND group_message_id = ?`,
		roomID, userID, messageID)
	if err != nil {
		return fmt.Errorf("clear unread message: %w", err)
	}
	return nil
}

// CountUnreadGroupMessages totals userID's unread rows across all rooms.
func (s *SQLiteStore) CountUnreadGroupMessages(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(id) FROM unread_messages WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread group messages: %w", err)
	}
	return count, nil
}

// TouchGroupChatRoom bumps the room's activity timestamp.
func (s *SQLiteStore) TouchGroupChatRoom(ctx context.Context, roomID int64, updatedAt time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE group_chat_rooms SET updated_at = ? WHERE id = ?`, updatedAt, roomID); err != nil {
		return fmt.Errorf("touch group chat room: %w", err)
	}
	return nil
}

// ==== AttendanceStore implementation ====

const attendanceSelect = `
	SELECT a.id, a.title, a.description, a.user_id, COALESCE(u.name, ''), a.mail_send, a.start, a.end, a.undecided
	FROM attendances a
	LEFT JOIN users u ON u.firebase_user_id = a.user_id
`

// CreateAttendance inserts an attendance entry.
func (s *SQLiteStore) CreateAttendance(ctx context.Context, a *store.Attendance) (*store.Attendance, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO attendances (title, description, user_id, mail_send, start, end, undecided) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Title, a.Description, a.UserID, a.MailSend, a.Start, a.End, a.Undecided)
	if err != nil {
		return nil, fmt.Errorf("insert attendance: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	return s.GetAttendance(ctx, id)
}

// GetAttendance retrieves an attendance entry with the user's name joined in.
func (s *SQLiteStore) GetAttendance(ctx context.Context, id int64) (*store.Attendance, error) {
	var a store.Attendance
	err := s.db.QueryRowContext(ctx, attendanceSelect+` WHERE a.id = ?`, id).
		Scan(&a.ID, &a.Title, &a.Description, &a.UserID, &a.UserName, &a.MailSend, &a.Start, &a.End, &a.Undecided)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return &a, nil
}

// ListAttendances returns every attendance entry.
func (s *SQLiteStore) ListAttendances(ctx context.Context) ([]*store.Attendance, error) {
	rows, err := s.db.QueryContext(ctx, attendanceSelect+` ORDER BY a.start`)
	if err != nil {
		return nil, fmt.Errorf("list attendances: %w", err)
	}
	defer rows.Close()

	var result []*store.Attendance
	for rows.Next() {
		var a store.Attendance
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.UserID, &a.UserName,
			&a.MailSend, &a.Start, &a.End, &a.Undecided); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}

// UpdateAttendance overwrites an attendance entry.
func (s *SQLiteStore) UpdateAttendance(ctx context.Context, a *store.Attendance) (*store.Attendance, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE attendances SET title = ?, description = ?, mail_send = ?, start = ?, end = ?, undecided = ? WHERE id = ?`,
		a.Title, a.Description, a.MailSend, a.Start, a.End, a.Undecided, a.ID)
	if err != nil {
		return nil, fmt.Errorf("update attendance: %w", err)
	}
	return s.GetAttendance(ctx, a.ID)
}

// DeleteAttendance removes an attendance entry.
func (s *SQLiteStore) DeleteAttendance(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM attendances WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}

// ==== BoardStore implementation ====

// CreateBoard inserts a bulletin board post.
func (s *SQLiteStore) CreateBoard(ctx context.Context, b *store.Board) (*store.Board, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO boards (content, created_at, user_group, user_id) VALUES (?, ?, ?, ?)`,
		b.Content, b.CreatedAt, b.Group, b.UserID)
	if err != nil {
		return nil, fmt.Errorf("insert board: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	return s.GetBoard(ctx, id)
}

// GetBoard retrieves a post with the author's name joined in.
func (s *SQLiteStore) GetBoard(ctx context.Context, id int64) (*store.Board, error) {
	query := `
		SELECT b.id, b.content, b.created_at, b.user_group, b.user_id, COALESCE(u.name, '')
		FROM boards b
		LEFT JOIN users u ON u.firebase_user_id = b.user_id
		WHERE b.id = ?
	`
	var b store.Board
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&b.ID, &b.Content, &b.CreatedAt, &b.Group, &b.UserID, &b.UserName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get board: %w", err)
	}
	return &b, nil
}

// ListBoards returns one descending page of ten posts with ack counts and
// whether userID acknowledged each.
func (s *SQLiteStore) ListBoards(ctx context.Context, userID string, page int) ([]*store.Board, error) {
	if page < 1 {
		page = 1
	}
	query := `
		SELECT b.id, b.content, b.created_at, b.user_group, b.user_id, COALESCE(u.name, ''),
		       COUNT(a.id),
		       COALESCE(MAX(CASE WHEN a.user_id = ? THEN 1 ELSE 0 END), 0)
		FROM boards b
		LEFT JOIN users u ON u.firebase_user_id = b.user_id
		LEFT JOIN acknowledgements a ON a.board_id = b.id
		GROUP BY b.id
		ORDER BY b.created_at DESC
		LIMIT 10 OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID, (page-1)*10)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var result []*store.Board
	for rows.Next() {
		var b store.Board
		if err := rows.Scan(&b.ID, &b.Content, &b.CreatedAt, &b.Group, &b.UserID, &b.UserName,
			&b.Acknowledgements, &b.IsAcknowledged); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		result = append(result, &b)
	}
	return result, rows.Err()
}

// DeleteBoard removes a post and its acknowledgements.
func (s *SQLiteStore) DeleteBoard(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM acknowledgements WHERE board_id = ?`, id); err != nil {
		return fmt.Errorf("delete board acknowledgements: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return tx.Commit()
}

// CreateAcknowledgement marks a post seen by a user.
func (s *SQLiteStore) CreateAcknowledgement(ctx context.Context, a *store.Acknowledgement) (*store.Acknowledgement, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO acknowledgements (board_id, user_id) VALUES (?, ?)`, a.BoardID, a.UserID)
	if err != nil {
		return nil, fmt.Errorf("insert acknowledgement: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	created := *a
	created.ID = id
	return &created, nil
}

// GetAcknowledgement retrieves one user's acknowledgement of one post.
func (s *SQLiteStore) GetAcknowledgement(ctx context.Context, boardID int64, userID string) (*store.Acknowledgement, error) {
	var a store.Acknowledgement
	err := s.db.QueryRowContext(ctx,
		`SELECT id, board_id, user_id FROM acknowledgements WHERE board_id = ? AND user_id = ?`,
		boardID, userID).
		Scan(&a.ID, &a.BoardID, &a.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get acknowledgement: %w", err)
	}
	return &a, nil
}

// ListAcknowledgedUsers lists the users who acknowledged a post.
func (s *SQLiteStore) ListAcknowledgedUsers(ctx context.Context, boardID int64) ([]*store.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE firebase_user_id IN (SELECT user_id FROM acknowledgements WHERE board_id = ?)
	`
	return s.queryUsers(ctx, query, boardID)
}

// DeleteAcknowledgement withdraws one user's acknowledgement.
func (s *SQLiteStore) DeleteAcknowledgement(ctx context.Context, boardID int64, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM acknowledgements WHERE board_id = ? AND user_id = ?`, boardID, userID)
	if err != nil {
		return fmt.Errorf("delete acknowledgement: %w", err)
	}
	return nil
}

// ==== DoorStore implementation ====

// GetDoorStatus returns the singleton door status, "unknown" before the
// first post.
func (s *SQLiteStore) GetDoorStatus(ctx context.Context) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM door_state WHERE id = 1`).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "unknown", nil
		}
		return "", fmt.Errorf("get door status: %w", err)
	}
	return status, nil
}

// SetDoorStatus upserts the singleton door status row.
func (s *SQLiteStore) SetDoorStatus(ctx context.Context, status string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO door_state (id, status) VALUES (1, ?) ON CONFLICT (id) DO UPDATE SET status = excluded.status`,
		status)
	if err != nil {
		return fmt.Errorf("set door status: %w", err)
	}
	return nil
}

// ==== SeatStore implementation ====

// UpsertSeats applies the batch and returns the full updated seat set.
func (s *SQLiteStore) UpsertSeats(ctx context.Context, seats []*store.Seat) ([]*store.Seat, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, seat := range seats {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO seats (id, status) VALUES (?, ?) ON CONFLICT (id) DO UPDATE SET status = excluded.status`,
			seat.ID, seat.Status)
		if err != nil {
			return nil, fmt.Errorf("upsert seat: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.ListSeats(ctx)
}

// ListSeats returns the full seat set.
func (s *SQLiteStore) ListSeats(ctx context.Context) ([]*store.Seat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, status FROM seats ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	defer rows.Close()

	var seats []*store.Seat
	for rows.Next() {
		var seat store.Seat
		if err := rows.Scan(&seat.ID, &seat.Status); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, &seat)
	}
	return seats, rows.Err()
}

// ==== MeetingStore implementation ====

const meetingSelect = `
	SELECT m.id, m.title, m.created_at, m.team, m.main_text, m.user_id, COALESCE(u.name, ''), m.kinds
	FROM meetings m
	LEFT JOIN users u ON u.firebase_user_id = m.user_id
`

// CreateMeeting inserts a meeting record.
func (s *SQLiteStore) CreateMeeting(ctx context.Context, m *store.Meeting) (*store.Meeting, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO meetings (title, created_at, team, main_text, user_id, kinds) VALUES (?, ?, ?, ?, ?, ?)`,
		m.Title, m.CreatedAt, m.Team, m.MainText, m.UserID, m.Kinds)
	if err != nil {
		return nil, fmt.Errorf("insert meeting: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	return s.GetMeeting(ctx, id)
}

// GetMeeting retrieves a meeting with the author's name joined in.
func (s *SQLiteStore) GetMeeting(ctx context.Context, id int64) (*store.Meeting, error) {
	var m store.Meeting
	err := s.db.QueryRowContext(ctx, meetingSelect+` WHERE m.id = ?`, id).
		Scan(&m.ID, &m.Title, &m.CreatedAt, &m.Team, &m.MainText, &m.UserID, &m.UserName, &m.Kinds)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return &m, nil
}

// ListMeetings returns every meeting record.
func (s *SQLiteStore) ListMeetings(ctx context.Context) ([]*store.Meeting, error) {
	rows, err := s.db.QueryContext(ctx, meetingSelect+` ORDER BY m.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*store.Meeting
	for rows.Next() {
		var m store.Meeting
		if err := rows.Scan(&m.ID, &m.Title, &m.CreatedAt, &m.Team, &m.MainText,
			&m.UserID, &m.UserName, &m.Kinds); err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		meetings = append(meetings, &m)
	}
	return meetings, rows.Err()
}

// UpdateMeeting overwrites the meeting's metadata (not its main text).
func (s *SQLiteStore) UpdateMeeting(ctx context.Context, m *store.Meeting) (*store.Meeting, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET title = ?, team = ?, kinds = ? WHERE id = ?`,
		m.Title, m.Team, m.Kinds, m.ID)
	if err != nil {
		return nil, fmt.Errorf("update meeting: %w", err)
	}
	return s.GetMeeting(ctx, m.ID)
}

// UpdateMeetingMainText overwrites the collaborative text. Last commit wins.
func (s *SQLiteStore) UpdateMeetingMainText(ctx context.Context, id int64, mainText string) (*store.Meeting, error) {
	_, err := s.db.ExecContext(ctx, `UPDATE meetings SET main_text = ? WHERE id = ?`, mainText, id)
	if err != nil {
		return nil, fmt.Errorf("update meeting main text: %w", err)
	}
	return s.GetMeeting(ctx, id)
}

// DeleteMeeting removes a meeting record.
func (s *SQLiteStore) DeleteMeeting(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	return nil
}
