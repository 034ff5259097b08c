package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sotalab/labdesk-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *SQLiteStore, firebaseID, name string) *store.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &store.User{
		Email:          name + "@lab.example",
		Name:           name,
		FirebaseUserID: firebaseID,
	})
	if err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return u
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := seedUser(t, s, "fb-alice", "alice")
	if created.ID == 0 {
		t.Fatal("created user has no id")
	}

	got, err := s.GetUserByFirebaseID(ctx, "fb-alice")
	if err != nil {
		t.Fatalf("get by firebase id: %v", err)
	}
	if got == nil || got.Name != "alice" {
		t.Fatalf("got %+v", got)
	}

	missing, err := s.GetUserByFirebaseID(ctx, "fb-ghost")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing user, got %+v", missing)
	}

	seedUser(t, s, "fb-bob", "bob")
	others, err := s.ListChatUsers(ctx, "fb-alice")
	if err != nil {
		t.Fatalf("list chat users: %v", err)
	}
	if len(others) != 1 || others[0].FirebaseUserID != "fb-bob" {
		t.Fatalf("chat users = %+v", others)
	}
}

func TestUpdateUserLocationAndStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "fb-alice", "alice")

	updated, err := s.UpdateUserLocation(ctx, "fb-alice", "研究室内", "出席", true)
	if err != nil {
		t.Fatalf("update location: %v", err)
	}
	if updated.NowLocation != "研究室内" || updated.Status != "出席" || !updated.LocationFlag {
		t.Fatalf("updated = %+v", updated)
	}

	// Empty status leaves the stored status untouched.
	updated, err = s.UpdateUserLocation(ctx, "fb-alice", "3F talk room", "", true)
	if err != nil {
		t.Fatalf("update location again: %v", err)
	}
	if updated.Status != "出席" || updated.NowLocation != "3F talk room" {
		t.Fatalf("updated = %+v", updated)
	}

	updated, err = s.UpdateUserStatus(ctx, "fb-alice", "帰宅")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != "帰宅" {
		t.Fatalf("updated = %+v", updated)
	}
}

func TestPrivateChatRoomPairIsOrderless(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreatePrivateChatRoom(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	second, err := s.GetOrCreatePrivateChatRoom(ctx, "u2", "u1")
	if err != nil {
		t.Fatalf("get room reversed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("room ids differ: %d vs %d", first.ID, second.ID)
	}

	other, err := s.OtherUserID(ctx, first.ID, "u1")
	if err != nil {
		t.Fatalf("other user: %v", err)
	}
	if other != "u2" {
		t.Fatalf("other = %q, want u2", other)
	}
}

func TestPrivateMessagesAndUnread(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room, err := s.GetOrCreatePrivateChatRoom(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.SavePrivateMessage(ctx, &store.PrivateMessage{
			PrivateChatRoomID: room.ID,
			UserID:            "u1",
			MessageType:       "text",
			SentAt:            base.Add(time.Duration(i) * time.Minute),
			Content:           "msg",
		})
		if err != nil {
			t.Fatalf("save message %d: %v", i, err)
		}
	}

	msgs, err := s.ListPrivateMessages(ctx, room.ID, 1)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if !msgs[0].SentAt.After(msgs[2].SentAt) {
		t.Fatal("messages not in descending order")
	}

	count, err := s.CountUnreadPrivateMessages(ctx, "u2")
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 3 {
		t.Fatalf("unread = %d, want 3", count)
	}

	ids, err := s.MarkPrivateMessagesRead(ctx, room.ID, "u2")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("cleared %d, want 3", len(ids))
	}

	// Re-clearing finds nothing.
	ids, err = s.MarkPrivateMessagesRead(ctx, room.ID, "u2")
	if err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("cleared %d on second pass, want 0", len(ids))
	}

	count, err = s.CountUnreadPrivateMessages(ctx, "u2")
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 0 {
		t.Fatalf("unread = %d, want 0", count)
	}
}

func TestGroupChatLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	room, err := s.CreateGroupChatRoom(ctx, &store.GroupChatRoom{
		Name:      "systems team",
		CreatedAt: now,
		UpdatedAt: now,
	}, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	count, err := s.CountGroupChatMembers(ctx, room.ID)
	if err != nil {
		t.Fatalf("count members: %v", err)
	}
	if count != 3 {
		t.Fatalf("members = %d, want 3", count)
	}

	others, err := s.ListOtherMemberIDs(ctx, room.ID, "a")
	if err != nil {
		t.Fatalf("list others: %v", err)
	}
	if len(others) != 2 {
		t.Fatalf("others = %v", others)
	}

	// Leave keeps the row but clears the join flag.
	if err := s.RemoveGroupChatMember(ctx, room.ID, "c"); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	member, err := s.GetGroupChatMember(ctx, room.ID, "c")
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if member == nil || member.Join {
		t.Fatalf("member after leave = %+v", member)
	}

	// Re-adding re-arms the membership.
	if err := s.AddGroupChatMembers(ctx, room.ID, []string{"c"}); err != nil {
		t.Fatalf("re-add member: %v", err)
	}
	member, err = s.GetGroupChatMember(ctx, room.ID, "c")
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if member == nil || !member.Join {
		t.Fatalf("member after re-add = %+v", member)
	}

	entry, err := s.ListEntryGroupChatRooms(ctx, "a")
	if err != nil {
		t.Fatalf("list entry rooms: %v", err)
	}
	if len(entry) != 1 || entry[0].ID != room.ID {
		t.Fatalf("entry rooms = %+v", entry)
	}
	notEntry, err := s.ListNotEntryGroupChatRooms(ctx, "stranger")
	if err != nil {
		t.Fatalf("list not-entry rooms: %v", err)
	}
	if len(notEntry) != 1 {
		t.Fatalf("not-entry rooms = %+v", notEntry)
	}
}

func TestGroupUnreadBookkeeping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	room, err := s.CreateGroupChatRoom(ctx, &store.GroupChatRoom{
		Name: "reading group", CreatedAt: now, UpdatedAt: now,
	}, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	msg, err := s.SaveGroupMessage(ctx, &store.GroupMessage{
		GroupChatRoomID: room.ID,
		UserID:          "a",
		MessageType:     "text",
		SentAt:          now,
		Content:         "chapter 3 tomorrow",
	})
	if err != nil {
		t.Fatalf("save message: %v", err)
	}

	if err := s.CreateUnreadMessages(ctx, room.ID, msg.ID, []string{"b", "c"}); err != nil {
		t.Fatalf("create unread rows: %v", err)
	}

	count, err := s.CountUnreadGroupMessages(ctx, "b")
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 1 {
		t.Fatalf("unread = %d, want 1", count)
	}

	// The message listing carries the per-message pending-reader count.
	msgs, err := s.ListGroupMessages(ctx, room.ID, 1)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].UnreadCount != 2 {
		t.Fatalf("messages = %+v", msgs)
	}

	// The entry listing carries the per-user unread count.
	entry, err := s.ListEntryGroupChatRooms(ctx, "b")
	if err != nil {
		t.Fatalf("list entry rooms: %v", err)
	}
	if len(entry) != 1 || entry[0].UnreadCount != 1 {
		t.Fatalf("entry rooms = %+v", entry)
	}

	ids, err := s.ClearUnreadMessages(ctx, room.ID, "b")
	if err != nil {
		t.Fatalf("clear unread: %v", err)
	}
	if len(ids) != 1 || ids[0] != msg.ID {
		t.Fatalf("cleared ids = %v", ids)
	}

	if err := s.ClearUnreadMessage(ctx, room.ID, msg.ID, "c"); err != nil {
		t.Fatalf("clear single unread: %v", err)
	}
	count, err = s.CountUnreadGroupMessages(ctx, "c")
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 0 {
		t.Fatalf("unread = %d, want 0", count)
	}
}

func TestBoardsAndAcknowledgements(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "fb-alice", "alice")

	board, err := s.CreateBoard(ctx, &store.Board{
		Content:   "server maintenance saturday",
		CreatedAt: time.Now().UTC(),
		UserID:    "fb-alice",
	})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	if board.UserName != "alice" {
		t.Fatalf("board = %+v, want author name joined", board)
	}

	if _, err := s.CreateAcknowledgement(ctx, &store.Acknowledgement{BoardID: board.ID, UserID: "fb-alice"}); err != nil {
		t.Fatalf("create ack: %v", err)
	}

	boards, err := s.ListBoards(ctx, "fb-alice", 1)
	if err != nil {
		t.Fatalf("list boards: %v", err)
	}
	if len(boards) != 1 || boards[0].Acknowledgements != 1 || !boards[0].IsAcknowledged {
		t.Fatalf("boards = %+v", boards)
	}

	ackUsers, err := s.ListAcknowledgedUsers(ctx, board.ID)
	if err != nil {
		t.Fatalf("list ack users: %v", err)
	}
	if len(ackUsers) != 1 || ackUsers[0].Name != "alice" {
		t.Fatalf("ack users = %+v", ackUsers)
	}

	if err := s.DeleteAcknowledgement(ctx, board.ID, "fb-alice"); err != nil {
		t.Fatalf("delete ack: %v", err)
	}
	boards, err = s.ListBoards(ctx, "fb-alice", 1)
	if err != nil {
		t.Fatalf("list boards: %v", err)
	}
	if boards[0].Acknowledgements != 0 || boards[0].IsAcknowledged {
		t.Fatalf("boards after withdraw = %+v", boards)
	}
}

func TestDoorStatusSingleton(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	status, err := s.GetDoorStatus(ctx)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status != "unknown" {
		t.Fatalf("initial status = %q, want unknown", status)
	}

	for _, want := range []string{"open", "closed"} {
		if err := s.SetDoorStatus(ctx, want); err != nil {
			t.Fatalf("set status: %v", err)
		}
		status, err = s.GetDoorStatus(ctx)
		if err != nil {
			t.Fatalf("get status: %v", err)
		}
		if status != want {
			t.Fatalf("status = %q, want %q", status, want)
		}
	}
}

func TestSeatUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seats, err := s.UpsertSeats(ctx, []*store.Seat{
		{ID: 1, Status: "free"},
		{ID: 2, Status: "free"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(seats) != 2 {
		t.Fatalf("seats = %+v", seats)
	}

	seats, err = s.UpsertSeats(ctx, []*store.Seat{{ID: 2, Status: "occupied"}})
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if len(seats) != 2 || seats[1].Status != "occupied" || seats[0].Status != "free" {
		t.Fatalf("seats after update = %+v", seats)
	}
}

func TestMeetingMainText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "fb-alice", "alice")

	meeting, err := s.CreateMeeting(ctx, &store.Meeting{
		Title:     "weekly sync",
		CreatedAt: time.Now().UTC(),
		Team:      "systems",
		UserID:    "fb-alice",
	})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	if meeting.UserName != "alice" {
		t.Fatalf("meeting = %+v, want author name joined", meeting)
	}

	updated, err := s.UpdateMeetingMainText(ctx, meeting.ID, "agenda: 1. demos")
	if err != nil {
		t.Fatalf("update main text: %v", err)
	}
	if updated.MainText != "agenda: 1. demos" {
		t.Fatalf("main text = %q", updated.MainText)
	}

	// Second write replaces the first wholesale.
	updated, err = s.UpdateMeetingMainText(ctx, meeting.ID, "agenda: 1. demos 2. retro")
	if err != nil {
		t.Fatalf("update main text again: %v", err)
	}
	if updated.MainText != "agenda: 1. demos 2. retro" {
		t.Fatalf("main text = %q", updated.MainText)
	}
}

func TestAttendanceCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "fb-alice", "alice")

	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	created, err := s.CreateAttendance(ctx, &store.Attendance{
		Title:  "dentist",
		UserID: "fb-alice",
		Start:  start,
		End:    start.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create attendance: %v", err)
	}
	if created.UserName != "alice" {
		t.Fatalf("created = %+v, want user name joined", created)
	}

	created.Title = "dentist (moved)"
	updated, err := s.UpdateAttendance(ctx, created)
	if err != nil {
		t.Fatalf("update attendance: %v", err)
	}
	if updated.Title != "dentist (moved)" {
		t.Fatalf("updated = %+v", updated)
	}

	if err := s.DeleteAttendance(ctx, created.ID); err != nil {
		t.Fatalf("delete attendance: %v", err)
	}
	entries, err := s.ListAttendances(ctx)
	if err != nil {
		t.Fatalf("list attendances: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %+v", entries)
	}
}
