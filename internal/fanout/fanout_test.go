package fanout

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/proto"
	"github.com/sotalab/labdesk-server/internal/realtime"
	"github.com/sotalab/labdesk-server/internal/store"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func openConn(t *testing.T) *realtime.Conn {
	t.Helper()
	c := realtime.NewConn()
	if err := c.Open(); err != nil {
		t.Fatalf("open conn: %v", err)
	}
	return c
}

func receive(t *testing.T, c *realtime.Conn) []byte {
	t.Helper()
	select {
	case p := <-c.Outbox():
		return p
	default:
		t.Fatal("no payload queued")
		return nil
	}
}

func receiveNone(t *testing.T, c *realtime.Conn) {
	t.Helper()
	select {
	case p := <-c.Outbox():
		t.Fatalf("unexpected payload %s", p)
	default:
	}
}

func decodeEnvelope(t *testing.T, data []byte) proto.Envelope {
	t.Helper()
	var env proto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestPrivateChatMessagePostedTwoTiers(t *testing.T) {
	logger := testLogger()
	totals := NewTotalsRegistry(logger)
	pc := NewPrivateChat(totals, logger)

	roomViewer := openConn(t)
	peerList := openConn(t)
	peerTotal := openConn(t)

	if err := pc.AttachRoom(5, roomViewer); err != nil {
		t.Fatalf("attach room: %v", err)
	}
	if err := pc.AttachUserList("bob", peerList); err != nil {
		t.Fatalf("attach user list: %v", err)
	}
	if err := totals.Attach("bob", peerTotal); err != nil {
		t.Fatalf("attach totals: %v", err)
	}

	sentAt := time.Date(2026, 4, 1, 10, 30, 0, 0, time.UTC)
	pc.MessagePosted(PrivateMessageEvent{
		Message: &store.PrivateMessage{
			ID:                11,
			PrivateChatRoomID: 5,
			UserID:            "alice",
			MessageType:       "text",
			SentAt:            sentAt,
			Content:           "hello",
		},
		OtherUserID: "bob",
	})

	env := decodeEnvelope(t, receive(t, roomViewer))
	if env.Type != proto.TypeBroadcast {
		t.Fatalf("room frame type = %q", env.Type)
	}
	var msg proto.PrivateMessagePayload
	if err := json.Unmarshal(env.Message, &msg); err != nil {
		t.Fatalf("decode room payload: %v", err)
	}
	if msg.ID != 11 || msg.UserID != "alice" || msg.Content != "hello" {
		t.Fatalf("room payload = %+v", msg)
	}

	for _, c := range []*realtime.Conn{peerList, peerTotal} {
		env := decodeEnvelope(t, receive(t, c))
		var nudge proto.ChatListPayload
		if err := json.Unmarshal(env.Message, &nudge); err != nil {
			t.Fatalf("decode nudge: %v", err)
		}
		if nudge.UserID != "alice" || nudge.UpdatedAt == "" {
			t.Fatalf("nudge payload = %+v", nudge)
		}
	}
}

func TestPrivateChatNoSubscribersIsNoop(t *testing.T) {
	logger := testLogger()
	pc := NewPrivateChat(NewTotalsRegistry(logger), logger)

	// Nothing attached anywhere; must not panic or error.
	pc.MessagePosted(PrivateMessageEvent{
		Message: &store.PrivateMessage{
			ID:                1,
			PrivateChatRoomID: 99,
			UserID:            "alice",
			SentAt:            time.Now(),
		},
		OtherUserID: "bob",
	})
}

func TestGroupChatUnreadCountFromSubscribers(t *testing.T) {
	logger := testLogger()
	totals := NewTotalsRegistry(logger)
	gc := NewGroupChat(totals, logger)

	// Room with members A, B, C; A posts while A and B view the room.
	viewerA := openConn(t)
	viewerB := openConn(t)
	listC := openConn(t)
	totalC := openConn(t)

	if err := gc.AttachRoom(3, viewerA); err != nil {
		t.Fatalf("attach a: %v", err)
	}
	if err := gc.AttachRoom(3, viewerB); err != nil {
		t.Fatalf("attach b: %v", err)
	}
	if err := gc.AttachUserList("c", listC); err != nil {
		t.Fatalf("attach list c: %v", err)
	}
	if err := gc.AttachTotals("c", totalC); err != nil {
		t.Fatalf("attach totals c: %v", err)
	}

	gc.MessagePosted(GroupMessageEvent{
		Message: &store.GroupMessage{
			ID:              21,
			GroupChatRoomID: 3,
			UserID:          "a",
			SentAt:          time.Now(),
			Content:         "standup?",
		},
		OtherMemberIDs: []string{"b", "c"},
	})

	// Both room viewers get the message with unread_count = 2 live viewers - 1.
	for _, c := range []*realtime.Conn{viewerA, viewerB} {
		env := decodeEnvelope(t, receive(t, c))
		var msg proto.GroupMessagePayload
		if err := json.Unmarshal(env.Message, &msg); err != nil {
			t.Fatalf("decode room payload: %v", err)
		}
		if msg.UnreadCount != 1 {
			t.Fatalf("unread_count = %d, want 1", msg.UnreadCount)
		}
	}

	// C is not viewing the room but gets the list and total nudges.
	for _, c := range []*realtime.Conn{listC, totalC} {
		env := decodeEnvelope(t, receive(t, c))
		var nudge proto.ChatListPayload
		if err := json.Unmarshal(env.Message, &nudge); err != nil {
			t.Fatalf("decode nudge: %v", err)
		}
		if nudge.GroupChatRoomID != 3 {
			t.Fatalf("nudge payload = %+v", nudge)
		}
	}
}

func TestGroupChatUnreadCleared(t *testing.T) {
	logger := testLogger()
	gc := NewGroupChat(NewTotalsRegistry(logger), logger)

	viewer := openConn(t)
	if err := gc.AttachRoom(4, viewer); err != nil {
		t.Fatalf("attach: %v", err)
	}

	gc.UnreadCleared(4, []int64{7, 8})

	env := decodeEnvelope(t, receive(t, viewer))
	if env.Type != proto.TypeUnreadUpdate {
		t.Fatalf("frame type = %q", env.Type)
	}
	var cleared []proto.UnreadClearedPayload
	if err := json.Unmarshal(env.Message, &cleared); err != nil {
		t.Fatalf("decode cleared: %v", err)
	}
	if len(cleared) != 2 || cleared[0].GroupMessageID != 7 || cleared[1].GroupMessageID != 8 {
		t.Fatalf("cleared payload = %+v", cleared)
	}
}

func TestPresenceSeparateTopics(t *testing.T) {
	p := NewPresence(testLogger())

	locWatcher := openConn(t)
	statusWatcher := openConn(t)
	if err := p.AttachLocation(locWatcher); err != nil {
		t.Fatalf("attach location: %v", err)
	}
	if err := p.AttachStatus(statusWatcher); err != nil {
		t.Fatalf("attach status: %v", err)
	}

	p.LocationChanged("u1", "研究室内")

	var loc proto.PresencePayload
	if err := json.Unmarshal(receive(t, locWatcher), &loc); err != nil {
		t.Fatalf("decode location: %v", err)
	}
	if loc.UserID != "u1" || loc.NowLocation != "研究室内" || loc.Status != "" {
		t.Fatalf("location payload = %+v", loc)
	}
	receiveNone(t, statusWatcher)

	p.StatusChanged("u1", "出席")

	var status proto.PresencePayload
	if err := json.Unmarshal(receive(t, statusWatcher), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.UserID != "u1" || status.Status != "出席" || status.NowLocation != "" {
		t.Fatalf("status payload = %+v", status)
	}
	receiveNone(t, locWatcher)
}

func TestAttendanceActionPayloads(t *testing.T) {
	a := NewAttendance(testLogger())

	watcher := openConn(t)
	if err := a.Attach(watcher); err != nil {
		t.Fatalf("attach: %v", err)
	}

	start := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	a.Created(&store.Attendance{
		ID:       2,
		Title:    "conference trip",
		UserID:   "u1",
		UserName: "Tanaka",
		Start:    start,
		End:      start.Add(8 * time.Hour),
	})

	var created proto.AttendancePayload
	if err := json.Unmarshal(receive(t, watcher), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.Action != proto.ActionCreate || created.ID != 2 || created.UserName != "Tanaka" {
		t.Fatalf("created payload = %+v", created)
	}

	a.Deleted(2)
	var deleted proto.AttendancePayload
	if err := json.Unmarshal(receive(t, watcher), &deleted); err != nil {
		t.Fatalf("decode deleted: %v", err)
	}
	if deleted.Action != proto.ActionDelete || deleted.ID != 2 || deleted.Title != "" {
		t.Fatalf("deleted payload = %+v", deleted)
	}
}

func TestBoardTopicsAreIndependent(t *testing.T) {
	b := NewBoard(testLogger())

	boardWatcher := openConn(t)
	ackWatcher := openConn(t)
	if err := b.AttachBoards(boardWatcher); err != nil {
		t.Fatalf("attach boards: %v", err)
	}
	if err := b.AttachAcknowledgements(ackWatcher); err != nil {
		t.Fatalf("attach acks: %v", err)
	}

	b.PostCreated(&store.Board{
		ID:        9,
		Content:   "cleanup on friday",
		CreatedAt: time.Now(),
		UserID:    "u1",
	})

	var post proto.BoardPayload
	if err := json.Unmarshal(receive(t, boardWatcher), &post); err != nil {
		t.Fatalf("decode post: %v", err)
	}
	if post.Action != proto.ActionCreate || post.ID != 9 || post.Acknowledgements != 0 || post.IsAcknowledged {
		t.Fatalf("post payload = %+v", post)
	}
	receiveNone(t, ackWatcher)

	b.AcknowledgementCreated(9)
	var ack proto.AcknowledgementPayload
	if err := json.Unmarshal(receive(t, ackWatcher), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Action != proto.ActionCreate || ack.BoardID != 9 {
		t.Fatalf("ack payload = %+v", ack)
	}
	receiveNone(t, boardWatcher)
}

func TestDoorRawPayload(t *testing.T) {
	d := NewDoor(testLogger())

	watcher := openConn(t)
	if err := d.Attach(watcher); err != nil {
		t.Fatalf("attach: %v", err)
	}

	d.StatusPosted("open")

	if got := string(receive(t, watcher)); got != "open" {
		t.Fatalf("door payload = %q, want raw status string", got)
	}
}

func TestSeatBroadcastFullSetNoReplay(t *testing.T) {
	s := NewSeat(testLogger())

	early := openConn(t)
	if err := s.Attach(early); err != nil {
		t.Fatalf("attach early: %v", err)
	}

	s.SeatsUpdated([]*store.Seat{
		{ID: 1, Status: "occupied"},
		{ID: 2, Status: "free"},
	})

	var seats []proto.SeatPayload
	if err := json.Unmarshal(receive(t, early), &seats); err != nil {
		t.Fatalf("decode seats: %v", err)
	}
	if len(seats) != 2 || seats[0].Status != "occupied" || seats[1].Status != "free" {
		t.Fatalf("seat payload = %+v", seats)
	}

	// A subscriber attaching after the update gets nothing until the next one.
	late := openConn(t)
	if err := s.Attach(late); err != nil {
		t.Fatalf("attach late: %v", err)
	}
	receiveNone(t, late)
}

func TestMeetingLastWriterWins(t *testing.T) {
	m := NewMeeting(testLogger())

	follower := openConn(t)
	if err := m.Attach(42, follower); err != nil {
		t.Fatalf("attach: %v", err)
	}

	m.MainTextUpdated(42, "draft agenda")
	m.MainTextUpdated(42, "final agenda")

	var first, second proto.MeetingTextPayload
	if err := json.Unmarshal(receive(t, follower), &first); err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if err := json.Unmarshal(receive(t, follower), &second); err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if second.MainText != "final agenda" || second.ID != 42 {
		t.Fatalf("last payload = %+v, want the final text", second)
	}

	// Other meetings stay quiet.
	other := openConn(t)
	if err := m.Attach(43, other); err != nil {
		t.Fatalf("attach other: %v", err)
	}
	m.MainTextUpdated(42, "postscript")
	receiveNone(t, other)
	if m.SubscriberCount(42) != 1 || m.SubscriberCount(43) != 1 {
		t.Fatal("subscriber counts off")
	}
}
