package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/config"
	"github.com/sotalab/labdesk-server/internal/fanout"
	"github.com/sotalab/labdesk-server/internal/proto"
	"github.com/sotalab/labdesk-server/internal/store/sqlite"
)

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zerolog.Nop()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	totals := fanout.NewTotalsRegistry(&logger)
	co := Coordinators{
		Private:    fanout.NewPrivateChat(totals, &logger),
		Group:      fanout.NewGroupChat(totals, &logger),
		Presence:   fanout.NewPresence(&logger),
		Attendance: fanout.NewAttendance(&logger),
		Board:      fanout.NewBoard(&logger),
		Door:       fanout.NewDoor(&logger),
		Seat:       fanout.NewSeat(&logger),
		Meeting:    fanout.NewMeeting(&logger),
	}

	server := NewServer(st, co, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts
}

func dialWS(t *testing.T, ctx context.Context, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + path
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	// The server attaches the connection to its topic just after the
	// handshake completes; give it a moment before triggering broadcasts.
	time.Sleep(50 * time.Millisecond)
	return conn
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any, wantStatus int) []byte {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := ts.Client().Post(ts.URL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("post %s: status %d, want %d (body %s)", path, resp.StatusCode, wantStatus, buf.String())
	}
	return buf.Bytes()
}

func patchJSON(t *testing.T, ts *httptest.Server, path string, body any) {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := stdhttp.NewRequest(stdhttp.MethodPatch, ts.URL+path, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("patch %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("patch %s: status %d", path, resp.StatusCode)
	}
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) {
	t.Helper()

	resp, err := ts.Client().Get(ts.URL + path)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("get %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) []byte {
	t.Helper()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return data
}

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWSRejectsNonNumericRoomID(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws_private_message/abc"
	conn, resp, err := websocket.Dial(ctx, wsURL, nil)
	if err == nil {
		conn.Close(websocket.StatusNormalClosure, "done")
		t.Fatal("dial succeeded on non-numeric room id")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected 400 handshake response, got %+v", resp)
	}
}

func TestPrivateMessageFansOutToRoomAndPeer(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var room PrivateChatRoomResponse
	getJSON(t, ts, "/private_chat_room/alice/bob", &room)
	if room.ID == 0 {
		t.Fatal("room has no id")
	}

	roomConn := dialWS(t, ctx, ts, fmt.Sprintf("/ws_private_message/%d", room.ID))
	listConn := dialWS(t, ctx, ts, "/ws_private_userlist/bob")
	totalConn := dialWS(t, ctx, ts, "/ws_chat_user_total/bob")

	postJSON(t, ts, fmt.Sprintf("/private_messages/%d", room.ID), PostPrivateMessageRequest{
		UserID:  "alice",
		Content: "lunch?",
	}, 201)

	var env proto.Envelope
	if err := json.Unmarshal(readFrame(t, ctx, roomConn), &env); err != nil {
		t.Fatalf("unmarshal room frame: %v", err)
	}
	if env.Type != proto.TypeBroadcast {
		t.Fatalf("room frame type = %q", env.Type)
	}
	var msg proto.PrivateMessagePayload
	if err := json.Unmarshal(env.Message, &msg); err != nil {
		t.Fatalf("unmarshal room payload: %v", err)
	}
	if msg.UserID != "alice" || msg.Content != "lunch?" || msg.PrivateChatRoomID != room.ID {
		t.Fatalf("room payload = %+v", msg)
	}

	for name, conn := range map[string]*websocket.Conn{"list": listConn, "total": totalConn} {
		if err := json.Unmarshal(readFrame(t, ctx, conn), &env); err != nil {
			t.Fatalf("unmarshal %s frame: %v", name, err)
		}
		var nudge proto.ChatListPayload
		if err := json.Unmarshal(env.Message, &nudge); err != nil {
			t.Fatalf("unmarshal %s payload: %v", name, err)
		}
		if nudge.UserID != "alice" {
			t.Fatalf("%s payload = %+v", name, nudge)
		}
	}
}

func TestGroupMessageCarriesLiveUnreadCount(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	raw := postJSON(t, ts, "/group_chat_room", CreateRoomRequest{
		Name:      "ops",
		MemberIDs: []string{"alice", "bob", "carol"},
	}, 201)
	var room GroupChatRoomResponse
	if err := json.Unmarshal(raw, &room); err != nil {
		t.Fatalf("unmarshal room: %v", err)
	}

	// alice and bob have the room open; carol only watches her chat list.
	aliceConn := dialWS(t, ctx, ts, fmt.Sprintf("/ws_group_message/%d/alice", room.ID))
	bobConn := dialWS(t, ctx, ts, fmt.Sprintf("/ws_group_message/%d/bob", room.ID))
	carolList := dialWS(t, ctx, ts, "/ws_group_chat_list/carol")

	postJSON(t, ts, fmt.Sprintf("/group_messages/%d", room.ID), PostGroupMessageRequest{
		UserID:  "alice",
		Content: "standup in 5",
	}, 201)

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		var env proto.Envelope
		if err := json.Unmarshal(readFrame(t, ctx, conn), &env); err != nil {
			t.Fatalf("unmarshal room frame: %v", err)
		}
		var msg proto.GroupMessagePayload
		if err := json.Unmarshal(env.Message, &msg); err != nil {
			t.Fatalf("unmarshal room payload: %v", err)
		}
		if msg.Content != "standup in 5" || msg.UnreadCount != 1 {
			t.Fatalf("room payload = %+v", msg)
		}
	}

	var env proto.Envelope
	if err := json.Unmarshal(readFrame(t, ctx, carolList), &env); err != nil {
		t.Fatalf("unmarshal list frame: %v", err)
	}
	var nudge proto.ChatListPayload
	if err := json.Unmarshal(env.Message, &nudge); err != nil {
		t.Fatalf("unmarshal list payload: %v", err)
	}
	if nudge.GroupChatRoomID != room.ID {
		t.Fatalf("list payload = %+v", nudge)
	}
}

func TestDoorStatusRawBroadcastAndPersistence(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var status struct {
		Status string `json:"status"`
	}
	getJSON(t, ts, "/door_status", &status)
	if status.Status != "unknown" {
		t.Fatalf("initial status = %q, want unknown", status.Status)
	}

	doorConn := dialWS(t, ctx, ts, "/ws_door_status")

	postJSON(t, ts, "/door_status", DoorStatusRequest{Status: "open"}, 200)

	// The door topic carries the bare status string, not JSON.
	if got := string(readFrame(t, ctx, doorConn)); got != "open" {
		t.Fatalf("door frame = %q, want open", got)
	}

	getJSON(t, ts, "/door_status", &status)
	if status.Status != "open" {
		t.Fatalf("status = %q, want open", status.Status)
	}

	// Reposting the same status still broadcasts.
	postJSON(t, ts, "/door_status", DoorStatusRequest{Status: "open"}, 200)
	if got := string(readFrame(t, ctx, doorConn)); got != "open" {
		t.Fatalf("door frame = %q, want open", got)
	}
}

func TestPresenceEchoReachesOtherSubscribers(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sender := dialWS(t, ctx, ts, "/ws_user_location")
	watcher := dialWS(t, ctx, ts, "/ws_user_location")

	frame, _ := json.Marshal(proto.PresencePayload{UserID: "alice", NowLocation: "3F talk room"})
	if err := sender.Write(ctx, websocket.MessageText, frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	var got proto.PresencePayload
	if err := json.Unmarshal(readFrame(t, ctx, watcher), &got); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if got.UserID != "alice" || got.NowLocation != "3F talk room" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sender := dialWS(t, ctx, ts, "/ws_user_status")
	watcher := dialWS(t, ctx, ts, "/ws_user_status")

	if err := sender.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write malformed frame: %v", err)
	}

	// The malformed frame is dropped; a well formed one still goes through.
	frame, _ := json.Marshal(proto.PresencePayload{UserID: "alice", Status: "出席"})
	if err := sender.Write(ctx, websocket.MessageText, frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	var got proto.PresencePayload
	if err := json.Unmarshal(readFrame(t, ctx, watcher), &got); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if got.UserID != "alice" || got.Status != "出席" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestRepeatedLocationPatchBroadcastsOnce(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	postJSON(t, ts, "/users", CreateUserRequest{
		Email:          "alice@lab.example",
		Name:           "alice",
		FirebaseUserID: "fb-alice",
	}, 201)

	watcher := dialWS(t, ctx, ts, "/ws_user_location")

	patchJSON(t, ts, "/update_user_location/fb-alice", UpdateLocationRequest{NowLocation: "研究室内"})
	patchJSON(t, ts, "/update_user_location/fb-alice", UpdateLocationRequest{NowLocation: "研究室内"})

	var got proto.PresencePayload
	if err := json.Unmarshal(readFrame(t, ctx, watcher), &got); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if got.UserID != "fb-alice" || got.NowLocation != "研究室内" {
		t.Fatalf("payload = %+v", got)
	}

	// The second, identical patch produced no frame; the next change is the
	// next thing the watcher sees.
	patchJSON(t, ts, "/update_user_location/fb-alice", UpdateLocationRequest{NowLocation: "キャンパス外"})
	if err := json.Unmarshal(readFrame(t, ctx, watcher), &got); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if got.NowLocation != "キャンパス外" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestSeatPostBroadcastsFullSet(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seatConn := dialWS(t, ctx, ts, "/ws_seat_map")

	postJSON(t, ts, "/seats", []SeatUpdate{
		{ID: 1, Status: "occupied"},
		{ID: 2, Status: "free"},
	}, 200)

	var seats []proto.SeatPayload
	if err := json.Unmarshal(readFrame(t, ctx, seatConn), &seats); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if len(seats) != 2 || seats[0].Status != "occupied" || seats[1].Status != "free" {
		t.Fatalf("seats = %+v", seats)
	}
}

func TestMeetingTextUpdateReachesMeetingTopic(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	raw := postJSON(t, ts, "/meetings", map[string]any{
		"title":   "weekly sync",
		"team":    "systems",
		"user_id": "alice",
	}, 201)
	var meeting struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &meeting); err != nil {
		t.Fatalf("unmarshal meeting: %v", err)
	}

	textConn := dialWS(t, ctx, ts, fmt.Sprintf("/ws_meeting_text/%d", meeting.ID))
	otherConn := dialWS(t, ctx, ts, fmt.Sprintf("/ws_meeting_text/%d", meeting.ID+1))

	patchJSON(t, ts, fmt.Sprintf("/update_main_text/%d", meeting.ID), UpdateMainTextRequest{MainText: "agenda: demos"})

	var got proto.MeetingTextPayload
	if err := json.Unmarshal(readFrame(t, ctx, textConn), &got); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if got.ID != meeting.ID || got.MainText != "agenda: demos" {
		t.Fatalf("payload = %+v", got)
	}

	// The neighbouring meeting's topic stays quiet.
	quietCtx, quietCancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer quietCancel()
	if _, _, err := otherConn.Read(quietCtx); err == nil {
		t.Fatal("unexpected frame on other meeting topic")
	}
}
