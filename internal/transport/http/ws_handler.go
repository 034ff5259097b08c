package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/fanout"
	"github.com/sotalab/labdesk-server/internal/realtime"
)

// WSHandlers upgrades HTTP requests into live topic subscriptions. Every
// endpoint attaches the new connection to exactly one topic; inbound frames
// are echo-broadcast to that same topic.
//
// These handlers are mounted on the plain ServeMux, not on gin: the
// websocket accept must hijack the raw ResponseWriter, and gin's writer
// wrapper refuses the hijack once the handshake bytes have gone out.
type WSHandlers struct {
	private    *fanout.PrivateChat
	group      *fanout.GroupChat
	presence   *fanout.Presence
	attendance *fanout.Attendance
	board      *fanout.Board
	door       *fanout.Door
	seat       *fanout.Seat
	meeting    *fanout.Meeting
	log        *zerolog.Logger
}

// NewWSHandlers builds the WebSocket handler set over the coordinators.
func NewWSHandlers(
	private *fanout.PrivateChat,
	group *fanout.GroupChat,
	presence *fanout.Presence,
	attendance *fanout.Attendance,
	board *fanout.Board,
	door *fanout.Door,
	seat *fanout.Seat,
	meeting *fanout.Meeting,
	logger *zerolog.Logger,
) *WSHandlers {
	return &WSHandlers{
		private:    private,
		group:      group,
		presence:   presence,
		attendance: attendance,
		board:      board,
		door:       door,
		seat:       seat,
		meeting:    meeting,
		log:        logger,
	}
}

// PrivateRoom subscribes to one private chat room's message feed.
// GET /ws_private_message/{chat_room_id}
func (h *WSHandlers) PrivateRoom(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	roomID, ok := wsPathInt64(w, r, "chat_room_id")
	if !ok {
		return
	}
	h.serve(w, r,
		func(conn *realtime.Conn) error { return h.private.AttachRoom(roomID, conn) },
		func(msg json.RawMessage) { h.private.EchoRoom(roomID, msg) })
}

// PrivateUserList subscribes to a user's private chat-list topic.
// GET /ws_private_userlist/{user_id}
func (h *WSHandlers) PrivateUserList(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	userID := r.PathValue("user_id")
	h.serve(w, r,
		func(conn *realtime.Conn) error { return h.private.AttachUserList(userID, conn) },
		func(msg json.RawMessage) { h.private.EchoUserList(userID, msg) })
}

// GroupRoom subscribes to one group chat room's message feed.
// GET /ws_group_message/{group_chat_room_id}/{user_id}
func (h *WSHandlers) GroupRoom(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	roomID, ok := wsPathInt64(w, r, "group_chat_room_id")
	if !ok {
		return
	}
	h.serve(w, r,
		func(conn *realtime.Conn) error { return h.group.AttachRoom(roomID, conn) },
		func(msg json.RawMessage) { h.group.EchoRoom(roomID, msg) })
}

// GroupChatList subscribes to a user's group chat-list topic.
// GET /ws_group_chat_list/{user_id}
func (h *WSHandlers) GroupChatList(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	userID := r.PathValue("user_id")
	h.serve(w, r,
		func(conn *realtime.Conn) error { return h.group.AttachUserList(userID, conn) },
		func(msg json.RawMessage) { h.group.EchoUserList(userID, msg) })
}

// ChatUserTotal subscribes to a user's total-unread topic, which both chat
// domains feed.
// GET /ws_chat_user_total/{user_id}
func (h *WSHandlers) ChatUserTotal(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	userID := r.PathValue("user_id")
	h.serve(w, r,
		func(conn *realtime.Conn) error { return h.group.AttachTotals(userID, conn) },
		func(msg json.RawMessage) { h.group.EchoTotals(userID, msg) })
}

// UserLocation subscribes to the global location topic.
// GET /ws_user_location
func (h *WSHandlers) UserLocation(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	h.serve(w, r, h.presence.AttachLocation, h.presence.EchoLocation)
}

// UserStatus subscribes to the global status topic.
// GET /ws_user_status
func (h *WSHandlers) UserStatus(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	h.serve(w, r, h.presence.AttachStatus, h.presence.EchoStatus)
}

// AttendanceList subscribes to the global roster topic.
// GET /ws_attendance_list
func (h *WSHandlers) AttendanceList(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	h.serve(w, r, h.attendance.Attach, h.attendance.Echo)
}

// BoardList subscribes to the global board post topic.
// GET /ws_board_list
func (h *WSHandlers) BoardList(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	h.serve(w, r, h.board.AttachBoards, h.board.EchoBoards)
}

// AcknowledgementList subscribes to the global acknowledgement topic.
// GET /ws_acknowledgement_list
func (h *WSHandlers) AcknowledgementList(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	h.serve(w, r, h.board.AttachAcknowledgements, h.board.EchoAcknowledgements)
}

// DoorStatus subscribes to the door topic. Frames are raw status strings on
// both directions, so this is the one endpoint that skips JSON validation.
// GET /ws_door_status
func (h *WSHandlers) DoorStatus(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	h.serveRaw(w, r, h.door.Attach, func(data []byte) { h.door.StatusPosted(string(data)) })
}

// SeatMap subscribes to the seat map topic. Seat clients never send; any
// inbound frame is ignored.
// GET /ws_seat_map
func (h *WSHandlers) SeatMap(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	h.serve(w, r, h.seat.Attach, nil)
}

// MeetingText subscribes to one meeting's live main text.
// GET /ws_meeting_text/{meeting_id}
func (h *WSHandlers) MeetingText(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	meetingID, ok := wsPathInt64(w, r, "meeting_id")
	if !ok {
		return
	}
	h.serve(w, r, func(conn *realtime.Conn) error { return h.meeting.Attach(meetingID, conn) }, nil)
}

// serve runs the standard JSON-topic session: accept, open, attach, then
// pump frames both ways until either side fails. Malformed inbound JSON is
// logged and dropped without touching the connection; transport errors end
// the session and the connection's close hooks detach it everywhere.
func (h *WSHandlers) serve(w stdhttp.ResponseWriter, r *stdhttp.Request, attach func(*realtime.Conn) error, echo func(json.RawMessage)) {
	h.session(w, r, attach, func(data []byte) {
		if !json.Valid(data) {
			h.log.Warn().Msg("dropping malformed ws frame")
			return
		}
		if echo != nil {
			echo(data)
		}
	})
}

// serveRaw runs a session whose frames are opaque text, not JSON.
func (h *WSHandlers) serveRaw(w stdhttp.ResponseWriter, r *stdhttp.Request, attach func(*realtime.Conn) error, echo func([]byte)) {
	h.session(w, r, attach, echo)
}

func (h *WSHandlers) session(w stdhttp.ResponseWriter, r *stdhttp.Request, attach func(*realtime.Conn) error, onFrame func([]byte)) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer ws.Close(websocket.StatusInternalError, "internal error")

	conn := realtime.NewConn()
	if err := conn.Open(); err != nil {
		h.log.Error().Err(err).Str("conn_id", conn.ID()).Msg("open connection")
		return
	}
	if err := attach(conn); err != nil {
		h.log.Error().Err(err).Str("conn_id", conn.ID()).Msg("attach connection")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, ws, conn, onFrame)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, ws, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	conn.Close()
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("ws connection closed with error")
		}
	}

	ws.Close(status, reason)
}

func (h *WSHandlers) readLoop(ctx context.Context, ws *websocket.Conn, conn *realtime.Conn, onFrame func([]byte)) error {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return err
		}
		if onFrame != nil {
			onFrame(data)
		}
	}
}

func (h *WSHandlers) writeLoop(ctx context.Context, ws *websocket.Conn, conn *realtime.Conn) error {
	for {
		select {
		case payload, ok := <-conn.Outbox():
			if !ok {
				return nil
			}
			if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
				h.log.Error().Err(err).Str("conn_id", conn.ID()).Msg("write ws payload")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// wsPathInt64 parses a numeric path value, replying 400 on garbage before
// any upgrade is attempted.
func wsPathInt64(w stdhttp.ResponseWriter, r *stdhttp.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(stdhttp.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return v, true
}
