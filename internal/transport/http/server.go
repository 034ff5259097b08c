package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/config"
	"github.com/sotalab/labdesk-server/internal/fanout"
	"github.com/sotalab/labdesk-server/internal/store"
)

// Coordinators bundles the fan-out coordinators the transport serves.
type Coordinators struct {
	Private    *fanout.PrivateChat
	Group      *fanout.GroupChat
	Presence   *fanout.Presence
	Attendance *fanout.Attendance
	Board      *fanout.Board
	Door       *fanout.Door
	Seat       *fanout.Seat
	Meeting    *fanout.Meeting
}

// NewServer builds the HTTP server with every REST and WebSocket route.
func NewServer(st store.Store, co Coordinators, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	users := NewUserHandlers(st, co.Presence, logger)
	router.GET("/users", users.ListUsers)
	router.GET("/users/:firebase_user_id", users.GetUser)
	router.GET("/user_id/:firebase_user_id", users.GetUserID)
	router.GET("/user_name_id/:firebase_user_id", users.GetUserNameID)
	router.GET("/chat_users/:firebase_user_id", users.ListChatUsers)
	router.POST("/users", users.CreateUser)
	router.PATCH("/users/:id", users.UpdateUser)
	router.PATCH("/update_user_location/:firebase_user_id", users.UpdateUserLocation)
	router.DELETE("/users/:user_id", users.DeleteUser)

	attendance := NewAttendanceHandlers(st, co.Presence, co.Attendance, logger)
	router.GET("/users_attendance", attendance.ListUsersAttendance)
	router.PATCH("/update_user_status/:user_id", attendance.UpdateUserStatus)
	router.GET("/attendances", attendance.ListAttendances)
	router.POST("/attendances", attendance.CreateAttendance)
	router.PATCH("/attendances/:id", attendance.UpdateAttendance)
	router.DELETE("/attendances/:id", attendance.DeleteAttendance)

	private := NewPrivateChatHandlers(st, co.Private, logger)
	router.GET("/private_chat_room/:user1_id/:user2_id", private.GetOrCreateRoom)
	router.GET("/private_chat_rooms/:user_id", private.ListRoomIDs)
	router.GET("/get_private_unread_count/:user_id", private.GetUnreadCount)
	router.GET("/private_messages/:private_chat_room_id", private.ListMessages)
	router.POST("/private_messages/:private_chat_room_id", private.PostMessage)
	router.PATCH("/private_message_unread_update/:private_chat_room_id/:user_id", private.ClearUnread)
	router.POST("/message_unread_update_websocket/:private_chat_room_id/:private_message_id", private.MarkMessageRead)
	router.PATCH("/update_datetime_private_chat_room/:private_chat_room_id", private.TouchRoom)

	group := NewGroupChatHandlers(st, co.Group, logger)
	router.POST("/group_chat_room", group.CreateRoom)
	router.GET("/get_group_chat_rooms", group.ListRooms)
	router.GET("/group_chat_room/:group_chat_room_id", group.GetRoom)
	router.GET("/get_entry_group_chat_room/:user_id", group.ListEntryRooms)
	router.GET("/get_not_entry_group_chat_room/:user_id", group.ListNotEntryRooms)
	router.GET("/group_chat_room_users/:group_chat_room_id", group.ListRoomMembers)
	router.GET("/get_group_chat_room_user/:group_chat_room_id/:user_id", group.GetRoomMember)
	router.GET("/get_users_not_in_group/:group_chat_room_id", group.ListUsersNotInRoom)
	router.PATCH("/group_member_update/:group_chat_room_id/:user_id", group.LeaveRoom)
	router.POST("/add_members/:group_chat_room_id", group.AddMembers)
	router.DELETE("/delete_group_chat_room/:group_chat_room_id", group.DeleteRoom)
	router.GET("/group_messages/:group_chat_room_id", group.ListMessages)
	router.POST("/group_messages/:group_chat_room_id", group.PostMessage)
	router.POST("/create_unread_messages", group.CreateUnread)
	router.PATCH("/group_message_unread_update/:group_chat_room_id/:user_id", group.ClearUnread)
	router.POST("/group_message_unread_update_websocket/:group_chat_room_id/:group_message_id/:user_id", group.ClearUnreadMessage)
	router.GET("/get_group_unread_count/:user_id", group.GetUnreadCount)

	board := NewBoardHandlers(st, co.Board, logger)
	router.GET("/boards/:user_id", board.ListBoards)
	router.POST("/boards", board.CreateBoard)
	router.DELETE("/boards/:id", board.DeleteBoard)
	router.GET("/acknowledgement_users/:board_id", board.ListAcknowledgedUsers)
	router.POST("/acknowledgements", board.CreateAcknowledgement)
	router.DELETE("/acknowledgements/:board_id/:user_id", board.DeleteAcknowledgement)

	door := NewDoorHandlers(st, co.Door, logger)
	router.GET("/door_status", door.GetStatus)
	router.POST("/door_status", door.PostStatus)

	seats := NewSeatHandlers(st, co.Seat, logger)
	router.GET("/seats", seats.ListSeats)
	router.POST("/seats", seats.UpsertSeats)

	meetings := NewMeetingHandlers(st, co.Meeting, logger)
	router.GET("/meetings", meetings.ListMeetings)
	router.GET("/meetings/:id", meetings.GetMeeting)
	router.POST("/meetings", meetings.CreateMeeting)
	router.PATCH("/meetings/:id", meetings.UpdateMeeting)
	router.PATCH("/update_main_text/:id", meetings.UpdateMainText)
	router.DELETE("/meetings/:id", meetings.DeleteMeeting)

	// WebSocket routes live on the plain mux: the accept hijacks the raw
	// ResponseWriter, which gin's wrapper does not allow.
	ws := NewWSHandlers(co.Private, co.Group, co.Presence, co.Attendance, co.Board, co.Door, co.Seat, co.Meeting, logger)
	mux := stdhttp.NewServeMux()
	mux.HandleFunc("GET /ws_private_message/{chat_room_id}", ws.PrivateRoom)
	mux.HandleFunc("GET /ws_private_userlist/{user_id}", ws.PrivateUserList)
	mux.HandleFunc("GET /ws_group_message/{group_chat_room_id}/{user_id}", ws.GroupRoom)
	mux.HandleFunc("GET /ws_group_chat_list/{user_id}", ws.GroupChatList)
	mux.HandleFunc("GET /ws_chat_user_total/{user_id}", ws.ChatUserTotal)
	mux.HandleFunc("GET /ws_user_location", ws.UserLocation)
	mux.HandleFunc("GET /ws_user_status", ws.UserStatus)
	mux.HandleFunc("GET /ws_attendance_list", ws.AttendanceList)
	mux.HandleFunc("GET /ws_board_list", ws.BoardList)
	mux.HandleFunc("GET /ws_acknowledgement_list", ws.AcknowledgementList)
	mux.HandleFunc("GET /ws_door_status", ws.DoorStatus)
	mux.HandleFunc("GET /ws_seat_map", ws.SeatMap)
	mux.HandleFunc("GET /ws_meeting_text/{meeting_id}", ws.MeetingText)
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
