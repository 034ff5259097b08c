package fanout

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/proto"
	"github.com/sotalab/labdesk-server/internal/realtime"
	"github.com/sotalab/labdesk-server/internal/store"
)

const topicAttendance = "attendance_list"

// Attendance fans out roster changes (scheduled absences and attendance
// entries) to one global topic, tagging each payload with what happened so
// calendar views can apply the change incrementally.
type Attendance struct {
	reg *realtime.Registry[string]
	log *zerolog.Logger
}

// NewAttendance builds the coordinator.
func NewAttendance(logger *zerolog.Logger) *Attendance {
	return &Attendance{
		reg: realtime.NewRegistry[string]("attendance", logger),
		log: logger,
	}
}

// Attach subscribes a connection to the roster topic.
func (a *Attendance) Attach(c *realtime.Conn) error {
	return a.reg.Attach(topicAttendance, c)
}

// Echo re-broadcasts a client frame to the roster topic.
func (a *Attendance) Echo(message json.RawMessage) {
	a.reg.Broadcast(topicAttendance, message)
}

// Created announces a new attendance entry.
func (a *Attendance) Created(rec *store.Attendance) {
	a.publish(proto.AttendancePayload{
		Action:      proto.ActionCreate,
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		UserID:      rec.UserID,
		UserName:    rec.UserName,
		MailSend:    rec.MailSend,
		Start:       rec.Start.Format(timeLayout),
		End:         rec.End.Format(timeLayout),
		Undecided:   rec.Undecided,
	})
}

// Updated announces a changed attendance entry.
func (a *Attendance) Updated(rec *store.Attendance) {
	a.publish(proto.AttendancePayload{
		Action:      proto.ActionUpdate,
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		MailSend:    rec.MailSend,
		Start:       rec.Start.Format(timeLayout),
		End:         rec.End.Format(timeLayout),
		Undecided:   rec.Undecided,
	})
}

// Deleted announces a removed attendance entry by id only.
func (a *Attendance) Deleted(id int64) {
	a.publish(proto.AttendancePayload{
		Action: proto.ActionDelete,
		ID:     id,
	})
}

func (a *Attendance) publish(payload proto.AttendancePayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		a.log.Error().Err(err).Str("action", payload.Action).Msg("encode attendance payload")
		return
	}
	a.reg.Broadcast(topicAttendance, data)
}
