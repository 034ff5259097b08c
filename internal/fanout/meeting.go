package fanout

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/proto"
	"github.com/sotalab/labdesk-server/internal/realtime"
)

// Meeting fans out live main-text edits, keyed by meeting id. The text is a
// full replacement: concurrent editors race at the persistence layer and
// whoever commits last is what everyone sees. No diffing, no merging.
type Meeting struct {
	reg *realtime.Registry[int64]
	log *zerolog.Logger
}

// NewMeeting builds the coordinator.
func NewMeeting(logger *zerolog.Logger) *Meeting {
	return &Meeting{
		reg: realtime.NewRegistry[int64]("meeting_text", logger),
		log: logger,
	}
}

// Attach subscribes a connection to one meeting's live text.
func (m *Meeting) Attach(meetingID int64, c *realtime.Conn) error {
	return m.reg.Attach(meetingID, c)
}

// SubscriberCount reports how many connections follow the meeting.
func (m *Meeting) SubscriberCount(meetingID int64) int {
	return m.reg.SubscriberCount(meetingID)
}

// MainTextUpdated broadcasts the committed replacement text.
func (m *Meeting) MainTextUpdated(meetingID int64, mainText string) {
	data, err := json.Marshal(proto.MeetingTextPayload{
		ID:       meetingID,
		MainText: mainText,
	})
	if err != nil {
		m.log.Error().Err(err).Int64("meeting_id", meetingID).Msg("encode meeting payload")
		return
	}
	m.reg.Broadcast(meetingID, data)
}
