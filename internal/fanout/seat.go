package fanout

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/proto"
	"github.com/sotalab/labdesk-server/internal/realtime"
	"github.com/sotalab/labdesk-server/internal/store"
)

const topicSeat = "seat_map"

// Seat fans out occupancy changes. Every batch update broadcasts the full
// updated seat set; clients replace their map wholesale rather than
// patching, and a client attaching later just fetches the current state
// over HTTP (no replay).
type Seat struct {
	reg *realtime.Registry[string]
	log *zerolog.Logger
}

// NewSeat builds the coordinator.
func NewSeat(logger *zerolog.Logger) *Seat {
	return &Seat{
		reg: realtime.NewRegistry[string]("seat", logger),
		log: logger,
	}
}

// Attach subscribes a connection to the seat map topic.
func (s *Seat) Attach(c *realtime.Conn) error {
	return s.reg.Attach(topicSeat, c)
}

// SeatsUpdated broadcasts the full seat set after a committed batch update.
func (s *Seat) SeatsUpdated(seats []*store.Seat) {
	payload := make([]proto.SeatPayload, 0, len(seats))
	for _, seat := range seats {
		payload = append(payload, proto.SeatPayload{ID: seat.ID, Status: seat.Status})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Msg("encode seat payload")
		return
	}
	s.reg.Broadcast(topicSeat, data)
}
