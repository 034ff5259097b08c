package fanout

import (
	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/realtime"
)

const topicDoor = "door_status"

// Door fans out the lab door status. The payload is the raw status string,
// not JSON; the door display hardware reads it as-is.
type Door struct {
	reg *realtime.Registry[string]
	log *zerolog.Logger
}

// NewDoor builds the coordinator.
func NewDoor(logger *zerolog.Logger) *Door {
	return &Door{
		reg: realtime.NewRegistry[string]("door", logger),
		log: logger,
	}
}

// Attach subscribes a connection to the door status topic.
func (d *Door) Attach(c *realtime.Conn) error {
	return d.reg.Attach(topicDoor, c)
}

// StatusPosted broadcasts a committed door status. Echoed client frames go
// through the same path since both carry the bare status string.
func (d *Door) StatusPosted(status string) {
	d.reg.Broadcast(topicDoor, []byte(status))
}
