package fanout

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/proto"
	"github.com/sotalab/labdesk-server/internal/realtime"
)

// Global topics are single well-known keys; nobody ever enumerates them.
const (
	topicLocation = "user_location"
	topicStatus   = "user_status"
)

// Presence fans out location and status changes. The two feeds are separate
// global topics because the floor map and the attendance dashboard subscribe
// independently. Payloads are plain JSON objects, not enveloped frames; that
// is what the dashboard clients parse.
type Presence struct {
	locations *realtime.Registry[string]
	statuses  *realtime.Registry[string]
	log       *zerolog.Logger
}

// NewPresence builds the coordinator.
func NewPresence(logger *zerolog.Logger) *Presence {
	return &Presence{
		locations: realtime.NewRegistry[string]("user_location", logger),
		statuses:  realtime.NewRegistry[string]("user_status", logger),
		log:       logger,
	}
}

// AttachLocation subscribes a connection to the location topic.
func (p *Presence) AttachLocation(c *realtime.Conn) error {
	return p.locations.Attach(topicLocation, c)
}

// AttachStatus subscribes a connection to the status topic.
func (p *Presence) AttachStatus(c *realtime.Conn) error {
	return p.statuses.Attach(topicStatus, c)
}

// EchoLocation re-broadcasts a client frame to the location topic.
func (p *Presence) EchoLocation(message json.RawMessage) {
	p.locations.Broadcast(topicLocation, message)
}

// EchoStatus re-broadcasts a client frame to the status topic.
func (p *Presence) EchoStatus(message json.RawMessage) {
	p.statuses.Broadcast(topicStatus, message)
}

// LocationChanged announces a committed location change.
func (p *Presence) LocationChanged(userID, nowLocation string) {
	data, err := json.Marshal(proto.PresencePayload{
		UserID:      userID,
		NowLocation: nowLocation,
	})
	if err != nil {
		p.log.Error().Err(err).Msg("encode location payload")
		return
	}
	p.locations.Broadcast(topicLocation, data)
}

// StatusChanged announces a committed status change.
func (p *Presence) StatusChanged(userID, status string) {
	data, err := json.Marshal(proto.PresencePayload{
		UserID: userID,
		Status: status,
	})
	if err != nil {
		p.log.Error().Err(err).Msg("encode status payload")
		return
	}
	p.statuses.Broadcast(topicStatus, data)
}
