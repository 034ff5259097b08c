package fanout

import (
	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/proto"
	"github.com/sotalab/labdesk-server/internal/realtime"
)

// timeLayout matches the ISO-8601 timestamps the original clients expect.
const timeLayout = "2006-01-02T15:04:05Z07:00"

// NewTotalsRegistry builds the per-user unread-total topic space shared by
// the private and group chat coordinators.
func NewTotalsRegistry(logger *zerolog.Logger) *realtime.Registry[string] {
	return realtime.NewRegistry[string]("chat_totals", logger)
}

// wrap encodes a typed frame, logging instead of failing the fan-out when
// encoding goes wrong (it never should for our own payload types).
func wrap(logger *zerolog.Logger, frameType string, payload any) ([]byte, bool) {
	data, err := proto.Wrap(frameType, payload)
	if err != nil {
		logger.Error().Err(err).Str("frame_type", frameType).Msg("encode fan-out payload")
		return nil, false
	}
	return data, true
}
