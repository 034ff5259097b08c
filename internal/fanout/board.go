package fanout

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/proto"
	"github.com/sotalab/labdesk-server/internal/realtime"
	"github.com/sotalab/labdesk-server/internal/store"
)

const (
	topicBoard           = "board_list"
	topicAcknowledgement = "acknowledgement_list"
)

// Board fans out bulletin board activity over two global topics: one for
// posts, one for acknowledgements. They are separate feeds because a board
// view and an acknowledgement counter update independently.
type Board struct {
	boards *realtime.Registry[string]
	acks   *realtime.Registry[string]
	log    *zerolog.Logger
}

// NewBoard builds the coordinator.
func NewBoard(logger *zerolog.Logger) *Board {
	return &Board{
		boards: realtime.NewRegistry[string]("board", logger),
		acks:   realtime.NewRegistry[string]("acknowledgement", logger),
		log:    logger,
	}
}

// AttachBoards subscribes a connection to the board post feed.
func (b *Board) AttachBoards(c *realtime.Conn) error {
	return b.boards.Attach(topicBoard, c)
}

// AttachAcknowledgements subscribes a connection to the acknowledgement feed.
func (b *Board) AttachAcknowledgements(c *realtime.Conn) error {
	return b.acks.Attach(topicAcknowledgement, c)
}

// EchoBoards re-broadcasts a client frame to the board feed.
func (b *Board) EchoBoards(message json.RawMessage) {
	b.boards.Broadcast(topicBoard, message)
}

// EchoAcknowledgements re-broadcasts a client frame to the ack feed.
func (b *Board) EchoAcknowledgements(message json.RawMessage) {
	b.acks.Broadcast(topicAcknowledgement, message)
}

// PostCreated announces a new board post. A fresh post has no
// acknowledgements yet by definition.
func (b *Board) PostCreated(post *store.Board) {
	data, err := json.Marshal(proto.BoardPayload{
		Action:           proto.ActionCreate,
		ID:               post.ID,
		Content:          post.Content,
		CreatedAt:        post.CreatedAt.Format(timeLayout),
		Group:            post.Group,
		UserID:           post.UserID,
		UserName:         post.UserName,
		Acknowledgements: 0,
		IsAcknowledged:   false,
	})
	if err != nil {
		b.log.Error().Err(err).Msg("encode board payload")
		return
	}
	b.boards.Broadcast(topicBoard, data)
}

// PostDeleted announces a removed board post by id only.
func (b *Board) PostDeleted(id int64) {
	data, err := json.Marshal(proto.BoardPayload{
		Action: proto.ActionDelete,
		ID:     id,
	})
	if err != nil {
		b.log.Error().Err(err).Msg("encode board payload")
		return
	}
	b.boards.Broadcast(topicBoard, data)
}

// AcknowledgementCreated announces a new acknowledgement on a post.
func (b *Board) AcknowledgementCreated(boardID int64) {
	b.publishAck(proto.ActionCreate, boardID)
}

// AcknowledgementDeleted announces a withdrawn acknowledgement.
func (b *Board) AcknowledgementDeleted(boardID int64) {
	b.publishAck(proto.ActionDelete, boardID)
}

func (b *Board) publishAck(action string, boardID int64) {
	data, err := json.Marshal(proto.AcknowledgementPayload{
		Action:  action,
		BoardID: boardID,
	})
	if err != nil {
		b.log.Error().Err(err).Msg("encode acknowledgement payload")
		return
	}
	b.acks.Broadcast(topicAcknowledgement, data)
}
