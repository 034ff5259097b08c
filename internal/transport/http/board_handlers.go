package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sotalab/labdesk-server/internal/fanout"
	"github.com/sotalab/labdesk-server/internal/store"
)

// BoardHandlers provides HTTP handlers for bulletin board posts and their
// acknowledgements.
type BoardHandlers struct {
	store  store.Store
	fanout *fanout.Board
	log    *zerolog.Logger
}

// NewBoardHandlers creates a new board handlers instance.
func NewBoardHandlers(st store.Store, f *fanout.Board, logger *zerolog.Logger) *BoardHandlers {
	return &BoardHandlers{
		store:  st,
		fanout: f,
		log:    logger,
	}
}

// CreateBoardRequest represents the create post body.
type CreateBoardRequest struct {
	Content string `json:"content" binding:"required"`
	Group   string `json:"group"`
	UserID  string `json:"user_id" binding:"required"`
}

// CreateAcknowledgementRequest represents the acknowledge body.
type CreateAcknowledgementRequest struct {
	BoardID int64  `json:"board_id" binding:"required"`
	UserID  string `json:"user_id" binding:"required"`
}

// BoardResponse represents a post in API responses.
type BoardResponse struct {
	ID               int64  `json:"id"`
	Content          string `json:"content"`
	CreatedAt        string `json:"created_at"`
	Group            string `json:"group"`
	UserID           string `json:"user_id"`
	UserName         string `json:"user_name"`
	Acknowledgements int    `json:"acknowledgements"`
	IsAcknowledged   bool   `json:"is_acknowledged"`
}

func boardResponse(b *store.Board) BoardResponse {
	return BoardResponse{
		ID:               b.ID,
		Content:          b.Content,
		CreatedAt:        b.CreatedAt.Format(time.RFC3339),
		Group:            b.Group,
		UserID:           b.UserID,
		UserName:         b.UserName,
		Acknowledgements: b.Acknowledgements,
		IsAcknowledged:   b.IsAcknowledged,
	}
}

// ListBoards returns one descending page of posts annotated for the
// requesting user.
// GET /boards/:user_id?page=N
func (h *BoardHandlers) ListBoards(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	boards, err := h.store.ListBoards(c.Request.Context(), c.Param("user_id"), page)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list boards")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]BoardResponse, 0, len(boards))
	for _, b := range boards {
		out = append(out, boardResponse(b))
	}
	c.JSON(http.StatusOK, out)
}

// CreateBoard persists a post and fans it out on the board topic.
// POST /boards
func (h *BoardHandlers) CreateBoard(c *gin.Context) {
	var req CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create board request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	board, err := h.store.CreateBoard(c.Request.Context(), &store.Board{
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
		Group:     req.Group,
		UserID:    req.UserID,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create board")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.fanout.PostCreated(board)
	c.JSON(http.StatusCreated, boardResponse(board))
}

// DeleteBoard removes a post and fans out the deletion.
// DELETE /boards/:id
func (h *BoardHandlers) DeleteBoard(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	board, err := h.store.GetBoard(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("board_id", id).Msg("failed to get board")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if board == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "board not found"})
		return
	}

	if err := h.store.DeleteBoard(c.Request.Context(), id); err != nil {
		h.log.Error().Err(err).Int64("board_id", id).Msg("failed to delete board")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.fanout.PostDeleted(id)
	c.Status(http.StatusNoContent)
}

// ListAcknowledgedUsers lists the users who acknowledged a post.
// GET /acknowledgement_users/:board_id
func (h *BoardHandlers) ListAcknowledgedUsers(c *gin.Context) {
	boardID, ok := pathInt64(c, "board_id")
	if !ok {
		return
	}

	users, err := h.store.ListAcknowledgedUsers(c.Request.Context(), boardID)
	if err != nil {
		h.log.Error().Err(err).Int64("board_id", boardID).Msg("failed to list acknowledged users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, userResponses(users))
}

// CreateAcknowledgement marks a post seen and fans it out on the
// acknowledgement topic. Acknowledging twice is a no-op.
// POST /acknowledgements
func (h *BoardHandlers) CreateAcknowledgement(c *gin.Context) {
	var req CreateAcknowledgementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create acknowledgement request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	existing, err := h.store.GetAcknowledgement(c.Request.Context(), req.BoardID, req.UserID)
	if err != nil {
		h.log.Error().Err(err).Int64("board_id", req.BoardID).Msg("failed to get acknowledgement")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusOK, gin.H{"id": existing.ID, "board_id": existing.BoardID, "user_id": existing.UserID})
		return
	}

	ack, err := h.store.CreateAcknowledgement(c.Request.Context(), &store.Acknowledgement{
		BoardID: req.BoardID,
		UserID:  req.UserID,
	})
	if err != nil {
		h.log.Error().Err(err).Int64("board_id", req.BoardID).Msg("failed to create acknowledgement")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.fanout.AcknowledgementCreated(ack.BoardID)
	c.JSON(http.StatusCreated, gin.H{"id": ack.ID, "board_id": ack.BoardID, "user_id": ack.UserID})
}

// DeleteAcknowledgement withdraws an acknowledgement and fans it out.
// DELETE /acknowledgements/:board_id/:user_id
func (h *BoardHandlers) DeleteAcknowledgement(c *gin.Context) {
	boardID, ok := pathInt64(c, "board_id")
	if !ok {
		return
	}
	userID := c.Param("user_id")

	if err := h.store.DeleteAcknowledgement(c.Request.Context(), boardID, userID); err != nil {
		h.log.Error().Err(err).Int64("board_id", boardID).Msg("failed to delete acknowledgement")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.fanout.AcknowledgementDeleted(boardID)
	c.Status(http.StatusNoContent)
}
