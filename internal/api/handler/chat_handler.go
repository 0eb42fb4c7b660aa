package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shopassist/shopchat/internal/api/backend"
)

// ChatStore is the conversation storage the chatbot endpoints delegate to.
type ChatStore interface {
	Send(ctx context.Context, userID int64, text, sessionID string) (*backend.Exchange, error)
	List(ctx context.Context, userID int64) []backend.ChatSession
	Get(ctx context.Context, userID int64, sessionID string) (*backend.ChatSession, error)
	Reset(ctx context.Context, userID int64, sessionID string) error
	Delete(ctx context.Context, userID int64, sessionID string) error
}

type ChatHandler struct {
	chats ChatStore
}

func NewChatHandler(chats ChatStore) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// Message records a user message and answers it. Without session_id a new
// session is started.
//
// @Summary      Send a message
// @Tags         chatbot
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      messageRequest  true  "Message and optional session id"
// @Success      200   {object}  exchangeResponse
// @Failure      400   {object}  map[string][]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /chatbot/message/ [post]
func (h *ChatHandler) Message(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON parse error")
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := c.Validate(&req); err != nil {
		return err
	}

	ex, err := h.chats.Send(c.Request().Context(), userID, req.Message, req.SessionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toExchangeResponse(ex))
}

// Sessions lists the caller's sessions in the version 1 envelope.
//
// @Summary      List sessions
// @Tags         chatbot
// @Produce      json
// @Security     BearerAuth
// @Param        Accept  header    string  false  "application/json; version=1"
// @Success      200     {object}  sessionListResponse
// @Failure      401     {object}  map[string]string
// @Failure      406     {object}  map[string]string
// @Router       /chatbot/sessions/ [get]
func (h *ChatHandler) Sessions(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	sessions := h.chats.List(c.Request().Context(), userID)
	resp := sessionListResponse{Sessions: make([]chatSessionResponse, len(sessions))}
	for i, s := range sessions {
		resp.Sessions[i] = toSessionResponse(s)
	}
	return c.JSON(http.StatusOK, resp)
}

// Session returns one session with its messages.
//
// @Summary      Get a session
// @Tags         chatbot
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  chatSessionResponse
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /chatbot/sessions/{id}/ [get]
func (h *ChatHandler) Session(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	s, err := h.chats.Get(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(*s))
}

// Reset clears a session's history and seeds a fresh greeting.
//
// @Summary      Reset a session
// @Tags         chatbot
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  detailResponse
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /chatbot/sessions/{id}/reset/ [post]
func (h *ChatHandler) Reset(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	if err := h.chats.Reset(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detailResponse{Message: "Chat session reset successfully"})
}

// Delete removes a session.
//
// @Summary      Delete a session
// @Tags         chatbot
// @Security     BearerAuth
// @Param        id   path  string  true  "Session id"
// @Success      204
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /chatbot/sessions/{id}/delete/ [delete]
func (h *ChatHandler) Delete(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	if err := h.chats.Delete(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
