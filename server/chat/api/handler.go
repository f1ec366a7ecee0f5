package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"chatbot_server/server/chat/service"
	commonauth "chatbot_server/server/common/auth"
	commonlog "chatbot_server/server/common/log"
	"chatbot_server/server/common/middleware"
	"chatbot_server/server/common/transport/httpresp"
)

type Handler struct {
	chat *service.ChatService
	hub  *service.Hub
	auth *commonauth.Service
	now  func() time.Time
}

func NewHandler(chat *service.ChatService, hub *service.Hub, auth *commonauth.Service) *Handler {
	return &Handler{chat: chat, hub: hub, auth: auth, now: time.Now}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(middleware.CORS())
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, NewHealthResponse(h.now())) })
	r.OPTIONS("/chat", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
	r.OPTIONS("/api/chat", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })

	authed := r.Group("")
	authed.Use(middleware.AuthRequired(h.auth))
	{
		authed.POST("/chat", h.createChat)
		authed.POST("/api/chat", h.createChat)
		authed.GET("/api/history/:conversation_id", h.getHistory)
		authed.GET("/ws", h.handleWS)
	}
}

func (h *Handler) createChat(c *gin.Context) {
	var payload chatPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(httpresp.ErrInvalidBody))
		return
	}
	req := payload.request()
	commonlog.Infof("event=chat_request source=http user_id=%s conversation_id=%s", req.UserID, req.ConversationID)

	res, err := h.chat.Handle(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrMissingFields) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(httpresp.ErrMissingFields))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(err.Error()))
		return
	}
	if h.hub != nil {
		h.hub.Broadcast(service.EventChatResponse, NewChatResponseEvent(req, res, h.now()))
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) getHistory(c *gin.Context) {
	conversationID := strings.TrimSpace(c.Param("conversation_id"))
	c.JSON(http.StatusOK, NewHistoryResponse(h.chat.History(c.Request.Context(), conversationID)))
}
