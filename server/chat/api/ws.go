package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatbot_server/server/chat/service"
	commonlog "chatbot_server/server/common/log"
	"chatbot_server/server/common/transport/httpresp"
)

const (
	EventSendMessage = "send_message"
	wsReadLimit      = 64 * 1024
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (h *Handler) handleWS(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse("socket channel is disabled"))
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		commonlog.Warnf("event=chat_ws action=upgrade status=failed error=%v", err)
		return
	}
	conn.SetReadLimit(wsReadLimit)

	client := &service.WSClient{ID: uuid.NewString(), Conn: conn}
	h.hub.Register(client)
	commonlog.Infof("event=chat_ws action=connect client_id=%s remote=%s", client.ID, c.ClientIP())
	defer func() {
		h.hub.Unregister(client)
		commonlog.Infof("event=chat_ws action=disconnect client_id=%s", client.ID)
	}()

	ctx := c.Request.Context()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame service.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			_ = client.Send(service.EventError, SocketErrorData{Message: httpresp.ErrInvalidBody})
			continue
		}
		switch frame.Event {
		case EventSendMessage:
			h.handleSocketMessage(ctx, client, frame.Data)
		default:
			commonlog.Debugf("event=chat_ws action=ignore client_id=%s kind=%s", client.ID, frame.Event)
		}
	}
}

// handleSocketMessage runs the chat flow for a socket frame. Results go to
// every listener; validation errors go back to the sender only.
func (h *Handler) handleSocketMessage(ctx context.Context, client *service.WSClient, data json.RawMessage) {
	var payload chatPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			_ = client.Send(service.EventError, SocketErrorData{Message: httpresp.ErrInvalidBody})
			return
		}
	}
	req := payload.request()
	commonlog.Infof("event=chat_request source=ws client_id=%s user_id=%s conversation_id=%s", client.ID, req.UserID, req.ConversationID)

	res, err := h.chat.Handle(ctx, req)
	if err != nil {
		_ = client.Send(service.EventError, SocketErrorData{Message: httpresp.ErrMissingFields})
		return
	}
	h.hub.Broadcast(service.EventChatResponse, NewChatResponseEvent(req, res, h.now()))
}
