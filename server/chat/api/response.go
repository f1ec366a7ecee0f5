package api

import (
	"strings"
	"time"

	"chatbot_server/server/chat/domain"
	"chatbot_server/server/common/transport/httpresp"
)

type ErrorResponse = httpresp.ErrorResponse
type HealthResponse = httpresp.HealthResponse

type HistoryResponse struct {
	History []domain.HistoryEntry `json:"history"`
}

type SocketErrorData struct {
	Message string `json:"message"`
}

// chatPayload is the wire shape of a chat request. The camelCase fields are
// accepted for older clients and folded into the snake_case contract here.
type chatPayload struct {
	UserID              string `json:"user_id"`
	UserIDCamel         string `json:"userId"`
	Message             string `json:"message"`
	ConversationID      string `json:"conversation_id"`
	ConversationIDCamel string `json:"conversationId"`
}

func (p chatPayload) request() domain.ChatRequest {
	return domain.ChatRequest{
		UserID:         firstNonBlank(p.UserID, p.UserIDCamel),
		Message:        strings.TrimSpace(p.Message),
		ConversationID: firstNonBlank(p.ConversationID, p.ConversationIDCamel),
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func NewErrorResponse(message string) ErrorResponse {
	return httpresp.NewErrorResponse(message)
}

func NewHealthResponse(now time.Time) HealthResponse {
	return httpresp.NewHealthResponse(now)
}

func NewHistoryResponse(items []domain.HistoryEntry) HistoryResponse {
	if items == nil {
		items = []domain.HistoryEntry{}
	}
	return HistoryResponse{History: items}
}

func NewChatResponseEvent(req domain.ChatRequest, res domain.ChatResult, now time.Time) domain.ChatResponseEvent {
	return domain.ChatResponseEvent{
		UserID:         req.UserID,
		Message:        req.Message,
		Response:       res.Response,
		ConversationID: req.ConversationID,
		Timestamp:      now.Format(time.RFC3339Nano),
	}
}
