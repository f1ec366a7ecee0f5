package service

import (
	"errors"
	"strings"

	"chatbot_server/server/chat/domain"
	"chatbot_server/server/common/transport/httpresp"
)

var ErrMissingFields = errors.New(httpresp.ErrMissingFields)

// ValidateChatRequest trims every field and rejects the request when any
// of user id, message or conversation id is blank.
func ValidateChatRequest(req domain.ChatRequest) (domain.ChatRequest, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.Message = strings.TrimSpace(req.Message)
	req.ConversationID = strings.TrimSpace(req.ConversationID)
	if req.UserID == "" || req.Message == "" || req.ConversationID == "" {
		return req, ErrMissingFields
	}
	return req, nil
}
