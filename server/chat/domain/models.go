package domain

import "time"

// Turn is one user message plus its generated reply. Turns are written once
// and never updated.
type Turn struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	UserMessage    string    `json:"user_message"`
	BotResponse    string    `json:"bot_response"`
	Timestamp      time.Time `json:"timestamp"`
}

type HistoryEntry struct {
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Timestamp   time.Time `json:"timestamp"`
}

func (t Turn) HistoryEntry() HistoryEntry {
	return HistoryEntry{UserMessage: t.UserMessage, BotResponse: t.BotResponse, Timestamp: t.Timestamp}
}

type ChatRequest struct {
	UserID         string
	Message        string
	ConversationID string
}

type ChatResult struct {
	Response string `json:"response"`
	Saved    bool   `json:"saved"`
}

// ChatResponseEvent is broadcast to socket listeners after every answered
// chat request, whichever transport it arrived on.
type ChatResponseEvent struct {
	UserID         string `json:"user_id"`
	Message        string `json:"message"`
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	Timestamp      string `json:"timestamp"`
}
