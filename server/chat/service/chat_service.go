package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chatbot_server/server/chat/domain"
	commonlog "chatbot_server/server/common/log"
)

const TurnCreatedEvent = "chat.turn.created"

// TurnStore is the persistence capability the chat flow needs.
type TurnStore interface {
	SaveTurn(ctx context.Context, turn domain.Turn) error
	History(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error)
	Recent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error)
}

// EventPublisher forwards saved turns to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

type Options struct {
	HistoryLimit int
	// UseHistory feeds the newest HistoryLimit turns of the conversation to
	// the completer.
	UseHistory bool
	Now        func() time.Time
	NewID      func() string
}

type ChatService struct {
	responder *Responder
	store     TurnStore
	events    EventPublisher
	opts      Options
}

func NewChatService(responder *Responder, store TurnStore, events EventPublisher, opts Options) *ChatService {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &ChatService{responder: responder, store: store, events: events, opts: opts}
}

// Handle answers one chat request. The only error it returns is
// ErrMissingFields; generation and persistence failures degrade into the
// apology text and Saved=false respectively.
func (s *ChatService) Handle(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	req, err := ValidateChatRequest(req)
	if err != nil {
		return domain.ChatResult{}, err
	}
	commonlog.Infof("event=chat_request action=process user_id=%s conversation_id=%s", req.UserID, req.ConversationID)

	var history []domain.Turn
	if s.opts.UseHistory {
		history = s.loadContext(ctx, req.ConversationID)
	}
	reply := s.responder.Generate(ctx, req.Message, history)

	turn := domain.Turn{
		ID:             s.opts.NewID(),
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		UserMessage:    req.Message,
		BotResponse:    reply,
		Timestamp:      s.opts.Now().UTC(),
	}
	saved := s.save(ctx, turn)
	if saved {
		s.publish(ctx, turn)
	}
	return domain.ChatResult{Response: reply, Saved: saved}, nil
}

// History returns the stored turns of a conversation. A store failure yields
// an empty list.
func (s *ChatService) History(ctx context.Context, conversationID string) []domain.HistoryEntry {
	turns := s.loadHistory(ctx, conversationID)
	items := make([]domain.HistoryEntry, 0, len(turns))
	for _, t := range turns {
		items = append(items, t.HistoryEntry())
	}
	return items
}

func (s *ChatService) loadHistory(ctx context.Context, conversationID string) []domain.Turn {
	if s.store == nil {
		return nil
	}
	startedAt := time.Now()
	turns, err := s.store.History(ctx, conversationID, s.opts.HistoryLimit)
	if err != nil {
		commonlog.Errorf("event=chat_history action=read status=failed conversation_id=%s latency_ms=%d error=%v", conversationID, time.Since(startedAt).Milliseconds(), err)
		return nil
	}
	if len(turns) > s.opts.HistoryLimit {
		turns = turns[:s.opts.HistoryLimit]
	}
	return turns
}

func (s *ChatService) loadContext(ctx context.Context, conversationID string) []domain.Turn {
	if s.store == nil {
		return nil
	}
	turns, err := s.store.Recent(ctx, conversationID, s.opts.HistoryLimit)
	if err != nil {
		commonlog.Errorf("event=chat_history action=read_context status=failed conversation_id=%s error=%v", conversationID, err)
		return nil
	}
	if len(turns) > s.opts.HistoryLimit {
		turns = turns[len(turns)-s.opts.HistoryLimit:]
	}
	return turns
}

func (s *ChatService) save(ctx context.Context, turn domain.Turn) bool {
	if s.store == nil {
		commonlog.Warnf("event=chat_turn_persist action=create status=skipped reason=no_store conversation_id=%s", turn.ConversationID)
		return false
	}
	startedAt := time.Now()
	if err := s.store.SaveTurn(ctx, turn); err != nil {
		commonlog.Errorf("event=chat_turn_persist action=create status=failed conversation_id=%s user_id=%s latency_ms=%d error=%v", turn.ConversationID, turn.UserID, time.Since(startedAt).Milliseconds(), err)
		return false
	}
	commonlog.Infof("event=chat_turn_persist action=create status=ok conversation_id=%s turn_id=%s latency_ms=%d", turn.ConversationID, turn.ID, time.Since(startedAt).Milliseconds())
	return true
}

func (s *ChatService) publish(ctx context.Context, turn domain.Turn) {
	if s.events == nil {
		return
	}
	event := map[string]any{
		"event":           TurnCreatedEvent,
		"turn_id":         turn.ID,
		"user_id":         turn.UserID,
		"conversation_id": turn.ConversationID,
		"created_at":      turn.Timestamp,
	}
	if err := s.events.Publish(ctx, TurnCreatedEvent, event); err != nil {
		commonlog.Warnf("event=chat_turn_publish status=failed turn_id=%s error=%v", turn.ID, err)
	}
}
