package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbot_server/server/chat/domain"
	"chatbot_server/server/chat/store"
)

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	panics  bool
	calls   int
	history []domain.Turn
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, history []domain.Turn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.history = history
	if f.panics {
		panic("model crashed")
	}
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "echo: " + prompt, nil
}

type failingStore struct {
	saves int
}

func (s *failingStore) SaveTurn(context.Context, domain.Turn) error {
	s.saves++
	return errors.New("connection refused")
}

func (s *failingStore) History(context.Context, string, int) ([]domain.Turn, error) {
	return nil, errors.New("connection refused")
}

func (s *failingStore) Recent(context.Context, string, int) ([]domain.Turn, error) {
	return nil, errors.New("connection refused")
}

type recordingPublisher struct {
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ any) error {
	p.keys = append(p.keys, key)
	return nil
}

type keepNewest struct{}

func (keepNewest) Fit(_ string, history []domain.Turn) []domain.Turn {
	return history[len(history)-1:]
}

func turnMessages(turns []domain.Turn) []string {
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.UserMessage)
	}
	return out
}

func fixedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("turn-%d", n)
	}
}

func TestValidateChatRequest(t *testing.T) {
	req, err := ValidateChatRequest(domain.ChatRequest{UserID: " u1 ", Message: "hello", ConversationID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", req.UserID)

	cases := []domain.ChatRequest{
		{Message: "hello", ConversationID: "c1"},
		{UserID: "u1", ConversationID: "c1"},
		{UserID: "u1", Message: "hello"},
		{UserID: "u1", Message: "   ", ConversationID: "c1"},
	}
	for _, c := range cases {
		_, err := ValidateChatRequest(c)
		assert.ErrorIs(t, err, ErrMissingFields)
	}
}

func TestHandleMissingFieldsSkipsGenerationAndPersistence(t *testing.T) {
	completer := &fakeCompleter{}
	st := &failingStore{}
	svc := NewChatService(NewResponder(completer, nil), st, nil, Options{})

	_, err := svc.Handle(context.Background(), domain.ChatRequest{UserID: "u1", Message: "hello"})
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Equal(t, 0, completer.calls)
	assert.Equal(t, 0, st.saves)
}

func TestHandleSavesTurnAndPublishes(t *testing.T) {
	mem := store.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := NewChatService(NewResponder(&fakeCompleter{}, nil), mem, pub, Options{Now: fixedClock(), NewID: sequentialIDs()})

	res, err := svc.Handle(context.Background(), domain.ChatRequest{UserID: "u1", Message: "hello", ConversationID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, domain.ChatResult{Response: "echo: hello", Saved: true}, res)
	assert.Equal(t, []string{TurnCreatedEvent}, pub.keys)

	turns, err := mem.History(context.Background(), "c1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "turn-1", turns[0].ID)
	assert.Equal(t, "hello", turns[0].UserMessage)
	assert.Equal(t, "echo: hello", turns[0].BotResponse)
}

func TestHandleStoreFailureReportsNotSaved(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewChatService(NewResponder(&fakeCompleter{reply: "hi there"}, nil), &failingStore{}, pub, Options{UseHistory: true})

	res, err := svc.Handle(context.Background(), domain.ChatRequest{UserID: "u1", Message: "hello", ConversationID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", res.Response)
	assert.False(t, res.Saved)
	assert.Empty(t, pub.keys)

	assert.Empty(t, svc.History(context.Background(), "c1"))
}

func TestHandleWithoutStore(t *testing.T) {
	svc := NewChatService(NewResponder(&fakeCompleter{}, nil), nil, nil, Options{})
	res, err := svc.Handle(context.Background(), domain.ChatRequest{UserID: "u1", Message: "hello", ConversationID: "c1"})
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.NotEmpty(t, res.Response)
}

func TestHandleGenerationFailureReturnsApology(t *testing.T) {
	for _, completer := range []*fakeCompleter{
		{err: errors.New("model unavailable")},
		{panics: true},
		{reply: "   "},
	} {
		svc := NewChatService(NewResponder(completer, nil), store.NewMemoryStore(), nil, Options{})
		res, err := svc.Handle(context.Background(), domain.ChatRequest{UserID: "u1", Message: "hello", ConversationID: "c1"})
		require.NoError(t, err)
		assert.Equal(t, ApologyResponse, res.Response)
		assert.True(t, res.Saved)
	}
}

func TestHandleFeedsFittedHistory(t *testing.T) {
	mem := store.NewMemoryStore()
	completer := &fakeCompleter{}
	svc := NewChatService(NewResponder(completer, keepNewest{}), mem, nil, Options{UseHistory: true, Now: fixedClock(), NewID: sequentialIDs()})
	ctx := context.Background()

	for _, msg := range []string{"one", "two", "three"} {
		_, err := svc.Handle(ctx, domain.ChatRequest{UserID: "u1", Message: msg, ConversationID: "c1"})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"two"}, turnMessages(completer.history))
}

func TestHandleContextUsesNewestTurnsOnceLimitIsExceeded(t *testing.T) {
	mem := store.NewMemoryStore()
	completer := &fakeCompleter{}
	svc := NewChatService(NewResponder(completer, nil), mem, nil, Options{HistoryLimit: 3, UseHistory: true, Now: fixedClock(), NewID: sequentialIDs()})
	ctx := context.Background()

	for _, msg := range []string{"m1", "m2", "m3", "m4", "m5", "m6"} {
		_, err := svc.Handle(ctx, domain.ChatRequest{UserID: "u1", Message: msg, ConversationID: "c1"})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"m3", "m4", "m5"}, turnMessages(completer.history))

	// The history endpoint still lists the conversation from its start.
	assert.Equal(t, "m1", svc.History(ctx, "c1")[0].UserMessage)
}

func TestHistoryRespectsLimitAndOrder(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := NewChatService(NewResponder(&fakeCompleter{}, nil), mem, nil, Options{HistoryLimit: 2, Now: fixedClock(), NewID: sequentialIDs()})
	ctx := context.Background()
	for _, msg := range []string{"a", "b", "c"} {
		_, err := svc.Handle(ctx, domain.ChatRequest{UserID: "u1", Message: msg, ConversationID: "c1"})
		require.NoError(t, err)
	}

	items := svc.History(ctx, "c1")
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].UserMessage)
	assert.True(t, items[0].Timestamp.Before(items[1].Timestamp))
}
