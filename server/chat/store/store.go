package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"chatbot_server/server/chat/domain"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"

	DefaultHistoryLimit = 10
)

var (
	ErrMissingConversationID = errors.New("turn has no conversation id")
	ErrUnknownDriver         = errors.New("unknown store driver")
)

// TurnStore persists chat turns. Implementations open a connection per call
// and release it before returning, on success and failure alike.
type TurnStore interface {
	// Setup prepares collections, tables and indexes. It is safe to call
	// more than once.
	Setup(ctx context.Context) error
	SaveTurn(ctx context.Context, turn domain.Turn) error
	// History returns at most limit turns of a conversation ordered by
	// ascending timestamp.
	History(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error)
	// Recent returns the newest limit turns of a conversation, oldest first.
	Recent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error)
}

type Config struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
	PostgresDSN   string
	SQLitePath    string
}

func New(cfg Config) (TurnStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverMongo, "mongodb", "":
		return NewMongoStore(cfg.MongoURI, cfg.MongoDatabase), nil
	case DriverPostgres, "postgresql", "pg":
		return NewPostgresStore(cfg.PostgresDSN), nil
	case DriverSQLite, "sqlite3":
		return NewSQLiteStore(cfg.SQLitePath), nil
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownDriver, "driver %q", cfg.Driver)
	}
}

func validateTurn(turn domain.Turn) error {
	if strings.TrimSpace(turn.ConversationID) == "" {
		return ErrMissingConversationID
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}

func reverseTurns(items []domain.Turn) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
