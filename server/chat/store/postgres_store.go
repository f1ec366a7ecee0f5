package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"chatbot_server/server/chat/domain"
	commonlog "chatbot_server/server/common/log"
)

type PostgresStore struct {
	dsn string
}

func NewPostgresStore(dsn string) *PostgresStore {
	return &PostgresStore{dsn: dsn}
}

func (s *PostgresStore) connect(ctx context.Context) (*pgx.Conn, error) {
	if s.dsn == "" {
		return nil, errors.New("postgres dsn is not configured")
	}
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	return conn, nil
}

func (s *PostgresStore) close(ctx context.Context, conn *pgx.Conn) {
	if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
		commonlog.Warnf("event=turn_store action=disconnect driver=postgres status=failed error=%v", err)
	}
}

func (s *PostgresStore) Setup(ctx context.Context) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer s.close(ctx, conn)

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS chat_turns (
			turn_id         TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			user_message    TEXT NOT NULL,
			bot_response    TEXT NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL
		)
	`); err != nil {
		return errors.Wrap(err, "create chat_turns table")
	}
	if _, err := conn.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS chat_turns_conversation_idx
		ON chat_turns(conversation_id, created_at)
	`); err != nil {
		return errors.Wrap(err, "create chat_turns index")
	}
	return nil
}

func (s *PostgresStore) SaveTurn(ctx context.Context, turn domain.Turn) error {
	if err := validateTurn(turn); err != nil {
		return err
	}
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer s.close(ctx, conn)

	_, err = conn.Exec(ctx, `
		INSERT INTO chat_turns(turn_id, user_id, conversation_id, user_message, bot_response, created_at)
		VALUES($1, $2, $3, $4, $5, $6)
	`, turn.ID, turn.UserID, turn.ConversationID, turn.UserMessage, turn.BotResponse, turn.Timestamp)
	return errors.Wrap(err, "insert chat turn")
}

func (s *PostgresStore) History(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	return s.query(ctx, `
		SELECT turn_id, user_id, conversation_id, user_message, bot_response, created_at
		FROM chat_turns
		WHERE conversation_id=$1
		ORDER BY created_at ASC, turn_id ASC
		LIMIT $2
	`, conversationID, normalizeLimit(limit))
}

func (s *PostgresStore) Recent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	items, err := s.query(ctx, `
		SELECT turn_id, user_id, conversation_id, user_message, bot_response, created_at
		FROM chat_turns
		WHERE conversation_id=$1
		ORDER BY created_at DESC, turn_id DESC
		LIMIT $2
	`, conversationID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	reverseTurns(items)
	return items, nil
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]domain.Turn, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.close(ctx, conn)

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query chat turns")
	}
	defer rows.Close()

	items := make([]domain.Turn, 0)
	for rows.Next() {
		var t domain.Turn
		if err := rows.Scan(&t.ID, &t.UserID, &t.ConversationID, &t.UserMessage, &t.BotResponse, &t.Timestamp); err != nil {
			return nil, errors.Wrap(err, "scan chat turn")
		}
		t.Timestamp = t.Timestamp.UTC()
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate chat turns")
	}
	return items, nil
}
