package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"chatbot_server/server/chat/domain"
	commonlog "chatbot_server/server/common/log"
)

// SQLiteStore keeps turns in a local file. Timestamps are stored as unix
// nanoseconds so ordering does not depend on text formatting.
type SQLiteStore struct {
	path string
}

func NewSQLiteStore(path string) *SQLiteStore {
	if path == "" {
		path = "./data/chatbot.db"
	}
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) open() (*sql.DB, error) {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create sqlite directory")
		}
	}
	db, err := sql.Open("sqlite3", s.path+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	return db, nil
}

func (s *SQLiteStore) close(db *sql.DB) {
	if err := db.Close(); err != nil {
		commonlog.Warnf("event=turn_store action=disconnect driver=sqlite status=failed error=%v", err)
	}
}

func (s *SQLiteStore) Setup(ctx context.Context) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer s.close(db)

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chat_turns (
			turn_id         TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			user_message    TEXT NOT NULL,
			bot_response    TEXT NOT NULL,
			created_at_ns   INTEGER NOT NULL
		)
	`); err != nil {
		return errors.Wrap(err, "create chat_turns table")
	}
	if _, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS chat_turns_conversation_idx
		ON chat_turns(conversation_id, created_at_ns)
	`); err != nil {
		return errors.Wrap(err, "create chat_turns index")
	}
	return nil
}

func (s *SQLiteStore) SaveTurn(ctx context.Context, turn domain.Turn) error {
	if err := validateTurn(turn); err != nil {
		return err
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	defer s.close(db)

	_, err = db.ExecContext(ctx, `
		INSERT INTO chat_turns(turn_id, user_id, conversation_id, user_message, bot_response, created_at_ns)
		VALUES(?, ?, ?, ?, ?, ?)
	`, turn.ID, turn.UserID, turn.ConversationID, turn.UserMessage, turn.BotResponse, turn.Timestamp.UnixNano())
	return errors.Wrap(err, "insert chat turn")
}

func (s *SQLiteStore) History(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	return s.query(ctx, `
		SELECT turn_id, user_id, conversation_id, user_message, bot_response, created_at_ns
		FROM chat_turns
		WHERE conversation_id=?
		ORDER BY created_at_ns ASC, rowid ASC
		LIMIT ?
	`, conversationID, normalizeLimit(limit))
}

func (s *SQLiteStore) Recent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	items, err := s.query(ctx, `
		SELECT turn_id, user_id, conversation_id, user_message, bot_response, created_at_ns
		FROM chat_turns
		WHERE conversation_id=?
		ORDER BY created_at_ns DESC, rowid DESC
		LIMIT ?
	`, conversationID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	reverseTurns(items)
	return items, nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]domain.Turn, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer s.close(db)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query chat turns")
	}
	defer rows.Close()

	items := make([]domain.Turn, 0)
	for rows.Next() {
		var (
			t     domain.Turn
			nanos int64
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.ConversationID, &t.UserMessage, &t.BotResponse, &nanos); err != nil {
			return nil, errors.Wrap(err, "scan chat turn")
		}
		t.Timestamp = time.Unix(0, nanos).UTC()
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate chat turns")
	}
	return items, nil
}
