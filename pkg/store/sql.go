package store

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/cricket/pkg/conversation"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	sender TEXT NOT NULL,
	body TEXT NOT NULL,
	caption TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages (conversation_id);
`

// firstMessageQuery selects the conversation's earliest row, which by
// convention carries the conversation summary. The id tiebreak keeps the
// choice stable when two messages share a timestamp.
const firstMessageQuery = `SELECT id FROM messages
	WHERE conversation_id = ?
	ORDER BY timestamp ASC, id ASC LIMIT 1`

// SQLStore persists messages in a single sqlite table mirroring the
// append-only log layout: one row per message, the summary column populated
// only on each conversation's first row.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore opens (or creates) the sqlite database at path and ensures the
// messages schema exists. Use ":memory:" for an ephemeral store.
func NewSQLStore(path string) (*SQLStore, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open chat database %s", path)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "could not ping chat database %s", path)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "could not create messages schema")
	}

	log.Debug().Str("path", path).Msg("opened chat database")
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) InsertMessage(ctx context.Context, msg *conversation.Message) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, user_id, sender, body, caption, summary, timestamp)
		VALUES (:id, :conversation_id, :user_id, :sender, :body, :caption, :summary, :timestamp)`,
		msg)
	if err != nil {
		return errors.Wrapf(err, "could not insert message into conversation %s", msg.ConversationID)
	}

	return nil
}

func (s *SQLStore) ListMessages(ctx context.Context, conversationID string) (conversation.Conversation, error) {
	msgs := []*conversation.Message{}
	err := s.db.SelectContext(ctx, &msgs, `
		SELECT id, conversation_id, user_id, sender, body, caption, summary, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, id ASC`,
		conversationID)
	if err != nil {
		return nil, errors.Wrapf(err, "could not list messages for conversation %s", conversationID)
	}

	return msgs, nil
}

func (s *SQLStore) ListConversations(ctx context.Context, userID string) ([]ConversationRef, error) {
	query := `
		SELECT m.conversation_id AS conversation_id,
			MAX(m.timestamp) AS last_activity,
			COALESCE((SELECT summary FROM messages
				WHERE conversation_id = m.conversation_id
				ORDER BY timestamp ASC, id ASC LIMIT 1), '') AS summary
		FROM messages m`
	args := []interface{}{}
	if userID != "" {
		query += ` WHERE m.user_id = ?`
		args = append(args, userID)
	}
	query += `
		GROUP BY m.conversation_id
		ORDER BY MAX(m.timestamp) DESC`

	refs := []ConversationRef{}
	if err := s.db.SelectContext(ctx, &refs, query, args...); err != nil {
		return nil, errors.Wrap(err, "could not list conversations")
	}

	return refs, nil
}

func (s *SQLStore) SetSummary(ctx context.Context, conversationID string, summary string) error {
	var firstID string
	err := s.db.GetContext(ctx, &firstID, firstMessageQuery, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Nothing persisted yet; there is no row to annotate.
			return nil
		}
		return errors.Wrapf(err, "could not find first message of conversation %s", conversationID)
	}

	_, err = s.db.ExecContext(ctx, `UPDATE messages SET summary = ? WHERE id = ?`, summary, firstID)
	if err != nil {
		return errors.Wrapf(err, "could not save summary for conversation %s", conversationID)
	}

	return nil
}

func (s *SQLStore) GetSummary(ctx context.Context, conversationID string) (string, error) {
	var summary string
	err := s.db.GetContext(ctx, &summary, `
		SELECT summary FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, id ASC LIMIT 1`,
		conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", errors.Wrapf(err, "could not load summary for conversation %s", conversationID)
	}

	return summary, nil
}

func (s *SQLStore) DeleteConversation(ctx context.Context, conversationID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return errors.Wrapf(err, "could not delete conversation %s", conversationID)
	}

	if n, err := res.RowsAffected(); err == nil {
		log.Debug().Str("conversation_id", conversationID).Int64("deleted", n).Msg("deleted conversation")
	}

	return nil
}

var _ Store = (*SQLStore)(nil)
