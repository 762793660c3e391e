package message

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// SQLStore implements Store using a database/sql connection.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Create(ctx context.Context, m *Message) (err error) {
	if err = validate(m); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	low, high := pair(m.SenderID, m.ReceiverID)
	convoUpsert := `
		INSERT INTO conversations (id, user_low, user_high, created_at, last_message_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_low, user_high)
		DO UPDATE SET last_message_at = EXCLUDED.last_message_at
		RETURNING id
	`
	if err = tx.QueryRowContext(ctx, convoUpsert, uuid.NewString(), low, high, m.CreatedAt).Scan(&m.ConversationID); err != nil {
		return err
	}

	messageInsert := `
		INSERT INTO messages (id, conversation_id, sender_id, receiver_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err = tx.ExecContext(ctx, messageInsert, m.ID, m.ConversationID, m.SenderID, m.ReceiverID, m.Body, m.CreatedAt); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLStore) ListBetween(ctx context.Context, a, b string, page, limit int) ([]Message, int, error) {
	limit, offset := window(page, limit)
	low, high := pair(a, b)

	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.receiver_id, m.body, m.created_at, COUNT(*) OVER()
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.user_low = $1 AND c.user_high = $2
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := s.db.QueryContext(ctx, query, low, high, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var (
		msgs  []Message
		total int
	)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Body, &m.CreatedAt, &total); err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(msgs) == 0 && offset > 0 {
		// Past the last page the window count has no row to ride on.
		if total, err = s.countBetween(ctx, low, high); err != nil {
			return nil, 0, err
		}
	}
	return msgs, total, nil
}

func (s *SQLStore) countBetween(ctx context.Context, low, high string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.user_low = $1 AND c.user_high = $2
	`
	var total int
	if err := s.db.QueryRowContext(ctx, query, low, high).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
