package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `id, title, created_at, updated_at, user_id, document_id`

// CreateSession creates a new chat session bound to a document.
func (s *Store) CreateSession(ctx context.Context, title string, userID, documentID uuid.UUID) (*Session, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO chat_sessions (title, user_id, document_id)
		VALUES ($1, $2, $3)
		RETURNING `+sessionColumns,
		title, userID, documentID)

	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("created session", "id", sess.ID, "title", sess.Title, "document_id", documentID)
	return sess, nil
}

// GetSession retrieves a session owned by userID.
// Returns ErrNotFound when the row is absent or owned by someone else.
func (s *Store) GetSession(ctx context.Context, id, userID uuid.UUID) (*Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM chat_sessions WHERE id = $1 AND user_id = $2`, id, userID)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns all sessions owned by userID, most recently
// updated first.
func (s *Store) ListSessions(ctx context.Context, userID uuid.UUID) ([]*Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM chat_sessions WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// GetMessages returns all messages of a session in conversation order.
// The session must be owned by userID.
func (s *Store) GetMessages(ctx context.Context, sessionID, userID uuid.UUID) ([]*Message, error) {
	if _, err := s.GetSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, content, is_user, sequence_number, created_at
		FROM chat_messages WHERE session_id = $1
		ORDER BY sequence_number ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Content, &m.IsUser,
			&m.SequenceNumber, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return messages, nil
}

// AddTurn appends a question/answer pair to a session and bumps its
// updated_at, all in one transaction. The session row is locked first so
// concurrent turns cannot interleave sequence numbers.
func (s *Store) AddTurn(ctx context.Context, sessionID uuid.UUID, question, answer string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	var locked uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM chat_sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("locking session %s: %w", sessionID, err)
	}

	var maxSeq int32
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM chat_messages WHERE session_id = $1`,
		sessionID).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("reading sequence number: %w", err)
	}

	batch := []struct {
		content string
		isUser  bool
	}{
		{question, true},
		{answer, false},
	}
	for i, m := range batch {
		_, err = tx.Exec(ctx, `
			INSERT INTO chat_messages (session_id, content, is_user, sequence_number)
			VALUES ($1, $2, $3, $4)`,
			sessionID, m.content, m.isUser, maxSeq+int32(i)+1)
		if err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE chat_sessions SET updated_at = now() WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("updating session timestamp: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("added turn", "session_id", sessionID, "sequence", maxSeq+2)
	return nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var sess Session
	err := row.Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt,
		&sess.UserID, &sess.DocumentID)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
