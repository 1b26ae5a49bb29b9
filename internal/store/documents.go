package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const documentColumns = `id, filename, original_filename, file_path, file_type,
	file_size, content, uploaded_at, user_id`

// CreateDocument inserts a document row for the given owner.
func (s *Store) CreateDocument(ctx context.Context, doc *Document) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO documents (filename, original_filename, file_path, file_type, file_size, content, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+documentColumns,
		doc.Filename, doc.OriginalFilename, doc.FilePath, doc.FileType,
		doc.FileSize, doc.Content, doc.UserID)

	created, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("creating document %q: %w", doc.OriginalFilename, err)
	}

	s.logger.Debug("created document",
		"id", created.ID,
		"original_filename", created.OriginalFilename,
		"size", created.FileSize,
	)
	return created, nil
}

// GetDocument retrieves a document owned by userID.
// Returns ErrNotFound when the row is absent or owned by someone else.
func (s *Store) GetDocument(ctx context.Context, id, userID uuid.UUID) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE id = $1 AND user_id = $2`, id, userID)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}
	return doc, nil
}

// ListDocuments returns all documents owned by userID, newest first.
func (s *Store) ListDocuments(ctx context.Context, userID uuid.UUID) ([]*Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE user_id = $1
		ORDER BY uploaded_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document owned by userID. Sessions and messages
// referencing it are removed by CASCADE.
func (s *Store) DeleteDocument(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted document", "id", id)
	return nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Filename, &d.OriginalFilename, &d.FilePath,
		&d.FileType, &d.FileSize, &d.Content, &d.UploadedAt, &d.UserID)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
