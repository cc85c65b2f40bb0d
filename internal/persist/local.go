package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"cottagebook/pkg/models"
)

// LocalStore keeps the serialized document in a single sqlite row.
type LocalStore struct {
	DB *sql.DB
}

func NewLocalStore(db *sql.DB) *LocalStore {
	return &LocalStore{DB: db}
}

// Load reads the stored document. A missing row or unparseable body yields a
// fresh empty document, never an error.
func (s *LocalStore) Load(ctx context.Context) (*models.Document, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT body FROM document WHERE id = 1
	`)

	var body string
	if err := row.Scan(&body); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("[persist] read local document: %v", err)
		}
		return models.NewDocument(), nil
	}

	doc, err := decodeDocument([]byte(body))
	if err != nil {
		log.Printf("[persist] corrupt local document, starting fresh: %v", err)
		return models.NewDocument(), nil
	}
	return doc, nil
}

func (s *LocalStore) Save(ctx context.Context, doc *models.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO document (id, body, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			updated_at = CURRENT_TIMESTAMP
	`, string(body))
	if err != nil {
		return fmt.Errorf("save local document: %w", err)
	}
	return nil
}

func decodeDocument(b []byte) (*models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if doc.Version == "" {
		doc.Version = models.SchemaVersion
	}
	if doc.Scrapbooks == nil {
		doc.Scrapbooks = make(map[int]*models.Scrapbook)
	}
	return &doc, nil
}
