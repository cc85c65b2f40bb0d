// Package persist abstracts over where the scrapbook document lives. Two
// interchangeable strategies exist: a local sqlite-backed store and a
// remote GitHub-hosted document. Exactly one is active per deployment.
//
// Load never fails outward: absence, network errors, and corrupt payloads
// all degrade to a fresh empty document. Save returns an error the caller
// is expected to log and ignore; the in-memory document stays authoritative
// for the session regardless of persistence outcome.
package persist

import (
	"context"

	"cottagebook/pkg/models"
)

type Store interface {
	Load(ctx context.Context) (*models.Document, error)
	Save(ctx context.Context, doc *models.Document) error
}
