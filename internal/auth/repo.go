package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Owner is the single privileged account. The table holds at most one row;
// SetCredential replaces it wholesale.
type Owner struct {
	ID           string
	Username     string
	PasswordHash string
	TokenVersion int
	CreatedAt    time.Time
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Get returns the owner record, or nil when no credential has been set yet.
func (r *Repo) Get(ctx context.Context) (*Owner, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, username, password_hash, token_version, created_at
		FROM owner
		LIMIT 1
	`)

	var o Owner
	if err := row.Scan(&o.ID, &o.Username, &o.PasswordHash, &o.TokenVersion, &o.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get owner: %w", err)
	}
	return &o, nil
}

// SetCredential creates the owner record or rotates username and password,
// bumping token_version so outstanding sessions die.
func (r *Repo) SetCredential(ctx context.Context, username, passwordHash string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("set credential: username required")
	}

	existing, err := r.Get(ctx)
	if err != nil {
		return err
	}

	if existing == nil {
		_, err := r.DB.ExecContext(ctx, `
			INSERT INTO owner (id, username, password_hash)
			VALUES (?, ?, ?)
		`, uuid.NewString(), username, passwordHash)
		if err != nil {
			return fmt.Errorf("create owner: %w", err)
		}
		return nil
	}

	_, err = r.DB.ExecContext(ctx, `
		UPDATE owner
		SET username = ?, password_hash = ?, token_version = token_version + 1
		WHERE id = ?
	`, username, passwordHash, existing.ID)
	if err != nil {
		return fmt.Errorf("update owner credential: %w", err)
	}
	return nil
}

func (r *Repo) GetTokenVersion(ctx context.Context, id string) (int, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT token_version
		FROM owner
		WHERE id = ?
	`, id)

	var version int
	if err := row.Scan(&version); err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("get token version: owner not found")
		}
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE owner
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update password: owner not found")
	}
	return nil
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE owner
		SET token_version = token_version + 1
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump token version rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("bump token version: owner not found")
	}
	return nil
}
