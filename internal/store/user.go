// Package store provides database access methods for all Party Bloom
// entities. Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"partybloom/internal/models"
)

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, external_id, email, first_name, last_name, profile_image_url, stripe_customer_id, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var externalID sql.NullString
	err := row.Scan(
		&u.ID, &externalID, &u.Email, &u.FirstName, &u.LastName,
		&u.ProfileImageURL, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ExternalID = externalID.String
	return u, nil
}

// findOne runs a single-row user query. Returns nil if no row matches.
func (s *UserStore) findOne(ctx context.Context, q queryer, where string, arg any) (*models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FindByID retrieves a user by their internal ID. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, err := s.findOne(ctx, s.db, "id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// FindByExternalID retrieves a user by their identity-provider subject.
// Returns nil if not found.
func (s *UserStore) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	u, err := s.findOne(ctx, s.db, "external_id = $1", externalID)
	if err != nil {
		return nil, fmt.Errorf("find user by external id: %w", err)
	}
	return u, nil
}

// FindByEmail retrieves a user by their email address. Returns nil if not found.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.findOne(ctx, s.db, "email = $1", email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// Upsert creates or refreshes a user from identity-provider attributes.
//
// When a record with the same email already exists under a different
// external identity, that record is re-linked to the new identity instead of
// inserting a duplicate: its ID is kept and the supplied display attributes
// overwrite the stored ones.
func (s *UserStore) Upsert(ctx context.Context, in models.UpsertUser) (*models.User, error) {
	if in.ExternalID == "" {
		return nil, &ValidationError{Field: "external_id", Message: "is required"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("upsert user begin: %w", err)
	}
	defer tx.Rollback()

	if in.Email != nil && *in.Email != "" {
		existing, err := s.findOne(ctx, tx, "email = $1 FOR UPDATE", *in.Email)
		if err != nil {
			return nil, fmt.Errorf("upsert user lookup email: %w", err)
		}
		if existing != nil && existing.ExternalID != in.ExternalID {
			u, err := s.relink(ctx, tx, existing.ID, in)
			if err != nil {
				return nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, fmt.Errorf("upsert user commit: %w", err)
			}
			return u, nil
		}
	}

	u, err := scanUser(tx.QueryRowContext(ctx, `
		INSERT INTO users (external_id, email, first_name, last_name, profile_image_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (external_id) DO UPDATE SET
			email             = COALESCE(EXCLUDED.email, users.email),
			first_name        = COALESCE(EXCLUDED.first_name, users.first_name),
			last_name         = COALESCE(EXCLUDED.last_name, users.last_name),
			profile_image_url = COALESCE(EXCLUDED.profile_image_url, users.profile_image_url),
			updated_at        = NOW()
		RETURNING `+userColumns,
		in.ExternalID, in.Email, in.FirstName, in.LastName, in.ProfileImageURL,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("upsert user commit: %w", err)
	}
	return u, nil
}

// relink moves an existing user row onto a new external identity. Any other
// row still holding that identity is released first so the unique
// constraint cannot fire.
func (s *UserStore) relink(ctx context.Context, tx *sql.Tx, id string, in models.UpsertUser) (*models.User, error) {
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET external_id = NULL, updated_at = NOW() WHERE external_id = $1 AND id <> $2`,
		in.ExternalID, id,
	); err != nil {
		return nil, fmt.Errorf("release external id: %w", err)
	}

	u, err := scanUser(tx.QueryRowContext(ctx, `
		UPDATE users SET
			external_id       = $1,
			first_name        = COALESCE($2, first_name),
			last_name         = COALESCE($3, last_name),
			profile_image_url = COALESCE($4, profile_image_url),
			updated_at        = NOW()
		WHERE id = $5
		RETURNING `+userColumns,
		in.ExternalID, in.FirstName, in.LastName, in.ProfileImageURL, id,
	))
	if err != nil {
		return nil, fmt.Errorf("relink user: %w", err)
	}
	return u, nil
}

// UpdateStripeCustomerID stores the billing customer reference for a user.
func (s *UserStore) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		UPDATE users SET stripe_customer_id = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+userColumns,
		customerID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update stripe customer id: %w", err)
	}
	return u, nil
}

// Delete removes a user by ID. Favorites and subscriptions cascade.
func (s *UserStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
