// Package store provides persistence for users, linked email accounts,
// and ingested messages. The Postgres implementation treats database
// uniqueness constraints as the source of truth for conflicts;
// existence pre-checks in callers are advisory only.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/CJuwaneme1704/SentinelIQ/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an insert violates a uniqueness
	// constraint (username, email, or linked address already taken).
	ErrConflict = errors.New("already exists")
)

// UserStore persists registered users.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// AccountStore persists linked email accounts.
type AccountStore interface {
	Create(ctx context.Context, account *model.EmailAccount) error
	FindByID(ctx context.Context, id int64) (*model.EmailAccount, error)
	FindAllByUser(ctx context.Context, userID int64) ([]*model.EmailAccount, error)
	ExistsByEmailAddress(ctx context.Context, address string) (bool, error)
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error
	UpdateLastSynced(ctx context.Context, id int64, at time.Time) error
}

// EmailStore persists ingested messages.
type EmailStore interface {
	// Insert stores the message and reports whether a new row was
	// created. A duplicate (gmail_message_id, email_account_id) pair
	// is not an error; it returns created=false.
	Insert(ctx context.Context, email *model.Email) (created bool, err error)
	FindAllByAccount(ctx context.Context, accountID int64) ([]*model.Email, error)
}
