package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CJuwaneme1704/SentinelIQ/internal/model"
)

// pgUniqueViolation is the Postgres error code for a violated
// uniqueness constraint.
const pgUniqueViolation = "23505"

// Connect creates a pgx connection pool and verifies connectivity.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// Users is the Postgres-backed UserStore.
type Users struct {
	pool *pgxpool.Pool
}

// NewUsers creates a UserStore on the given pool.
func NewUsers(pool *pgxpool.Pool) *Users {
	return &Users{pool: pool}
}

func (s *Users) Create(ctx context.Context, user *model.User) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		user.Username, user.Email, user.PasswordHash, user.Name, user.Role,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *Users) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, name, role, created_at
		FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Users) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	return exists, err
}

func (s *Users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email,
	).Scan(&exists)
	return exists, err
}

// Accounts is the Postgres-backed AccountStore.
type Accounts struct {
	pool *pgxpool.Pool
}

// NewAccounts creates an AccountStore on the given pool.
func NewAccounts(pool *pgxpool.Pool) *Accounts {
	return &Accounts{pool: pool}
}

func (s *Accounts) Create(ctx context.Context, account *model.EmailAccount) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO email_accounts
			(user_id, email_address, display_name, provider, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		account.UserID, account.EmailAddress, account.DisplayName, account.Provider,
		account.AccessToken, account.RefreshToken, account.ExpiresAt,
	).Scan(&account.ID)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *Accounts) FindByID(ctx context.Context, id int64) (*model.EmailAccount, error) {
	var a model.EmailAccount
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, email_address, display_name, provider,
		       access_token, refresh_token, expires_at, last_synced
		FROM email_accounts WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.UserID, &a.EmailAddress, &a.DisplayName, &a.Provider,
		&a.AccessToken, &a.RefreshToken, &a.ExpiresAt, &a.LastSynced)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Accounts) FindAllByUser(ctx context.Context, userID int64) ([]*model.EmailAccount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, email_address, display_name, provider,
		       access_token, refresh_token, expires_at, last_synced
		FROM email_accounts WHERE user_id = $1 ORDER BY id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*model.EmailAccount
	for rows.Next() {
		var a model.EmailAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.EmailAddress, &a.DisplayName, &a.Provider,
			&a.AccessToken, &a.RefreshToken, &a.ExpiresAt, &a.LastSynced); err != nil {
			return nil, err
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

func (s *Accounts) ExistsByEmailAddress(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM email_accounts WHERE email_address = $1)`, address,
	).Scan(&exists)
	return exists, err
}

func (s *Accounts) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE email_accounts
		SET access_token = $2, refresh_token = $3, expires_at = $4
		WHERE id = $1`,
		id, accessToken, refreshToken, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Accounts) UpdateLastSynced(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE email_accounts SET last_synced = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Emails is the Postgres-backed EmailStore.
type Emails struct {
	pool *pgxpool.Pool
}

// NewEmails creates an EmailStore on the given pool.
func NewEmails(pool *pgxpool.Pool) *Emails {
	return &Emails{pool: pool}
}

func (s *Emails) Insert(ctx context.Context, email *model.Email) (bool, error) {
	// The unique constraint on (gmail_message_id, email_account_id)
	// makes re-ingestion idempotent without a read-then-write race.
	err := s.pool.QueryRow(ctx, `
		INSERT INTO emails
			(email_account_id, gmail_message_id, subject, sender,
			 plain_text_body, html_body, received_at, is_spam, trust_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (gmail_message_id, email_account_id) DO NOTHING
		RETURNING id`,
		email.EmailAccountID, email.GmailMessageID, email.Subject, email.Sender,
		email.PlainTextBody, email.HTMLBody, email.ReceivedAt, email.IsSpam, email.TrustScore,
	).Scan(&email.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapPgError(err)
	}
	return true, nil
}

func (s *Emails) FindAllByAccount(ctx context.Context, accountID int64) ([]*model.Email, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email_account_id, gmail_message_id, subject, sender,
		       plain_text_body, html_body, received_at, is_spam, trust_score
		FROM emails WHERE email_account_id = $1
		ORDER BY received_at DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []*model.Email
	for rows.Next() {
		var e model.Email
		if err := rows.Scan(&e.ID, &e.EmailAccountID, &e.GmailMessageID, &e.Subject, &e.Sender,
			&e.PlainTextBody, &e.HTMLBody, &e.ReceivedAt, &e.IsSpam, &e.TrustScore); err != nil {
			return nil, err
		}
		emails = append(emails, &e)
	}
	return emails, rows.Err()
}
