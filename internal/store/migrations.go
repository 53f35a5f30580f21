package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL creates the tables. Uniqueness is enforced here, not in
// application code: duplicate usernames, emails, linked addresses and
// re-ingested messages are all rejected by constraints.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(255) NOT NULL UNIQUE,
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name VARCHAR(255) NOT NULL,
    role VARCHAR(32) NOT NULL DEFAULT 'USER',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS email_accounts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    email_address VARCHAR(255) NOT NULL UNIQUE,
    display_name VARCHAR(255) NOT NULL DEFAULT '',
    provider VARCHAR(32) NOT NULL DEFAULT 'GMAIL',
    access_token TEXT NOT NULL DEFAULT '',
    refresh_token TEXT NOT NULL DEFAULT '',
    expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
    last_synced TIMESTAMP WITH TIME ZONE
);

CREATE INDEX IF NOT EXISTS idx_email_accounts_user_id ON email_accounts(user_id);

CREATE TABLE IF NOT EXISTS emails (
    id BIGSERIAL PRIMARY KEY,
    email_account_id BIGINT NOT NULL REFERENCES email_accounts(id) ON DELETE CASCADE,
    gmail_message_id VARCHAR(255) NOT NULL,
    subject TEXT NOT NULL DEFAULT '',
    sender VARCHAR(255) NOT NULL DEFAULT '',
    plain_text_body TEXT NOT NULL DEFAULT '',
    html_body TEXT,
    received_at TIMESTAMP WITH TIME ZONE NOT NULL,
    is_spam BOOLEAN NOT NULL DEFAULT false,
    trust_score INTEGER NOT NULL DEFAULT 100,
    UNIQUE (gmail_message_id, email_account_id)
);

CREATE INDEX IF NOT EXISTS idx_emails_account_received ON emails(email_account_id, received_at DESC);
`

// Migrate creates the database schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
