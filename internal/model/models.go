// Package model defines the persisted entities of the email dashboard.
package model

import "time"

// User is a registered principal. Only the role and password change
// after signup.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// EmailAccount is a third-party mailbox a user has authorized this
// system to read. The provider tokens and expiry are replaced on every
// ingestion cycle. EmailAddress is unique across all users.
type EmailAccount struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	EmailAddress string     `json:"email_address"`
	DisplayName  string     `json:"display_name"`
	Provider     string     `json:"provider"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	ExpiresAt    time.Time  `json:"expires_at"`
	LastSynced   *time.Time `json:"last_synced,omitempty"`
}

// Email is a normalized message pulled from a linked account. The
// (GmailMessageID, EmailAccountID) pair is unique; rows are never
// mutated after creation.
type Email struct {
	ID             int64     `json:"id"`
	EmailAccountID int64     `json:"email_account_id"`
	GmailMessageID string    `json:"gmail_message_id"`
	Subject        string    `json:"subject"`
	Sender         string    `json:"sender"`
	PlainTextBody  string    `json:"plain_text_body"`
	HTMLBody       *string   `json:"html_body"`
	ReceivedAt     time.Time `json:"received_at"`
	IsSpam         bool      `json:"is_spam"`
	TrustScore     int       `json:"trust_score"`
}
