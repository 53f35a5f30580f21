package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/CJuwaneme1704/SentinelIQ/internal/google"
	"github.com/CJuwaneme1704/SentinelIQ/internal/model"
	"github.com/CJuwaneme1704/SentinelIQ/internal/store"
)

type fakeSession struct {
	ids      []string
	messages map[string]*gmailapi.Message
	listErr  error
	getErr   map[string]error
	creds    *google.Credentials
	credsErr error
}

func (s *fakeSession) ListRecent(ctx context.Context, max int64) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if int64(len(s.ids)) > max {
		return s.ids[:max], nil
	}
	return s.ids, nil
}

func (s *fakeSession) GetMessage(ctx context.Context, id string) (*gmailapi.Message, error) {
	if err := s.getErr[id]; err != nil {
		return nil, err
	}
	msg, ok := s.messages[id]
	if !ok {
		return nil, errors.New("no such message")
	}
	return msg, nil
}

func (s *fakeSession) Credentials() (*google.Credentials, error) {
	if s.credsErr != nil {
		return nil, s.credsErr
	}
	return s.creds, nil
}

type fakeOpener struct {
	session *fakeSession
	err     error
	opened  *google.Credentials
}

func (o *fakeOpener) Open(ctx context.Context, creds *google.Credentials) (Session, error) {
	o.opened = creds
	if o.err != nil {
		return nil, o.err
	}
	if o.session.creds == nil {
		o.session.creds = creds
	}
	return o.session, nil
}

type fakeAccountStore struct {
	store.AccountStore

	tokensUpdated  bool
	accessToken    string
	refreshToken   string
	expiresAt      time.Time
	updateTokenErr error

	lastSynced    *time.Time
	lastSyncedErr error
}

func (s *fakeAccountStore) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	if s.updateTokenErr != nil {
		return s.updateTokenErr
	}
	s.tokensUpdated = true
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.expiresAt = expiresAt
	return nil
}

func (s *fakeAccountStore) UpdateLastSynced(ctx context.Context, id int64, at time.Time) error {
	if s.lastSyncedErr != nil {
		return s.lastSyncedErr
	}
	s.lastSynced = &at
	return nil
}

type fakeEmailStore struct {
	store.EmailStore

	inserted  []*model.Email
	duplicate map[string]bool
	insertErr map[string]error
}

func (s *fakeEmailStore) Insert(ctx context.Context, email *model.Email) (bool, error) {
	if err := s.insertErr[email.GmailMessageID]; err != nil {
		return false, err
	}
	if s.duplicate[email.GmailMessageID] {
		return false, nil
	}
	s.inserted = append(s.inserted, email)
	return true, nil
}

func testMessage(subject, from, body string) *gmailapi.Message {
	return &gmailapi.Message{
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Subject", Value: subject},
				{Name: "From", Value: from},
				{Name: "Date", Value: "Mon, 02 Jan 2006 15:04:05 -0700"},
			},
			Body: &gmailapi.MessagePartBody{
				Data: base64.RawURLEncoding.EncodeToString([]byte(body)),
			},
		},
	}
}

func testAccount() *model.EmailAccount {
	return &model.EmailAccount{
		ID:           42,
		UserID:       7,
		EmailAddress: "inbox@example.com",
		Provider:     "gmail",
		AccessToken:  "access-0",
		RefreshToken: "refresh-0",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func testPipeline(opener Opener, accounts store.AccountStore, emails store.EmailStore) *Pipeline {
	return New(opener, accounts, emails, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestIngestStoresRecentMessages(t *testing.T) {
	session := &fakeSession{
		ids: []string{"m1", "m2"},
		messages: map[string]*gmailapi.Message{
			"m1": testMessage("Invoice", "billing@example.com", "pay up"),
			"m2": testMessage("Hello", "friend@example.com", "hi there"),
		},
	}
	accounts := &fakeAccountStore{}
	emails := &fakeEmailStore{}
	p := testPipeline(&fakeOpener{session: session}, accounts, emails)
	account := testAccount()

	result, err := p.Ingest(context.Background(), account)
	require.NoError(t, err)

	assert.Equal(t, Result{Fetched: 2, Stored: 2}, result)
	require.Len(t, emails.inserted, 2)
	first := emails.inserted[0]
	assert.Equal(t, int64(42), first.EmailAccountID)
	assert.Equal(t, "m1", first.GmailMessageID)
	assert.Equal(t, "Invoice", first.Subject)
	assert.Equal(t, "billing@example.com", first.Sender)
	assert.Equal(t, "pay up", first.PlainTextBody)
	assert.False(t, first.IsSpam)
	assert.Equal(t, DefaultTrustScore, first.TrustScore)
}

func TestIngestUpdatesLastSynced(t *testing.T) {
	session := &fakeSession{ids: nil}
	accounts := &fakeAccountStore{}
	p := testPipeline(&fakeOpener{session: session}, accounts, &fakeEmailStore{})
	account := testAccount()

	before := time.Now()
	_, err := p.Ingest(context.Background(), account)
	require.NoError(t, err)

	require.NotNil(t, accounts.lastSynced)
	assert.False(t, accounts.lastSynced.Before(before))
	require.NotNil(t, account.LastSynced)
	assert.Equal(t, *accounts.lastSynced, *account.LastSynced)
}

func TestIngestSkipsFailedMessages(t *testing.T) {
	session := &fakeSession{
		ids: []string{"good", "broken", "also-good"},
		messages: map[string]*gmailapi.Message{
			"good":      testMessage("a", "a@example.com", "a"),
			"also-good": testMessage("b", "b@example.com", "b"),
		},
		getErr: map[string]error{"broken": errors.New("transient 500")},
	}
	accounts := &fakeAccountStore{}
	emails := &fakeEmailStore{}
	p := testPipeline(&fakeOpener{session: session}, accounts, emails)

	result, err := p.Ingest(context.Background(), testAccount())
	require.NoError(t, err)

	assert.Equal(t, Result{Fetched: 3, Stored: 2, Failed: 1}, result)
	assert.Len(t, emails.inserted, 2)
	assert.NotNil(t, accounts.lastSynced, "one bad message must not block the sync timestamp")
}

func TestIngestCountsInsertFailureAsFailed(t *testing.T) {
	session := &fakeSession{
		ids: []string{"m1", "m2"},
		messages: map[string]*gmailapi.Message{
			"m1": testMessage("a", "a@example.com", "a"),
			"m2": testMessage("b", "b@example.com", "b"),
		},
	}
	emails := &fakeEmailStore{
		insertErr: map[string]error{"m2": errors.New("connection reset")},
	}
	p := testPipeline(&fakeOpener{session: session}, &fakeAccountStore{}, emails)

	result, err := p.Ingest(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, Result{Fetched: 2, Stored: 1, Failed: 1}, result)
}

func TestIngestSkipsDuplicates(t *testing.T) {
	session := &fakeSession{
		ids: []string{"m1", "m2"},
		messages: map[string]*gmailapi.Message{
			"m1": testMessage("a", "a@example.com", "a"),
			"m2": testMessage("b", "b@example.com", "b"),
		},
	}
	emails := &fakeEmailStore{duplicate: map[string]bool{"m1": true}}
	p := testPipeline(&fakeOpener{session: session}, &fakeAccountStore{}, emails)

	result, err := p.Ingest(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, Result{Fetched: 2, Stored: 1, Skipped: 1}, result)
}

func TestIngestListFailureAborts(t *testing.T) {
	session := &fakeSession{listErr: errors.New("quota exceeded")}
	accounts := &fakeAccountStore{}
	p := testPipeline(&fakeOpener{session: session}, accounts, &fakeEmailStore{})

	result, err := p.Ingest(context.Background(), testAccount())
	require.ErrorIs(t, err, ErrListFailed)
	assert.Equal(t, Result{}, result)
	assert.Nil(t, accounts.lastSynced, "a failed run must not claim a successful sync")
}

func TestIngestOpenFailureAborts(t *testing.T) {
	opener := &fakeOpener{session: &fakeSession{}, err: errors.New("invalid_grant")}
	p := testPipeline(opener, &fakeAccountStore{}, &fakeEmailStore{})

	_, err := p.Ingest(context.Background(), testAccount())
	require.ErrorIs(t, err, ErrListFailed)
	require.NotNil(t, opener.opened)
	assert.Equal(t, "access-0", opener.opened.AccessToken)
}

func TestIngestPersistsRefreshedTokens(t *testing.T) {
	refreshed := &google.Credentials{
		AccessToken:  "access-1",
		RefreshToken: "",
		Expiry:       time.Now().Add(time.Hour),
	}
	session := &fakeSession{ids: nil, creds: refreshed}
	accounts := &fakeAccountStore{}
	p := testPipeline(&fakeOpener{session: session}, accounts, &fakeEmailStore{})
	account := testAccount()

	_, err := p.Ingest(context.Background(), account)
	require.NoError(t, err)

	require.True(t, accounts.tokensUpdated)
	assert.Equal(t, "access-1", accounts.accessToken)
	assert.Equal(t, "refresh-0", accounts.refreshToken,
		"refresh token must survive when the provider omits it")
	assert.Equal(t, "access-1", account.AccessToken)
}

func TestIngestLeavesUnchangedTokensAlone(t *testing.T) {
	session := &fakeSession{ids: nil}
	accounts := &fakeAccountStore{}
	p := testPipeline(&fakeOpener{session: session}, accounts, &fakeEmailStore{})

	_, err := p.Ingest(context.Background(), testAccount())
	require.NoError(t, err)
	assert.False(t, accounts.tokensUpdated)
}

func TestIngestRespectsPageSize(t *testing.T) {
	ids := make([]string, 15)
	messages := make(map[string]*gmailapi.Message, 15)
	for i := range ids {
		id := string(rune('a' + i))
		ids[i] = id
		messages[id] = testMessage("s", "f@example.com", "b")
	}
	session := &fakeSession{ids: ids, messages: messages}
	emails := &fakeEmailStore{}
	p := testPipeline(&fakeOpener{session: session}, &fakeAccountStore{}, emails)

	result, err := p.Ingest(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, result.Fetched)
	assert.Len(t, emails.inserted, DefaultPageSize)
}
