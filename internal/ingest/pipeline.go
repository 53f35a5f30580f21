// Package ingest implements the mail-ingestion pipeline: given a
// linked account's provider credentials it lists recent messages,
// fetches and decodes each one, and persists normalized records,
// skipping duplicates.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/CJuwaneme1704/SentinelIQ/internal/gmail"
	"github.com/CJuwaneme1704/SentinelIQ/internal/google"
	"github.com/CJuwaneme1704/SentinelIQ/internal/instrumentation"
	"github.com/CJuwaneme1704/SentinelIQ/internal/logging"
	"github.com/CJuwaneme1704/SentinelIQ/internal/model"
	"github.com/CJuwaneme1704/SentinelIQ/internal/store"
)

const (
	// DefaultPageSize is how many recent messages one ingestion run
	// pulls.
	DefaultPageSize = 10

	// DefaultTrustScore is the fixed baseline assigned to every
	// ingested message. Scoring itself is a separate concern.
	DefaultTrustScore = 100
)

// ErrListFailed aborts the whole ingestion: without a message listing
// there is nothing to iterate. All later failures are per-message and
// isolated.
var ErrListFailed = errors.New("mailbox listing failed")

// Session is an open, authenticated mailbox. Credentials returns the
// current provider credentials, which may have been refreshed since
// the session was opened.
type Session interface {
	gmail.Mailbox
	Credentials() (*google.Credentials, error)
}

// Opener creates mailbox sessions from stored provider credentials.
type Opener interface {
	Open(ctx context.Context, creds *google.Credentials) (Session, error)
}

// Result summarizes one ingestion run.
type Result struct {
	Fetched int `json:"fetched"`
	Stored  int `json:"stored"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Options carries the optional collaborators of a Pipeline.
type Options struct {
	Logger   *slog.Logger
	Metrics  *instrumentation.Metrics
	Tracer   trace.Tracer
	PageSize int64
}

// Pipeline ingests messages for linked accounts.
type Pipeline struct {
	opener   Opener
	accounts store.AccountStore
	emails   store.EmailStore
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	tracer   trace.Tracer
	pageSize int64
	now      func() time.Time
}

// New creates a Pipeline.
func New(opener Opener, accounts store.AccountStore, emails store.EmailStore, opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer(instrumentation.TracerName)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Pipeline{
		opener:   opener,
		accounts: accounts,
		emails:   emails,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		pageSize: opts.PageSize,
		now:      time.Now,
	}
}

// Ingest pulls the most recent messages for the account and persists
// them. Individual message failures are logged and skipped; only a
// failed listing aborts the run. On success the account's tokens and
// last-synced timestamp are updated.
func (p *Pipeline) Ingest(ctx context.Context, account *model.EmailAccount) (Result, error) {
	start := p.now()
	logger := logging.WithAccount(logging.WithOperation(p.logger, "ingest"), account.ID)

	ctx, span := instrumentation.StartSpan(ctx, p.tracer, "ingest.run", "ingest",
		attribute.Int64(instrumentation.SpanAttrAccountID, account.ID))

	result, err := p.run(ctx, logger, account)

	instrumentation.EndSpan(span, err)
	runResult := instrumentation.ResultSuccess
	if err != nil {
		runResult = instrumentation.ResultError
	}
	p.metrics.RecordIngestRun(ctx, runResult, result.Stored, result.Skipped, result.Failed, p.now().Sub(start))

	return result, err
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, account *model.EmailAccount) (Result, error) {
	var result Result

	session, err := p.opener.Open(ctx, &google.Credentials{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		Expiry:       account.ExpiresAt,
	})
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrListFailed, err)
	}

	ids, err := p.listRecent(ctx, session)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrListFailed, err)
	}
	if len(ids) == 0 {
		logger.Info("mailbox has no recent messages")
	}

	for _, id := range ids {
		result.Fetched++
		if err := p.ingestOne(ctx, logger, session, account, id, &result); err != nil {
			// Skip-and-continue: one broken message must not sink the
			// batch.
			result.Failed++
			logger.Warn("message skipped", logging.MessageID(id), logging.Err(err))
		}
	}

	p.persistCredentials(ctx, logger, session, account)

	syncedAt := p.now()
	if err := p.accounts.UpdateLastSynced(ctx, account.ID, syncedAt); err != nil {
		return result, fmt.Errorf("failed to update last synced time: %w", err)
	}
	account.LastSynced = &syncedAt

	logger.Info("ingestion complete",
		slog.Int("fetched", result.Fetched),
		slog.Int("stored", result.Stored),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed))
	return result, nil
}

func (p *Pipeline) listRecent(ctx context.Context, session Session) ([]string, error) {
	start := p.now()
	ids, err := session.ListRecent(ctx, p.pageSize)
	p.recordGmailOp(ctx, "list", err, p.now().Sub(start))
	return ids, err
}

func (p *Pipeline) ingestOne(ctx context.Context, logger *slog.Logger, session Session, account *model.EmailAccount, id string, result *Result) error {
	start := p.now()
	msg, err := session.GetMessage(ctx, id)
	p.recordGmailOp(ctx, "get_message", err, p.now().Sub(start))
	if err != nil {
		return err
	}

	parsed := gmail.Parse(msg)
	created, err := p.emails.Insert(ctx, &model.Email{
		EmailAccountID: account.ID,
		GmailMessageID: id,
		Subject:        parsed.Subject,
		Sender:         parsed.Sender,
		PlainTextBody:  parsed.PlainText,
		HTMLBody:       parsed.HTML,
		ReceivedAt:     parsed.ReceivedAt,
		IsSpam:         false,
		TrustScore:     DefaultTrustScore,
	})
	if err != nil {
		return err
	}

	if created {
		result.Stored++
	} else {
		result.Skipped++
		logger.Debug("duplicate message skipped",
			logging.MessageID(id), logging.Status(logging.StatusSkipped))
	}
	return nil
}

// persistCredentials stores the session's current provider tokens when
// the access token was refreshed during the run. Failure here is not
// fatal; the stale token will simply be refreshed again next cycle.
func (p *Pipeline) persistCredentials(ctx context.Context, logger *slog.Logger, session Session, account *model.EmailAccount) {
	creds, err := session.Credentials()
	if err != nil {
		logger.Warn("could not read session credentials", logging.Err(err))
		return
	}
	if creds.AccessToken == account.AccessToken {
		return
	}

	refresh := creds.RefreshToken
	if refresh == "" {
		// Google omits the refresh token on refresh responses.
		refresh = account.RefreshToken
	}
	if err := p.accounts.UpdateTokens(ctx, account.ID, creds.AccessToken, refresh, creds.Expiry); err != nil {
		logger.Warn("could not persist refreshed tokens", logging.Err(err))
		return
	}
	account.AccessToken = creds.AccessToken
	account.RefreshToken = refresh
	account.ExpiresAt = creds.Expiry
}

func (p *Pipeline) recordGmailOp(ctx context.Context, op string, err error, d time.Duration) {
	result := instrumentation.ResultSuccess
	if err != nil {
		result = instrumentation.ResultError
	}
	p.metrics.RecordGmailOperation(ctx, op, result, d)
}

// GoogleOpener opens Gmail sessions through the OAuth2 token source,
// refreshing expired access tokens transparently.
type GoogleOpener struct {
	OAuth *google.OAuth
}

// Open creates an authenticated Gmail session for the credentials.
func (o *GoogleOpener) Open(ctx context.Context, creds *google.Credentials) (Session, error) {
	ts := o.OAuth.TokenSource(ctx, creds)
	client, err := gmail.NewClient(ctx, ts)
	if err != nil {
		return nil, err
	}
	return &googleSession{Client: client, creds: creds, oauth: o.OAuth, ctx: ctx}, nil
}

type googleSession struct {
	*gmail.Client
	creds *google.Credentials
	oauth *google.OAuth
	ctx   context.Context
}

func (s *googleSession) Credentials() (*google.Credentials, error) {
	tok, err := s.oauth.TokenSource(s.ctx, s.creds).Token()
	if err != nil {
		return nil, err
	}
	return &google.Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}
