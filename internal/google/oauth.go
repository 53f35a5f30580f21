// Package google drives the OAuth2 authorization-code flow against
// Google and resolves the linked account's canonical address.
package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var (
	// ErrExchangeFailed is returned when the authorization code could
	// not be exchanged for tokens.
	ErrExchangeFailed = errors.New("token exchange with Google failed")

	// ErrProfileFailed is returned when the account's address could
	// not be resolved with the granted access token.
	ErrProfileFailed = errors.New("profile fetch from Google failed")
)

// Credentials is the outcome of a completed authorization-code
// exchange.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// OAuth wraps the OAuth2 configuration for linking Gmail inboxes.
type OAuth struct {
	conf *oauth2.Config
}

// NewOAuth creates the OAuth2 flow configuration. The requested scopes
// cover read-only mailbox access and the account's email identity.
func NewOAuth(clientID, clientSecret, redirectURL string) *OAuth {
	return &OAuth{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes: []string{
				gmail.GmailReadonlyScope,
				oauth2api.UserinfoEmailScope,
			},
		},
	}
}

// AuthCodeURL builds the consent URL. access_type=offline and
// prompt=consent are forced so Google always issues a refresh token.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for provider credentials.
func (o *OAuth) Exchange(ctx context.Context, code string) (*Credentials, error) {
	tok, err := o.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in response", ErrExchangeFailed)
	}
	return &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}

// UserEmail resolves the canonical address of the account behind the
// given credentials.
func (o *OAuth) UserEmail(ctx context.Context, creds *Credentials) (string, error) {
	svc, err := oauth2api.NewService(ctx,
		option.WithTokenSource(o.TokenSource(ctx, creds)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("%w: response carries no email address", ErrProfileFailed)
	}
	return info.Email, nil
}

// TokenSource returns a self-refreshing token source for the stored
// credentials. When the access token has expired, the refresh token is
// used transparently on the next call.
func (o *OAuth) TokenSource(ctx context.Context, creds *Credentials) oauth2.TokenSource {
	return o.conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  creds.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.Expiry,
	})
}
