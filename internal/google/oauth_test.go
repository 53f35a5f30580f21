package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestAuthCodeURL(t *testing.T) {
	o := NewOAuth("client-id", "client-secret", "http://localhost:8081/auth/gmail/callback")

	raw := o.AuthCodeURL("state-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8081/auth/gmail/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Contains(t, q.Get("scope"), "gmail.readonly")
	assert.Contains(t, q.Get("scope"), "userinfo.email")
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "ya29.access",
			"refresh_token": "1//refresh",
			"token_type": "Bearer",
			"expires_in": 3599
		}`))
	}))
	defer srv.Close()

	o := NewOAuth("client-id", "client-secret", "http://localhost/cb")
	o.conf.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}

	creds, err := o.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "ya29.access", creds.AccessToken)
	assert.Equal(t, "1//refresh", creds.RefreshToken)
	assert.False(t, creds.Expiry.IsZero())
}

func TestExchangeUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	o := NewOAuth("client-id", "client-secret", "http://localhost/cb")
	o.conf.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}

	_, err := o.Exchange(context.Background(), "any")
	assert.ErrorIs(t, err, ErrExchangeFailed)
}
