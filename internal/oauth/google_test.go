package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"scentshop.org/internal/auth"
)

type fakeGoogle struct {
	server   *httptest.Server
	userinfo map[string]any
	status   int
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{
		status: http.StatusOK,
		userinfo: map[string]any{
			"sub":            "g-123",
			"email":          "alice@example.com",
			"email_verified": true,
			"name":           "Alice",
			"picture":        "https://img.example/alice.png",
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.status != http.StatusOK {
			w.WriteHeader(f.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.userinfo)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGoogle) provider() *Google {
	return NewGoogle("client", "secret", "http://localhost/auth/google/callback",
		WithEndpoint(oauth2.Endpoint{
			AuthURL:   f.server.URL + "/auth",
			TokenURL:  f.server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}),
		WithUserInfoURL(f.server.URL+"/userinfo"),
		WithHTTPClient(f.server.Client()),
	)
}

func TestAuthCodeURLCarriesState(t *testing.T) {
	g := newFakeGoogle(t).provider()
	u, err := url.Parse(g.AuthCodeURL("state-1"))
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "state-1", q.Get("state"))
	require.Equal(t, "client", q.Get("client_id"))
	require.Contains(t, q.Get("scope"), "email")
}

func TestExchange(t *testing.T) {
	f := newFakeGoogle(t)
	a, err := f.provider().Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	require.Equal(t, auth.Assertion{
		Provider:      auth.ProviderGoogle,
		Subject:       "g-123",
		Email:         "alice@example.com",
		EmailVerified: true,
		Name:          "Alice",
		Avatar:        "https://img.example/alice.png",
	}, a)

	_, err = f.provider().Exchange(context.Background(), "bad-code")
	require.ErrorIs(t, err, auth.ErrUpstreamProvider)

	_, err = f.provider().Exchange(context.Background(), "")
	require.ErrorIs(t, err, auth.ErrUpstreamProvider)
}

func TestVerifyAccessToken(t *testing.T) {
	f := newFakeGoogle(t)
	g := f.provider()

	f.userinfo["email_verified"] = "false"
	a, err := g.VerifyAccessToken(context.Background(), "at-1")
	require.NoError(t, err)
	require.False(t, a.EmailVerified)

	_, err = g.VerifyAccessToken(context.Background(), "stolen")
	require.ErrorIs(t, err, auth.ErrUpstreamProvider)

	delete(f.userinfo, "sub")
	_, err = g.VerifyAccessToken(context.Background(), "at-1")
	require.ErrorIs(t, err, auth.ErrUpstreamProvider)

	f.status = http.StatusBadGateway
	_, err = g.VerifyAccessToken(context.Background(), "at-1")
	require.ErrorIs(t, err, auth.ErrUpstreamProvider)
}

func TestVerifyAccessTokenPlugsIntoProviders(t *testing.T) {
	f := newFakeGoogle(t)
	providers := auth.Providers{}
	providers.Register(auth.ProviderGoogle, f.provider().VerifyAccessToken)

	a, err := providers.Verify(context.Background(), "google", "at-1")
	require.NoError(t, err)
	require.Equal(t, "g-123", a.Subject)
}
