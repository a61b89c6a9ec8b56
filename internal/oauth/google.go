// Package oauth turns Google sign-ins into auth.Assertion values. It only
// reports facts; linking them to members is the IdentityLinker's job.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"scentshop.org/internal/auth"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Google implements the redirect handshake and the access-token verification
// variant used by POST /auth/google.
type Google struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// GoogleOption configures Google.
type GoogleOption func(*Google)

// WithEndpoint overrides the authorization and token endpoints.
func WithEndpoint(ep oauth2.Endpoint) GoogleOption {
	return func(g *Google) { g.config.Endpoint = ep }
}

// WithUserInfoURL overrides the OpenID userinfo endpoint.
func WithUserInfoURL(url string) GoogleOption {
	return func(g *Google) {
		if url != "" {
			g.userInfoURL = url
		}
	}
}

// WithHTTPClient sets the client used for token and userinfo calls.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(g *Google) {
		if c != nil {
			g.httpClient = c
		}
	}
}

func NewGoogle(clientID, clientSecret, redirectURL string, opts ...GoogleOption) *Google {
	g := &Google{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AuthCodeURL is where the browser is sent to start the handshake.
func (g *Google) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the signed-in identity.
func (g *Google) Exchange(ctx context.Context, code string) (auth.Assertion, error) {
	if strings.TrimSpace(code) == "" {
		return auth.Assertion{}, fmt.Errorf("%w: missing authorization code", auth.ErrUpstreamProvider)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return auth.Assertion{}, fmt.Errorf("%w: code exchange: %v", auth.ErrUpstreamProvider, err)
	}
	return g.userInfo(ctx, oauth2.StaticTokenSource(tok))
}

// VerifyAccessToken resolves a Google access token presented by a client.
// It satisfies auth.VerifyFunc.
func (g *Google) VerifyAccessToken(ctx context.Context, accessToken string) (auth.Assertion, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	return g.userInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (g *Google) userInfo(ctx context.Context, src oauth2.TokenSource) (auth.Assertion, error) {
	client := oauth2.NewClient(ctx, src)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return auth.Assertion{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return auth.Assertion{}, fmt.Errorf("%w: userinfo: %v", auth.ErrUpstreamProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return auth.Assertion{}, fmt.Errorf("%w: userinfo status %d", auth.ErrUpstreamProvider, resp.StatusCode)
	}
	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return auth.Assertion{}, fmt.Errorf("%w: decode userinfo: %v", auth.ErrUpstreamProvider, err)
	}
	if info.Sub == "" || info.Email == "" {
		return auth.Assertion{}, fmt.Errorf("%w: userinfo lacks subject or email", auth.ErrUpstreamProvider)
	}
	return auth.Assertion{
		Provider:      auth.ProviderGoogle,
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: truthy(info.EmailVerified),
		Name:          info.Name,
		Avatar:        info.Picture,
	}, nil
}

// truthy accepts the boolean and string encodings Google has used for email_verified.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}
