package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"scentshop.org/internal/audit"
	"scentshop.org/internal/auth"
	"scentshop.org/internal/obs"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	YOB      int    `json:"YOB"`
	Gender   bool   `json:"gender"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentialRequest struct {
	Credential string `json:"credential"`
}

type sessionResponse struct {
	Member    auth.Member `json:"member"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	m, err := a.linker.Register(r.Context(), auth.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		YearOfBirth: req.YOB,
		Gender:      req.Gender,
	})
	if err != nil {
		obs.AuthEvent("register", outcomeOf(err))
		writeDomainError(w, r, err)
		return
	}
	obs.AuthEvent("register", "ok")
	_ = audit.LogEvent(auth.ContextWithMember(r.Context(), m), audit.EventMemberRegistered, map[string]any{
		"provider": m.Provider,
	})
	a.issueSession(w, r, http.StatusCreated, m, "register")
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	m, err := a.linker.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.AuthEvent("login", outcomeOf(err))
		writeDomainError(w, r, err)
		return
	}
	obs.AuthEvent("login", "ok")
	_ = audit.LogEvent(auth.ContextWithMember(r.Context(), m), audit.EventMemberLogin, map[string]any{
		"method": auth.ProviderLocal,
	})
	a.issueSession(w, r, http.StatusOK, m, "login")
}

// handleProviderCredential is the POST variant: the client already holds a
// provider-issued credential and asks us to verify it.
func (a *API) handleProviderCredential(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	var req credentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	assertion, err := a.providers.Verify(r.Context(), provider, req.Credential)
	if err != nil {
		obs.AuthEvent("oauth", outcomeOf(err))
		writeDomainError(w, r, err)
		return
	}
	a.linkAndIssue(w, r, assertion)
}

func (a *API) handleRedirectStart(w http.ResponseWriter, r *http.Request) {
	rp, ok := a.redirects[strings.ToLower(chi.URLParam(r, "provider"))]
	if !ok {
		writeDomainError(w, r, auth.ErrUnknownProvider)
		return
	}
	state, err := a.states.Issue(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	http.Redirect(w, r, rp.AuthCodeURL(state), http.StatusFound)
}

// handleRedirectCallback completes the browser handshake and then behaves
// exactly like the credential variant; no session outlives this request.
func (a *API) handleRedirectCallback(w http.ResponseWriter, r *http.Request) {
	provider := strings.ToLower(chi.URLParam(r, "provider"))
	rp, ok := a.redirects[provider]
	if !ok {
		writeDomainError(w, r, auth.ErrUnknownProvider)
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		obs.AuthEvent("oauth", "provider_denied")
		writeError(w, r, http.StatusUnauthorized, "Identity provider denied the sign-in")
		return
	}
	if err := a.states.Consume(r.Context(), q.Get("state")); err != nil {
		obs.AuthEvent("oauth", "invalid_state")
		writeDomainError(w, r, err)
		return
	}
	assertion, err := rp.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		obs.AuthEvent("oauth", outcomeOf(err))
		writeDomainError(w, r, err)
		return
	}
	if assertion.Provider == "" {
		assertion.Provider = provider
	}
	a.linkAndIssue(w, r, assertion)
}

func (a *API) linkAndIssue(w http.ResponseWriter, r *http.Request, assertion auth.Assertion) {
	m, outcome, err := a.linker.Link(r.Context(), assertion)
	if err != nil {
		obs.AuthEvent("oauth", outcomeOf(err))
		writeDomainError(w, r, err)
		return
	}
	obs.AuthEvent("oauth", string(outcome))
	_ = audit.LogEvent(auth.ContextWithMember(r.Context(), m), audit.EventMemberOAuthLinked, map[string]any{
		"provider": assertion.Provider,
		"outcome":  string(outcome),
	})
	a.issueSession(w, r, http.StatusOK, m, "oauth")
}

func (a *API) issueSession(w http.ResponseWriter, r *http.Request, code int, m auth.Member, trigger string) {
	token, exp, err := a.tokens.Issue(m.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	obs.TokenIssued(trigger)
	writeData(w, code, sessionResponse{Member: m, Token: token, ExpiresAt: exp})
}

// outcomeOf labels a failed identity operation for metrics.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, auth.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, auth.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, auth.ErrUnverifiedEmail):
		return "unverified_email"
	case errors.Is(err, auth.ErrUpstreamProvider):
		return "upstream_failure"
	case errors.Is(err, auth.ErrUnknownProvider):
		return "unknown_provider"
	default:
		return "error"
	}
}
