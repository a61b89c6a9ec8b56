package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"scentshop.org/internal/auth"
	"scentshop.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var (
	errMissingBearer = errors.New("missing bearer token")
	errBadScheme     = errors.New("invalid authorization scheme")
)

// authenticate resolves the bearer token into a member. A missing header is
// 401; a token that fails verification or names a deleted member is 403.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			if errors.Is(err, errBadScheme) {
				a.rejectToken(w, r, "bad_scheme")
				return
			}
			writeError(w, r, http.StatusUnauthorized, msgTokenRequired)
			return
		}

		member, err := a.guard.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				a.rejectToken(w, r, auth.TokenFailureReason(err))
				return
			}
			writeDomainError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithMember(r.Context(), member)))
	})
}

func (a *API) rejectToken(w http.ResponseWriter, r *http.Request, reason string) {
	obs.TokenRejected(reason)
	obs.Warn("token_rejected", map[string]any{
		"request_id": RequestIDFromContext(r.Context()),
		"path":       r.URL.Path,
		"reason":     reason,
	})
	writeError(w, r, http.StatusForbidden, msgTokenInvalid)
}

// requireAdmin must run after authenticate.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, ok := auth.MemberFromContext(r.Context())
		var d auth.Decision
		if ok {
			d = auth.RequireAdmin(&m)
		} else {
			d = auth.RequireAdmin(nil)
		}
		if !d.Allowed {
			writeDomainError(w, r, d.Err())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentMember(r *http.Request) (auth.Member, error) {
	m, ok := auth.MemberFromContext(r.Context())
	if !ok {
		return auth.Member{}, auth.ErrUnauthenticated
	}
	return m, nil
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" || strings.EqualFold(header, strings.TrimSpace(bearer)) {
		return "", errMissingBearer
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errBadScheme
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errMissingBearer
	}
	return token, nil
}
