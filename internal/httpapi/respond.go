package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"scentshop.org/internal/auth"
	"scentshop.org/internal/catalog"
	"scentshop.org/internal/ids"
	"scentshop.org/internal/oauth"
	"scentshop.org/internal/obs"
	"scentshop.org/internal/review"
)

const (
	msgTokenRequired      = "Access token required"
	msgTokenInvalid       = "Invalid or expired token"
	msgInvalidCredentials = "Invalid email or password"
	msgInternal           = "internal error"
	msgProviderRejected   = "Identity provider could not verify the sign-in"
	msgEmailUnverified    = "Identity provider did not verify the email"
	msgStateInvalid       = "Sign-in session expired, please try again"
)

type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, envelope{Success: false, Message: msg, RequestID: RequestIDFromContext(r.Context())})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "not found")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// pathID returns the named path parameter, or writes notFoundErr and reports
// false when it is not a well-formed id.
func pathID(w http.ResponseWriter, r *http.Request, name string, notFoundErr error) (string, bool) {
	id := chi.URLParam(r, name)
	if !ids.Valid(id) {
		writeDomainError(w, r, notFoundErr)
		return "", false
	}
	return id, true
}

// writeDomainError maps service errors onto status codes. Unknown errors are
// logged and reported as a generic 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusForbidden, msgTokenInvalid)
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, msgTokenRequired)
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, publicMessage(err))
	case errors.Is(err, auth.ErrDuplicateEmail):
		writeError(w, r, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, review.ErrAlreadyReviewed):
		writeError(w, r, http.StatusBadRequest, "You have already reviewed this perfume")
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, review.ErrInvalidRating),
		errors.Is(err, review.ErrInvalidContent):
		writeError(w, r, http.StatusBadRequest, publicMessage(err))
	case errors.Is(err, auth.ErrUpstreamProvider),
		errors.Is(err, auth.ErrUnverifiedEmail),
		errors.Is(err, oauth.ErrInvalidState):
		obs.Warn("identity_provider_rejected", map[string]any{
			"request_id": RequestIDFromContext(r.Context()),
			"error":      err,
		})
		writeError(w, r, http.StatusUnauthorized, providerMessage(err))
	case errors.Is(err, auth.ErrUnknownProvider):
		writeError(w, r, http.StatusNotFound, "Unknown identity provider")
	case errors.Is(err, auth.ErrNotFound),
		errors.Is(err, review.ErrNotFound),
		errors.Is(err, review.ErrPerfumeNotFound),
		errors.Is(err, catalog.ErrNotFound):
		writeError(w, r, http.StatusNotFound, publicMessage(err))
	default:
		obs.Error("request_failed", map[string]any{
			"request_id": RequestIDFromContext(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"error":      err,
		})
		writeError(w, r, http.StatusInternalServerError, msgInternal)
	}
}

// providerMessage maps identity provider failures to fixed text; the wrapped
// upstream detail stays in the log.
func providerMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrUnverifiedEmail):
		return msgEmailUnverified
	case errors.Is(err, oauth.ErrInvalidState):
		return msgStateInvalid
	default:
		return msgProviderRejected
	}
}

// publicMessage strips the package prefix ("auth: ", "review: ") from a
// sentinel-derived error and capitalises the first letter.
func publicMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 && !strings.Contains(msg[:i], " ") {
		msg = msg[i+2:]
	}
	if msg == "" {
		return msgInternal
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
