package auth

import (
	"strings"
	"time"
)

// Provider names recorded on a Member. Informational only.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// Member is a registered identity, created via local password or via an
// external provider.
type Member struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	ExternalProviderID string    `json:"externalProviderId,omitempty"`
	Provider           string    `json:"provider"`
	DisplayName        string    `json:"name"`
	Avatar             string    `json:"avatar,omitempty"`
	YearOfBirth        int       `json:"YOB"`
	Gender             bool      `json:"gender"`
	IsAdmin            bool      `json:"isAdmin"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// HasPassword reports whether the member can log in with a local password.
func (m Member) HasPassword() bool {
	return m.PasswordHash != ""
}

// Linked reports whether an external provider identity is bound to the member.
func (m Member) Linked() bool {
	return m.ExternalProviderID != ""
}

// NormalizeEmail lower-cases and trims an email so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Assertion is a verified identity statement produced by an external provider.
// It contains facts only; linking decisions are made by IdentityLinker.
type Assertion struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Avatar        string
}

// RegisterInput carries the fields accepted by local registration.
type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	YearOfBirth int
	Gender      bool
}

// ProfileUpdate lists the self-service profile fields. Nil fields are left untouched.
// It cannot change the admin flag.
type ProfileUpdate struct {
	Name        *string
	YearOfBirth *int
	Gender      *bool
	Avatar      *string
}

// OAuthDefaults are the profile values assigned to members created from an
// external assertion, which carries no birth year or gender.
type OAuthDefaults struct {
	Age    int
	Gender bool
}

// DefaultOAuthDefaults mirrors the storefront's historical behaviour.
var DefaultOAuthDefaults = OAuthDefaults{Age: 25, Gender: true}
