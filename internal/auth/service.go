package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
)

const (
	minPasswordLength = 6
	minYearOfBirth    = 1900
)

// LinkOutcome describes what Link did with an external assertion.
type LinkOutcome string

const (
	LinkExisting LinkOutcome = "existing"
	LinkMerged   LinkOutcome = "merged"
	LinkCreated  LinkOutcome = "created"
)

// IdentityLinker owns the two member entry flows (local registration and
// external assertions) and keeps them converging on one member per email.
// The store's unique indexes are the real backstop: every check-then-write
// path translates ErrConflict into the matching domain outcome.
type IdentityLinker struct {
	members  MemberStore
	now      func() time.Time
	defaults OAuthDefaults
}

// LinkerOption configures IdentityLinker behavior.
type LinkerOption func(*IdentityLinker)

// WithLinkerClock overrides time source (useful for tests).
func WithLinkerClock(fn func() time.Time) LinkerOption {
	return func(l *IdentityLinker) {
		if fn != nil {
			l.now = fn
		}
	}
}

// WithOAuthDefaults sets the profile values given to provider-created members.
func WithOAuthDefaults(d OAuthDefaults) LinkerOption {
	return func(l *IdentityLinker) {
		l.defaults = d
	}
}

// NewIdentityLinker constructs an IdentityLinker.
func NewIdentityLinker(members MemberStore, opts ...LinkerOption) (*IdentityLinker, error) {
	if members == nil {
		return nil, errors.New("auth: member store is required")
	}
	l := &IdentityLinker{
		members:  members,
		now:      time.Now,
		defaults: DefaultOAuthDefaults,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Register creates a local member. The admin flag is always false.
func (l *IdentityLinker) Register(ctx context.Context, in RegisterInput) (Member, error) {
	email, err := validateEmail(in.Email)
	if err != nil {
		return Member{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return Member{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Member{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := l.validateYearOfBirth(in.YearOfBirth); err != nil {
		return Member{}, err
	}

	if _, err := l.members.FindByEmail(ctx, email); err == nil {
		return Member{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return Member{}, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return Member{}, err
	}
	now := l.now().UTC()
	m := &Member{
		Email:        email,
		PasswordHash: hash,
		Provider:     ProviderLocal,
		DisplayName:  name,
		YearOfBirth:  in.YearOfBirth,
		Gender:       in.Gender,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.members.Create(ctx, m); err != nil {
		if errors.Is(err, ErrConflict) {
			return Member{}, ErrDuplicateEmail
		}
		return Member{}, err
	}
	return *m, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// Login checks a local password. Unknown email, OAuth-only member and wrong
// password all yield ErrInvalidCredentials.
func (l *IdentityLinker) Login(ctx context.Context, email, password string) (Member, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Member{}, ErrInvalidCredentials
	}
	m, err := l.members.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			burnCompare(password)
			return Member{}, ErrInvalidCredentials
		}
		return Member{}, err
	}
	if !m.HasPassword() {
		burnCompare(password)
		return Member{}, ErrInvalidCredentials
	}
	ok, err := VerifyPassword(m.PasswordHash, password)
	if err != nil {
		return Member{}, err
	}
	if !ok {
		return Member{}, ErrInvalidCredentials
	}
	return m, nil
}

// burnCompare spends a bcrypt comparison so unknown emails take as long as wrong passwords.
func burnCompare(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = HashPassword("scentshop-timing-equaliser")
	})
	if dummyHash != "" {
		_, _ = VerifyPassword(dummyHash, password)
	}
}

// Link finds or creates the member for an external assertion.
//
// A member already bound to a provider id is returned unchanged. A local-only
// member with the same email gains the provider id, provider name and avatar
// and keeps everything else. Otherwise a new member is created with the
// configured OAuth defaults.
func (l *IdentityLinker) Link(ctx context.Context, a Assertion) (Member, LinkOutcome, error) {
	a.Subject = strings.TrimSpace(a.Subject)
	a.Email = NormalizeEmail(a.Email)
	a.Provider = strings.ToLower(strings.TrimSpace(a.Provider))
	if a.Provider == "" {
		a.Provider = ProviderGoogle
	}
	if a.Subject == "" || a.Email == "" {
		return Member{}, "", fmt.Errorf("%w: assertion lacks subject or email", ErrUpstreamProvider)
	}
	if !a.EmailVerified {
		return Member{}, "", ErrUnverifiedEmail
	}

	// One retry covers losing a create or merge race to a concurrent request.
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := l.members.FindByExternalOrEmail(ctx, a.Subject, a.Email)
		switch {
		case err == nil:
			m, outcome, err := l.merge(ctx, existing, a)
			if errors.Is(err, ErrConflict) {
				continue
			}
			return m, outcome, err
		case !errors.Is(err, ErrNotFound):
			return Member{}, "", err
		}

		m, err := l.createFromAssertion(ctx, a)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return Member{}, "", err
		}
		return m, LinkCreated, nil
	}
	return Member{}, "", ErrDuplicateEmail
}

func (l *IdentityLinker) merge(ctx context.Context, m Member, a Assertion) (Member, LinkOutcome, error) {
	if m.Linked() {
		return m, LinkExisting, nil
	}
	m.ExternalProviderID = a.Subject
	m.Provider = a.Provider
	if a.Avatar != "" {
		m.Avatar = a.Avatar
	}
	m.UpdatedAt = l.now().UTC()
	if err := l.members.Update(ctx, &m); err != nil {
		return Member{}, "", err
	}
	return m, LinkMerged, nil
}

func (l *IdentityLinker) createFromAssertion(ctx context.Context, a Assertion) (Member, error) {
	now := l.now().UTC()
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name, _, _ = strings.Cut(a.Email, "@")
	}
	m := &Member{
		Email:              a.Email,
		ExternalProviderID: a.Subject,
		Provider:           a.Provider,
		DisplayName:        name,
		Avatar:             a.Avatar,
		YearOfBirth:        now.Year() - l.defaults.Age,
		Gender:             l.defaults.Gender,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := l.members.Create(ctx, m); err != nil {
		return Member{}, err
	}
	return *m, nil
}

// Get loads a member by id.
func (l *IdentityLinker) Get(ctx context.Context, id string) (Member, error) {
	return l.members.Find(ctx, id)
}

// List returns every member.
func (l *IdentityLinker) List(ctx context.Context) ([]Member, error) {
	return l.members.List(ctx)
}

// UpdateProfile applies a self-service profile change.
func (l *IdentityLinker) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (Member, error) {
	m, err := l.members.Find(ctx, id)
	if err != nil {
		return Member{}, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Member{}, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		m.DisplayName = name
	}
	if upd.YearOfBirth != nil {
		if err := l.validateYearOfBirth(*upd.YearOfBirth); err != nil {
			return Member{}, err
		}
		m.YearOfBirth = *upd.YearOfBirth
	}
	if upd.Gender != nil {
		m.Gender = *upd.Gender
	}
	if upd.Avatar != nil {
		m.Avatar = strings.TrimSpace(*upd.Avatar)
	}
	m.UpdatedAt = l.now().UTC()
	if err := l.members.Update(ctx, &m); err != nil {
		return Member{}, err
	}
	return m, nil
}

// ChangePassword replaces a member's password after checking the current one.
// A member without a local password may set one without a current password.
func (l *IdentityLinker) ChangePassword(ctx context.Context, id, current, next string) error {
	if err := validatePassword(next); err != nil {
		return err
	}
	m, err := l.members.Find(ctx, id)
	if err != nil {
		return err
	}
	if m.HasPassword() {
		ok, err := VerifyPassword(m.PasswordHash, current)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidCredentials
		}
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	m.PasswordHash = hash
	m.UpdatedAt = l.now().UTC()
	return l.members.Update(ctx, &m)
}

// EnsureAdmin creates or promotes the bootstrap administrator. passwordHash
// must already be a bcrypt hash; a corrupt hash is rejected.
func (l *IdentityLinker) EnsureAdmin(ctx context.Context, email, passwordHash string) (Member, error) {
	email, err := validateEmail(email)
	if err != nil {
		return Member{}, err
	}
	if err := CheckHash(passwordHash); err != nil {
		return Member{}, err
	}
	for attempt := 0; attempt < 2; attempt++ {
		m, err := l.members.FindByEmail(ctx, email)
		if err == nil {
			if m.IsAdmin {
				return m, nil
			}
			m.IsAdmin = true
			m.UpdatedAt = l.now().UTC()
			if err := l.members.Update(ctx, &m); err != nil {
				return Member{}, err
			}
			return m, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Member{}, err
		}
		now := l.now().UTC()
		admin := &Member{
			Email:        email,
			PasswordHash: passwordHash,
			Provider:     ProviderLocal,
			DisplayName:  "Administrator",
			IsAdmin:      true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err = l.members.Create(ctx, admin)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return Member{}, err
		}
		return *admin, nil
	}
	return Member{}, ErrDuplicateEmail
}

func validateEmail(raw string) (string, error) {
	email := NormalizeEmail(raw)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	return email, nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return nil
}

func (l *IdentityLinker) validateYearOfBirth(yob int) error {
	if yob < minYearOfBirth || yob > l.now().Year() {
		return fmt.Errorf("%w: YOB must be between %d and %d", ErrInvalidInput, minYearOfBirth, l.now().Year())
	}
	return nil
}
