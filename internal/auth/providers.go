package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// VerifyFunc turns a provider-issued credential into a verified Assertion.
// Failures should wrap ErrUpstreamProvider.
type VerifyFunc func(ctx context.Context, credential string) (Assertion, error)

// Providers maps a provider name to its verification function. It is built
// at startup and handed to the server; there is no process-wide registry.
type Providers map[string]VerifyFunc

// Register adds or replaces a provider.
func (p Providers) Register(name string, fn VerifyFunc) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || fn == nil {
		return
	}
	p[name] = fn
}

// Lookup returns the verification function for name.
func (p Providers) Lookup(name string) (VerifyFunc, error) {
	fn, ok := p[strings.ToLower(strings.TrimSpace(name))]
	if !ok || fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return fn, nil
}

// Names returns the registered provider names in sorted order.
func (p Providers) Names() []string {
	out := make([]string, 0, len(p))
	for name := range p {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Verify looks up the provider and runs it, stamping the provider name on the result.
func (p Providers) Verify(ctx context.Context, name, credential string) (Assertion, error) {
	fn, err := p.Lookup(name)
	if err != nil {
		return Assertion{}, err
	}
	if strings.TrimSpace(credential) == "" {
		return Assertion{}, fmt.Errorf("%w: credential is required", ErrInvalidInput)
	}
	a, err := fn(ctx, credential)
	if err != nil {
		return Assertion{}, err
	}
	if a.Provider == "" {
		a.Provider = strings.ToLower(strings.TrimSpace(name))
	}
	return a, nil
}
