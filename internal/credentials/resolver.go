// Package credentials resolves per-provider API key locations into opaque
// handles. A handle defers the actual "is a secret configured" check to the
// first inference call rather than to construction, so a provider can be
// registered in tests with no secret available at all.
package credentials

import (
	"fmt"
	"os"
)

// Location is a credential location specifier: static(secret) | env(var) |
// dynamic(key_name) | file(path) | none.
type Location interface {
	isLocation()
}

// Static carries a secret supplied directly in configuration.
type Static struct{ Secret string }

// Env names an environment variable read at resolve time.
type Env struct{ Variable string }

// Dynamic defers lookup to a per-request InferenceCredentials map, keyed by
// KeyName, supplied by the caller at invoke time.
type Dynamic struct{ KeyName string }

// File reads the secret from a file path at resolve time (e.g. a mounted
// Kubernetes secret).
type File struct{ Path string }

// None marks a provider that takes no credential at all (e.g. a local
// model server).
type None struct{}

func (Static) isLocation()  {}
func (Env) isLocation()     {}
func (Dynamic) isLocation() {}
func (File) isLocation()    {}
func (None) isLocation()    {}

// ErrAPIKeyMissing is returned on first invocation of a provider whose
// credential could not be resolved to a value. It is intentionally not
// returned by Resolve itself.
type ErrAPIKeyMissing struct {
	Provider string
	Cause    error
}

func (e *ErrAPIKeyMissing) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("api key missing for provider %s: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("api key missing for provider %s", e.Provider)
}

func (e *ErrAPIKeyMissing) Unwrap() error { return e.Cause }

// ValidateOnResolve gates whether Resolve eagerly checks that a static/env/
// file credential actually has a value. Tests flip this off (the default)
// to construct providers with placeholder or absent secrets; production
// startup code sets it on via SetValidateOnResolve before loading config.
var validateOnResolve = false

// SetValidateOnResolve sets the process-wide credential-validation flag.
func SetValidateOnResolve(v bool) { validateOnResolve = v }

// Credential is the opaque handle returned by Resolve. Its zero value is
// not useful; always construct via Resolve.
type Credential struct {
	provider string
	location Location
	resolved string // for Static/Env/File, resolved eagerly; empty for Dynamic/None
}

// Provider returns the provider type this credential was resolved for.
func (c Credential) Provider() string { return c.provider }

// Value returns the secret to use for this call. dynamicCreds is the
// per-request credential map; it is consulted only when the location is
// Dynamic. Returns ErrAPIKeyMissing if no secret is available.
func (c Credential) Value(dynamicCreds map[string]string) (string, error) {
	switch loc := c.location.(type) {
	case Static, Env, File:
		if c.resolved == "" {
			return "", &ErrAPIKeyMissing{Provider: c.provider}
		}
		return c.resolved, nil
	case Dynamic:
		v, ok := dynamicCreds[loc.KeyName]
		if !ok || v == "" {
			return "", &ErrAPIKeyMissing{Provider: c.provider, Cause: fmt.Errorf("dynamic credential %q not supplied", loc.KeyName)}
		}
		return v, nil
	case None:
		return "", nil
	default:
		return "", &ErrAPIKeyMissing{Provider: c.provider}
	}
}

// Resolve builds an opaque credential handle for a provider type and
// location. It never fails: a missing secret surfaces as ErrAPIKeyMissing
// from Value at first invocation, not here. When validateOnResolve is set,
// static/env/file locations are still resolved eagerly (reading the env var
// or file now), but an empty result is recorded rather than rejected.
func Resolve(providerType string, loc Location) Credential {
	c := Credential{provider: providerType, location: loc}
	switch l := loc.(type) {
	case Static:
		c.resolved = l.Secret
	case Env:
		c.resolved = os.Getenv(l.Variable)
	case File:
		b, err := os.ReadFile(l.Path)
		if err == nil {
			c.resolved = trimNewline(string(b))
		}
	}
	return c
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
