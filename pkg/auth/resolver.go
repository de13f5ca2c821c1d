package auth

// Credentials holds the service-level authentication settings.
type Credentials struct {
	Username string
	Password string

	ClientID     string
	ClientSecret string

	// TrustedAuthName is the default identity attribute for trusted calls.
	// It may be set without TrustedAuthValue, in which case callers supply
	// the value through a CallContext.
	TrustedAuthName  string
	TrustedAuthValue string
}

// HasPassword reports whether password credentials are configured.
func (c Credentials) HasPassword() bool {
	return c.Username != "" && c.Password != ""
}

// HasTrustedClient reports whether trusted client credentials are configured.
func (c Credentials) HasTrustedClient() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Validate checks the credentials before any network call is made.
func (c Credentials) Validate() error {
	if (c.Username == "") != (c.Password == "") {
		return configErrorf("username", "username and password must be supplied together")
	}
	if (c.ClientID == "") != (c.ClientSecret == "") {
		return configErrorf("trusted.client_id", "client id and client secret must be supplied together")
	}
	if c.TrustedAuthValue != "" && c.TrustedAuthName == "" {
		return configErrorf("trusted.name", "a trusted auth value requires a trusted auth name")
	}
	if !c.HasPassword() && c.ClientID == "" {
		return configErrorf("", "either username and password or a trusted client id must be configured")
	}
	return nil
}

// CallContext carries a per-call trusted identity override.
type CallContext struct {
	TrustedAuthName  string
	TrustedAuthValue string
}

// ConfigSource records where a resolved Config came from.
type ConfigSource string

const (
	// ConfigSourceCallContext means the call supplied its own trusted identity.
	ConfigSourceCallContext ConfigSource = "call-context"
	// ConfigSourceServicePass means the service password identity was used.
	ConfigSourceServicePass ConfigSource = "service-password"
	// ConfigSourceServiceTrusted means the service trusted identity was used.
	ConfigSourceServiceTrusted ConfigSource = "service-trusted"
)

// Resolver decides which Config applies to a call.
type Resolver struct {
	creds              Credentials
	requireCallContext bool
}

// ResolverOption configures the resolver
type ResolverOption func(*Resolver)

// NewResolver creates a resolver for the given service credentials.
func NewResolver(creds Credentials, opts ...ResolverOption) *Resolver {
	r := &Resolver{creds: creds}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithRequireCallContext makes calls without a CallContext fail with
// ErrNoCallContext instead of falling back to the service identity.
func WithRequireCallContext(require bool) ResolverOption {
	return func(r *Resolver) {
		r.requireCallContext = require
	}
}

// Resolve returns the Config for a call. Errors are *ConfigurationError or
// ErrNoCallContext and never involve the network.
func (r *Resolver) Resolve(cc *CallContext) (Config, ConfigSource, error) {
	if cc == nil && r.requireCallContext {
		return nil, "", ErrNoCallContext
	}

	if cc != nil {
		if cc.TrustedAuthValue != "" {
			name := cc.TrustedAuthName
			if name == "" {
				name = r.creds.TrustedAuthName
			}
			if name == "" {
				return nil, "", configErrorf("trusted.name", "call context supplies a trusted auth value but no trusted auth name is configured")
			}
			if !r.creds.HasTrustedClient() {
				return nil, "", configErrorf("trusted.client_id", "trusted identity %q requires a client id and client secret", name)
			}
			return &TrustedConfig{
				ClientID:     r.creds.ClientID,
				ClientSecret: r.creds.ClientSecret,
				Name:         name,
				Value:        cc.TrustedAuthValue,
			}, ConfigSourceCallContext, nil
		}
		if cc.TrustedAuthName != "" {
			return nil, "", configErrorf("trusted.value", "call context supplies trusted auth name %q without a value", cc.TrustedAuthName)
		}
	}

	if r.creds.HasPassword() {
		return &PasswordConfig{
			Username: r.creds.Username,
			Password: r.creds.Password,
		}, ConfigSourceServicePass, nil
	}

	if r.creds.HasTrustedClient() && r.creds.TrustedAuthName != "" && r.creds.TrustedAuthValue != "" {
		return &TrustedConfig{
			ClientID:     r.creds.ClientID,
			ClientSecret: r.creds.ClientSecret,
			Name:         r.creds.TrustedAuthName,
			Value:        r.creds.TrustedAuthValue,
		}, ConfigSourceServiceTrusted, nil
	}

	return nil, "", configErrorf("", "no authentication method applies: configure a password or pass a trusted identity in the call context")
}
