package resolver

import (
	"github.com/google/uuid"

	"github.com/agentstation/ledgermap/pkg/authority"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/identity"
	"github.com/agentstation/ledgermap/pkg/idmap"
	"github.com/agentstation/ledgermap/pkg/matcher"
)

type options struct {
	matcher     *matcher.Matcher
	authorities authority.Authority
	namespace   uuid.UUID
	snapshot    *idmap.Snapshot
	tracking    bool
}

func defaultOptions() *options {
	return &options{
		matcher:     matcher.Default(),
		authorities: authority.New(),
		namespace:   identity.DefaultNamespace,
		snapshot:    idmap.NewSnapshot(),
		tracking:    true,
	}
}

// Option is a function that configures a Resolver.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithMatcher sets the matcher, for example one restricted to a strategy subset.
func WithMatcher(m *matcher.Matcher) Option {
	return func(o *options) error {
		if m == nil {
			return &errors.ValidationError{Field: "matcher", Message: "cannot be nil"}
		}
		o.matcher = m
		return nil
	}
}

// WithAuthorities sets the field authorities used to merge attributes.
func WithAuthorities(a authority.Authority) Option {
	return func(o *options) error {
		if a == nil {
			return &errors.ValidationError{Field: "authorities", Message: "cannot be nil"}
		}
		o.authorities = a
		return nil
	}
}

// WithNamespace sets the UUID v5 namespace of minted identities.
func WithNamespace(ns uuid.UUID) Option {
	return func(o *options) error {
		if ns == uuid.Nil {
			return &errors.ValidationError{Field: "namespace", Message: "cannot be the nil UUID"}
		}
		o.namespace = ns
		return nil
	}
}

// WithSnapshot sets the ID map loaded from previous runs. The resolver never
// modifies it.
func WithSnapshot(s *idmap.Snapshot) Option {
	return func(o *options) error {
		if s != nil {
			o.snapshot = s
		}
		return nil
	}
}

// WithProvenance enables or disables field provenance tracking.
func WithProvenance(enabled bool) Option {
	return func(o *options) error {
		o.tracking = enabled
		return nil
	}
}
