// Package identity manages provider credentials and bearer token lifecycle.
package identity

import (
	"context"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
)

// Credentials identify one advertiser account at the vehicle data provider
type Credentials struct {
	Key          string
	Secret       string
	AdvertiserID string
}

// CredentialResolver maps a tenant to its provider credentials. The wider
// back office can plug a per-dealer store behind this; the default build
// uses one set of credentials from configuration.
type CredentialResolver interface {
	Resolve(ctx context.Context, tenant string) (Credentials, error)
}

// StaticCredentialResolver serves the same configured credentials for every
// tenant
type StaticCredentialResolver struct {
	credentials Credentials
}

// NewStaticCredentialResolver builds a resolver over the provider config
func NewStaticCredentialResolver(cfg config.ProviderConfig) *StaticCredentialResolver {
	return &StaticCredentialResolver{
		credentials: Credentials{
			Key:          cfg.Key,
			Secret:       cfg.Secret,
			AdvertiserID: cfg.AdvertiserID,
		},
	}
}

// Resolve implements CredentialResolver
func (r *StaticCredentialResolver) Resolve(_ context.Context, _ string) (Credentials, error) {
	if r.credentials.Key == "" || r.credentials.Secret == "" {
		return Credentials{}, shared.ErrUpstreamAuth
	}
	return r.credentials, nil
}

var _ CredentialResolver = (*StaticCredentialResolver)(nil)
