package engine

import (
	"context"
)

// The interfaces below are the only way the engine reaches the outside
// world. Each one is called at most once per command, before evaluation,
// by the Gatherer.

// NameserverResolver resolves the public NS records of a domain.
// Implementations return an empty list on failure and never error.
type NameserverResolver interface {
	ResolveNameservers(ctx context.Context, domain string) []string
}

// OwnershipResolver resolves the ownership-proof TXT record of a domain.
// Implementations return "" on failure or absence.
type OwnershipResolver interface {
	ResolveOwnershipTxtRecord(ctx context.Context, domain string) string
}

// ConnectionProber performs the live HTTP probe. Implementations apply a
// short client-side timeout and synthesize a failed result instead of
// returning an error.
type ConnectionProber interface {
	ProbeConnection(ctx context.Context, domain, url string) *ConnectionStatus
}

// ParameterStore reads the persisted parameters of one site. The full
// result set is drained before returning.
type ParameterStore interface {
	GetParameters(ctx context.Context, siteID string) ([]Parameter, error)
}

// HostedZoneClient looks up the provider-side hosted zone of a domain.
// GetHostedZoneAttributes returns nil, nil when no zone exists.
type HostedZoneClient interface {
	GetHostedZoneAttributes(ctx context.Context, domain string) (*HostedZoneAttributes, error)
	GetHostedZoneNameservers(ctx context.Context, domain string) ([]string, error)
}

// RegistrarClient returns the nameservers the registrar has on record.
// It returns an empty list, not an error, when credentials are unavailable.
type RegistrarClient interface {
	GetRegistrarNameservers(ctx context.Context, site SiteSpec) []string
}

// BucketInspector reports on the site's content bucket.
type BucketInspector interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	IsBucketEmpty(ctx context.Context, bucket string) (bool, error)
}
