package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/openfroyo/sitefroyo/pkg/telemetry"
)

// Collaborator names used in logs, metrics and spans.
const (
	CollaboratorParameters     = "parameters"
	CollaboratorHostedZone     = "hosted_zone"
	CollaboratorHostedZoneNS   = "hosted_zone_ns"
	CollaboratorDNSNameservers = "dns_ns"
	CollaboratorDNSTxt         = "dns_txt"
	CollaboratorHTTPProbe      = "http_probe"
	CollaboratorRegistrar      = "registrar"
	CollaboratorBucket         = "bucket"
)

// Collaborators groups the data sources used to build a SiteContext. Any
// field may be nil, in which case the corresponding context fields stay
// absent.
type Collaborators struct {
	Nameservers NameserverResolver
	Ownership   OwnershipResolver
	Prober      ConnectionProber
	Parameters  ParameterStore
	HostedZones HostedZoneClient
	Registrar   RegistrarClient
	Buckets     BucketInspector
}

// Gatherer builds SiteContexts by querying collaborators concurrently.
type Gatherer struct {
	collab        Collaborators
	systemVersion string
	logger        zerolog.Logger
	metrics       *telemetry.Metrics
	tracer        *telemetry.Tracer
}

// GathererOption configures a Gatherer.
type GathererOption func(*Gatherer)

// WithGathererLogger sets the logger.
func WithGathererLogger(l zerolog.Logger) GathererOption {
	return func(g *Gatherer) { g.logger = l }
}

// WithGathererTelemetry sets the metrics and tracer.
func WithGathererTelemetry(m *telemetry.Metrics, t *telemetry.Tracer) GathererOption {
	return func(g *Gatherer) {
		g.metrics = m
		g.tracer = t
	}
}

// WithSystemVersion sets the version of the running binary.
func WithSystemVersion(v string) GathererOption {
	return func(g *Gatherer) { g.systemVersion = v }
}

// NewGatherer creates a gatherer over collab.
func NewGatherer(collab Collaborators, opts ...GathererOption) *Gatherer {
	g := &Gatherer{
		collab: collab,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Gather builds a fresh context for site. Collaborator failures are logged
// and replaced with neutral values; the only error returned is context
// cancellation.
func (g *Gatherer) Gather(ctx context.Context, site SiteSpec, command Command) (*SiteContext, error) {
	sc := &SiteContext{
		Site:          site,
		SiteID:        SiteIDFromDomain(site.Domain),
		Command:       command,
		SystemVersion: g.systemVersion,
		Parameters:    Parameters{},
	}

	logger := g.logger.With().Str("site_id", sc.SiteID).Logger()

	// Phase 1: independent lookups.
	grp, gctx := errgroup.WithContext(ctx)

	if c := g.collab.Parameters; c != nil {
		grp.Go(func() error {
			return g.call(gctx, logger, CollaboratorParameters, func(ctx context.Context) error {
				list, err := c.GetParameters(ctx, sc.SiteID)
				if err != nil {
					return err
				}
				sc.Parameters = ParametersFromList(list)
				return nil
			})
		})
	}

	if c := g.collab.HostedZones; c != nil {
		grp.Go(func() error {
			return g.call(gctx, logger, CollaboratorHostedZone, func(ctx context.Context) error {
				attrs, err := c.GetHostedZoneAttributes(ctx, site.Domain)
				if err != nil {
					return err
				}
				sc.HostedZone = attrs
				return nil
			})
		})
		grp.Go(func() error {
			sc.HostedZoneNameservers = []string{}
			return g.call(gctx, logger, CollaboratorHostedZoneNS, func(ctx context.Context) error {
				ns, err := c.GetHostedZoneNameservers(ctx, site.Domain)
				if err != nil {
					return err
				}
				sc.HostedZoneNameservers = nonNil(ns)
				return nil
			})
		})
	}

	if c := g.collab.Nameservers; c != nil {
		grp.Go(func() error {
			return g.call(gctx, logger, CollaboratorDNSNameservers, func(ctx context.Context) error {
				sc.DNSResolvedNameservers = nonNil(c.ResolveNameservers(ctx, site.Domain))
				return nil
			})
		})
	}

	if c := g.collab.Ownership; c != nil {
		grp.Go(func() error {
			return g.call(gctx, logger, CollaboratorDNSTxt, func(ctx context.Context) error {
				sc.DNSResolvedTxtRecord = c.ResolveOwnershipTxtRecord(ctx, site.Domain)
				return nil
			})
		})
	}

	if c := g.collab.Prober; c != nil {
		grp.Go(func() error {
			return g.call(gctx, logger, CollaboratorHTTPProbe, func(ctx context.Context) error {
				sc.Connection = c.ProbeConnection(ctx, site.Domain, SiteURL(site.Domain))
				return nil
			})
		})
	}

	if c := g.collab.Registrar; c != nil {
		grp.Go(func() error {
			return g.call(gctx, logger, CollaboratorRegistrar, func(ctx context.Context) error {
				sc.RegistrarNameservers = nonNil(c.GetRegistrarNameservers(ctx, site))
				return nil
			})
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}

	sc.WebmasterEmail = site.WebmasterEmail
	if sc.WebmasterEmail == "" {
		sc.WebmasterEmail = sc.Param(ParamWebmasterEmail)
	}

	// Phase 2: lookups that need persisted parameters.
	if c := g.collab.Buckets; c != nil && sc.Parameters.Has(ParamDomainBucketName) {
		bucket := sc.Param(ParamDomainBucketName)
		err := g.call(ctx, logger, CollaboratorBucket, func(ctx context.Context) error {
			exists, err := c.BucketExists(ctx, bucket)
			if err != nil || !exists {
				return err
			}
			sc.BucketExists = true

			empty, err := c.IsBucketEmpty(ctx, bucket)
			if err != nil {
				return err
			}
			sc.BucketEmpty = empty
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return sc, nil
}

// call runs one collaborator lookup. Lookup errors are recovered here; only
// cancellation of ctx is returned.
func (g *Gatherer) call(ctx context.Context, logger zerolog.Logger, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := g.tracer.StartCollaboratorSpan(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)
	g.metrics.RecordCollaboratorCall(name, duration)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		g.metrics.RecordCollaboratorError(name)
		telemetry.RecordError(span, err)
		logger.Warn().
			Err(err).
			Str("collaborator", name).
			Dur("duration", duration).
			Msg("Collaborator lookup failed, continuing without it")
		return nil
	}

	telemetry.RecordSuccess(span)
	logger.Debug().
		Str("collaborator", name).
		Dur("duration", duration).
		Msg("Collaborator lookup completed")
	return nil
}

// SiteURL returns the URL probed for domain.
func SiteURL(domain string) string {
	return "https://" + domain + "/"
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
