package engine

import (
	"context"

	"github.com/openfroyo/sitefroyo/pkg/rules"
)

// Fact names, in catalog order.
const (
	// Protection and system version.
	FactIsProtectedManifest    = "isProtectedManifest"
	FactIsProtectedParam       = "isProtectedParam"
	FactHasSystemVersionParam  = "hasSystemVersionParam"
	FactIsSystemVersionCurrent = "isSystemVersionCurrent"

	// Bootstrap identity.
	FactHasDomainUserParam      = "hasDomainUserParam"
	FactHasDomainPublisherParam = "hasDomainPublisherParam"
	FactIsBootstrapped          = "isBootstrapped"

	// Hosted zone existence and shape.
	FactHasHostedZoneIDParam      = "hasHostedZoneIdParam"
	FactHasHostedZoneNameServers  = "hasHostedZoneNameServers"
	FactHasHostedZoneAttributes   = "hasHostedZoneAttributes"
	FactHasDNSResolvedNameservers = "hasDnsResolvedNameservers"
	FactHasRegistrarNameservers   = "hasRegistrarNameservers"
	FactHasDNSResolvedTxtRecord   = "hasDnsResolvedTxtRecord"
	FactHasConnectionStatus       = "hasConnectionStatus"
	FactHas200ConnectionStatus    = "has200ConnectionStatus"

	// Certificate and storage.
	FactHasDomainCertificateParam = "hasDomainCertificateParam"
	FactHasDomainBucketNameParam  = "hasDomainBucketNameParam"
	FactHasDomainBucket           = "hasDomainBucket"
	FactIsDomainBucketEmpty       = "isDomainBucketEmpty"
	FactShouldDeployS3Content     = "shouldDeployS3Content"

	// Notifications.
	FactHasNotificationsSnsTopicParam     = "hasNotificationsSnsTopicParam"
	FactIsSnsNotificationEnabled          = "isSnsNotificationEnabled"
	FactHasWebmasterEmail                 = "hasWebmasterEmail"
	FactShouldAutoSubscribeWebmasterEmail = "shouldAutoSubscribeWebmasterEmail"

	// Cross-signal agreement.
	FactDNSNameserversMatchHostedZone       = "dnsResolvedNameserversMatchHostedZoneNameServers"
	FactRegistrarNameserversMatchHostedZone = "registrarNameserversMatchHostedZoneNameServers"
	FactHostedZoneAttributesMatch           = "hostedZoneAttributesMatch"
	FactHostedZoneDNSTxtRecordMatch         = "hostedZoneDnsTxtRecordMatch"
	FactHostedZoneVerified                  = "hostedZoneVerified"
	FactIsNameserversSetButNotPropagated    = "isNameserversSetButNotPropagated"

	// Registrar identity.
	FactIsRoute53RegistrarManifest  = "isRoute53RegistrarManifest"
	FactHasRoute53RegistrarParam    = "hasRoute53RegistrarParam"
	FactIsSelfHostedRegistrarDomain = "isSelfHostedRegistrarDomain"

	// Deployment gating.
	FactShouldDeployAllResources = "shouldDeployAllResources"

	// CDN bookkeeping.
	FactHasWebHostingConfig              = "hasWebHostingConfig"
	FactHasPipelineConfig                = "hasPipelineConfig"
	FactHasCloudfrontDistributionIDParam = "hasCloudfrontDistributionIdParam"
	FactHasWafConfig                     = "hasWafConfig"
	FactHasWafRateLimit                  = "hasWafRateLimit"
	FactIsWafConfigSane                  = "isWafConfigSane"

	// Status.
	FactIsStatusNotStarted                         = "isStatusNotStarted"
	FactIsStatusHostedZoneAwaitingNameserverConfig = "isStatusHostedZoneAwaitingNameserverConfig"
	FactIsStatusHostedZoneOk                       = "isStatusHostedZoneOk"
	FactIsStatusSiteFunctional                     = "isStatusSiteFunctional"
)

// SiteRule is a rule over a site context.
type SiteRule = rules.Rule[*SiteContext]

// SiteRules is an ordered site rule set.
type SiteRules = rules.Rules[*SiteContext]

func fact(name string, fn func(k rules.Known, c *SiteContext) bool) SiteRule {
	return rules.Fact(name, fn)
}

// Catalog returns the built-in site fact catalog. A predicate only reads
// facts declared above it.
func Catalog() SiteRules {
	return SiteRules{
		// Protection and system version.
		fact(FactIsProtectedManifest, func(_ rules.Known, c *SiteContext) bool {
			return rules.Is(c.Site.Protected)
		}),
		fact(FactIsProtectedParam, func(_ rules.Known, c *SiteContext) bool {
			return c.Param(ParamProtected) == "true"
		}),
		fact(FactHasSystemVersionParam, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsSet(c.Param(ParamSystemVersion))
		}),
		fact(FactIsSystemVersionCurrent, func(k rules.Known, c *SiteContext) bool {
			return k.Get(FactHasSystemVersionParam) && c.Param(ParamSystemVersion) == c.SystemVersion
		}),

		// Bootstrap identity.
		fact(FactHasDomainUserParam, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsSet(c.Param(ParamDomainUser))
		}),
		fact(FactHasDomainPublisherParam, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsSet(c.Param(ParamDomainPublisher))
		}),
		fact(FactIsBootstrapped, func(k rules.Known, _ *SiteContext) bool {
			return k.Get(FactHasDomainUserParam) && k.Get(FactHasDomainPublisherParam)
		}),

		// Hosted zone and DNS observability.
		fact(FactHasHostedZoneIDParam, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsSet(c.Param(ParamHostedZoneID))
		}),
		fact(FactHasHostedZoneNameServers, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsListPresent(c.HostedZoneNameservers)
		}),
		fact(FactHasHostedZoneAttributes, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsPresent(c.HostedZone)
		}),
		fact(FactHasDNSResolvedNameservers, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsListPresent(c.DNSResolvedNameservers)
		}),
		fact(FactHasRegistrarNameservers, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsListPresent(c.RegistrarNameservers)
		}),
		fact(FactHasDNSResolvedTxtRecord, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsSet(c.DNSResolvedTxtRecord)
		}),
		fact(FactHasConnectionStatus, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsPresent(c.Connection)
		}),
		fact(FactHas200ConnectionStatus, func(k rules.Known, c *SiteContext) bool {
			return k.Get(FactHasConnectionStatus) && c.Connection.StatusCode == 200
		}),

		// Certificate and storage.
		fact(FactHasDomainCertificateParam, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsSet(c.Param(ParamDomainCertificateARN))
		}),
		fact(FactHasDomainBucketNameParam, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsSet(c.Param(ParamDomainBucketName))
		}),
		fact(FactHasDomainBucket, func(_ rules.Known, c *SiteContext) bool {
			return rules.Is(c.BucketExists)
		}),
		fact(FactIsDomainBucketEmpty, func(_ rules.Known, c *SiteContext) bool {
			return rules.Is(c.BucketEmpty)
		}),
		fact(FactShouldDeployS3Content, func(k rules.Known, c *SiteContext) bool {
			return c.Command == CommandDeploy &&
				k.Get(FactHasDomainBucketNameParam) &&
				k.Get(FactHasDomainBucket) &&
				k.Get(FactIsDomainBucketEmpty)
		}),

		// Notifications.
		fact(FactHasNotificationsSnsTopicParam, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsSet(c.Param(ParamNotificationsSnsTopicARN))
		}),
		fact(FactIsSnsNotificationEnabled, func(k rules.Known, c *SiteContext) bool {
			return k.Get(FactHasNotificationsSnsTopicParam) && rules.IsNot(c.Site.Notifications.Disabled)
		}),
		fact(FactHasWebmasterEmail, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsSet(c.WebmasterEmail)
		}),
		fact(FactShouldAutoSubscribeWebmasterEmail, func(k rules.Known, c *SiteContext) bool {
			return k.Get(FactHasNotificationsSnsTopicParam) &&
				k.Get(FactHasWebmasterEmail) &&
				rules.IsNot(c.Site.Notifications.NoSubscribe)
		}),

		// Cross-signal agreement.
		fact(FactDNSNameserversMatchHostedZone, func(k rules.Known, c *SiteContext) bool {
			return k.Get(FactHasDNSResolvedNameservers) &&
				k.Get(FactHasHostedZoneNameServers) &&
				rules.IsNonEmpty(c.DNSResolvedNameservers) &&
				rules.IsSubset(c.HostedZoneNameservers, c.DNSResolvedNameservers) &&
				len(c.HostedZoneNameservers) == len(c.DNSResolvedNameservers)
		}),
		fact(FactRegistrarNameserversMatchHostedZone, func(k rules.Known, c *SiteContext) bool {
			return k.Get(FactHasRegistrarNameservers) &&
				k.Get(FactHasHostedZoneNameServers) &&
				rules.IsNonEmpty(c.RegistrarNameservers) &&
				len(c.RegistrarNameservers) == len(c.HostedZoneNameservers) &&
				rules.IsSubset(c.HostedZoneNameservers, c.RegistrarNameservers)
		}),
		fact(FactHostedZoneAttributesMatch, func(k rules.Known, c *SiteContext) bool {
			return k.Get(FactHasHostedZoneIDParam) &&
				k.Get(FactHasHostedZoneAttributes) &&
				c.HostedZone.ZoneID == c.Param(ParamHostedZoneID)
		}),
		// The TXT record is compared with the persisted hosted-zone-id
		// parameter, not with the zone's own ID. The two usually agree.
		fact(FactHostedZoneDNSTxtRecordMatch, func(k rules.Known, c *SiteContext) bool {
			return k.Get(FactHasHostedZoneIDParam) &&
				k.Get(FactHasDNSResolvedTxtRecord) &&
				c.DNSResolvedTxtRecord == c.Param(ParamHostedZoneID)
		}),
		fact(FactHostedZoneVerified, func(k rules.Known, _ *SiteContext) bool {
			return k.Get(FactHostedZoneAttributesMatch) && k.Get(FactHostedZoneDNSTxtRecordMatch)
		}),
		fact(FactIsNameserversSetButNotPropagated, func(k rules.Known, c *SiteContext) bool {
			return c.RegistrarConfigured() &&
				k.Get(FactRegistrarNameserversMatchHostedZone) &&
				rules.IsNot(k.Get(FactDNSNameserversMatchHostedZone))
		}),

		// Registrar identity.
		fact(FactIsRoute53RegistrarManifest, func(_ rules.Known, c *SiteContext) bool {
			return c.Site.Registrar == RegistrarRoute53
		}),
		fact(FactHasRoute53RegistrarParam, func(_ rules.Known, c *SiteContext) bool {
			return c.Param(ParamRoute53Registrar) == "true"
		}),
		fact(FactIsSelfHostedRegistrarDomain, func(k rules.Known, c *SiteContext) bool {
			return k.Get(FactIsRoute53RegistrarManifest) ||
				k.Get(FactHasRoute53RegistrarParam) ||
				(rules.IsNot(k.Get(FactHasHostedZoneIDParam)) &&
					rules.IsNotSet(c.Site.Registrar) &&
					k.Get(FactDNSNameserversMatchHostedZone))
		}),

		// Deployment gating.
		fact(FactShouldDeployAllResources, func(k rules.Known, _ *SiteContext) bool {
			return k.Get(FactRegistrarNameserversMatchHostedZone)
		}),

		// CDN bookkeeping.
		fact(FactHasWebHostingConfig, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsPresent(c.Site.WebHosting)
		}),
		fact(FactHasPipelineConfig, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsPresent(c.Site.Pipeline)
		}),
		fact(FactHasCloudfrontDistributionIDParam, func(_ rules.Known, c *SiteContext) bool {
			return rules.IsSet(c.Param(ParamCloudfrontDistributionID))
		}),
		fact(FactHasWafConfig, func(k rules.Known, c *SiteContext) bool {
			return k.Get(FactHasWebHostingConfig) && rules.IsPresent(c.Site.WebHosting.WAF)
		}),
		fact(FactHasWafRateLimit, func(k rules.Known, c *SiteContext) bool {
			return k.Get(FactHasWafConfig) && rules.IsNonZero(c.Site.WebHosting.WAF.RateLimit)
		}),
		fact(FactIsWafConfigSane, func(k rules.Known, c *SiteContext) bool {
			if !k.Get(FactHasWafConfig) {
				// Nothing configured is a valid configuration.
				return true
			}
			waf := c.Site.WebHosting.WAF
			if !waf.Enabled {
				return true
			}
			return k.Get(FactHasWafRateLimit) || rules.IsNonEmpty(waf.ManagedRules)
		}),

		// Status. Each formula embeds the negation of the earlier statuses.
		fact(FactIsStatusNotStarted, func(k rules.Known, _ *SiteContext) bool {
			return rules.IsNot(k.Get(FactHasHostedZoneIDParam))
		}),
		fact(FactIsStatusHostedZoneAwaitingNameserverConfig, func(k rules.Known, _ *SiteContext) bool {
			return awaitingNameserverConfig(k)
		}),
		fact(FactIsStatusHostedZoneOk, func(k rules.Known, _ *SiteContext) bool {
			return hostedZoneOk(k)
		}),
		fact(FactIsStatusSiteFunctional, func(k rules.Known, _ *SiteContext) bool {
			return hostedZoneOk(k) && k.Get(FactHas200ConnectionStatus)
		}),
	}
}

// awaitingNameserverConfig is status case 2.
func awaitingNameserverConfig(k rules.Known) bool {
	return k.Get(FactHasHostedZoneIDParam) &&
		(rules.IsNot(k.Get(FactHostedZoneVerified)) || rules.IsNot(k.Get(FactDNSNameserversMatchHostedZone)))
}

// hostedZoneOk is status case 3.
func hostedZoneOk(k rules.Known) bool {
	awaiting := awaitingNameserverConfig(k)
	return (k.Get(FactHostedZoneVerified) && !awaiting) ||
		(k.Get(FactIsSelfHostedRegistrarDomain) && !awaiting && k.Get(FactRegistrarNameserversMatchHostedZone))
}

// CatalogNames returns the built-in fact names in evaluation order.
func CatalogNames() []string {
	return Catalog().Names()
}

// EvaluateFacts evaluates the built-in catalog followed by the manifest's
// custom facts against sc. Every call recomputes from scratch. opts are
// passed to the rules engine, e.g. rules.WithStrictOrdering.
//
// A custom fact that does not compile is returned as is; a failing
// predicate is wrapped as a permanent ErrCodePredicateFailed error.
func EvaluateFacts(ctx context.Context, sc *SiteContext, opts ...rules.Option) (rules.Facts, error) {
	catalog, err := SiteCatalog(sc.Site)
	if err != nil {
		return nil, err
	}

	facts, err := rules.New(catalog, opts...).Evaluate(ctx, sc)
	if err != nil {
		return nil, NewPermanentError("fact evaluation failed", err).
			WithCode(ErrCodePredicateFailed).
			WithResource(sc.SiteID).
			WithOperation(string(sc.Command))
	}
	return facts, nil
}

// SiteFactNames returns the names EvaluateFacts produces for site, in
// evaluation order.
func SiteFactNames(site SiteSpec) []string {
	names := CatalogNames()
	for _, def := range site.CustomFacts {
		names = append(names, def.Name)
	}
	return names
}

// SiteCatalog returns the built-in catalog extended with site's custom facts.
func SiteCatalog(site SiteSpec) (SiteRules, error) {
	custom, err := CustomFactRules(site.CustomFacts)
	if err != nil {
		return nil, err
	}
	return Catalog().With(custom...), nil
}
