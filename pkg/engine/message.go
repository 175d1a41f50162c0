package engine

import (
	"fmt"
	"strings"

	"github.com/openfroyo/sitefroyo/pkg/rules"
)

// Status messages. Kept as package values so callers and tests can match on
// them without duplicating text.
const (
	MsgNotStarted = "Site has not been deployed. Run 'sitefroyo deploy' to create the hosted zone."

	MsgAwaitingPropagation = "Nameservers are set at the registrar but have not propagated yet. " +
		"This can take up to 48 hours; check again later."

	MsgAwaitingRegistrarFmt = "Hosted zone created. Run 'sitefroyo set-nameservers' to point %s at the hosted zone nameservers."

	MsgAwaitingManualFmt = "Hosted zone created. Set the nameservers for %s at your registrar to:\n%s"

	MsgAwaitingNoNameservers = "Hosted zone created but its nameservers could not be read. Run 'sitefroyo deploy' again."

	MsgHostedZoneOkDeploy = "Hosted zone is ready. Run 'sitefroyo deploy' to create the remaining resources."

	MsgHostedZoneOkPipeline = "Resources are deployed. Run the content pipeline to publish the site."

	MsgHostedZoneOkCDNPendingFmt = "CDN distribution is deployed but the site is not reachable yet (%s). " +
		"Distributions can take several minutes to become available."

	MsgHostedZoneOkNoHosting = "Hosted zone is ready. The manifest declares no web hosting, so no site will be served."

	MsgProtectionDriftFmt = "Site is functional, but the protected flag differs: manifest=%t, deployed=%t. " +
		"Run 'sitefroyo deploy' to apply it."
)

// StatusMessage renders guidance for status from facts and sc. sc may be
// nil, in which case context-dependent details are omitted.
func StatusMessage(status Status, facts rules.Facts, sc *SiteContext) string {
	switch status {
	case StatusHostedZoneAwaitingNameserverConfig:
		return awaitingMessage(facts, sc)
	case StatusHostedZoneOk:
		return hostedZoneOkMessage(facts, sc)
	case StatusSiteFunctional:
		manifest := facts.Get(FactIsProtectedManifest)
		deployed := facts.Get(FactIsProtectedParam)
		if manifest != deployed {
			return fmt.Sprintf(MsgProtectionDriftFmt, manifest, deployed)
		}
		return ""
	default:
		return MsgNotStarted
	}
}

func awaitingMessage(facts rules.Facts, sc *SiteContext) string {
	domain := "the domain"
	if sc != nil && sc.Site.Domain != "" {
		domain = sc.Site.Domain
	}

	if sc != nil && sc.RegistrarConfigured() {
		if facts.Get(FactIsNameserversSetButNotPropagated) {
			return MsgAwaitingPropagation
		}
		return fmt.Sprintf(MsgAwaitingRegistrarFmt, domain)
	}

	if sc == nil || len(sc.HostedZoneNameservers) == 0 {
		return MsgAwaitingNoNameservers
	}

	var b strings.Builder
	for i, ns := range sc.HostedZoneNameservers {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("  ")
		b.WriteString(ns)
	}
	return fmt.Sprintf(MsgAwaitingManualFmt, domain, b.String())
}

func hostedZoneOkMessage(facts rules.Facts, sc *SiteContext) string {
	switch {
	case !facts.Get(FactHasWebHostingConfig):
		return MsgHostedZoneOkNoHosting
	case !facts.Get(FactHasCloudfrontDistributionIDParam):
		return MsgHostedZoneOkDeploy
	case facts.Get(FactHasPipelineConfig) && !facts.Get(FactHas200ConnectionStatus):
		return MsgHostedZoneOkPipeline
	default:
		return fmt.Sprintf(MsgHostedZoneOkCDNPendingFmt, connectionSummary(sc))
	}
}

func connectionSummary(sc *SiteContext) string {
	if sc == nil || sc.Connection == nil {
		return "no response"
	}
	if sc.Connection.StatusCode < 0 {
		return "error: " + sc.Connection.StatusMessage
	}
	return fmt.Sprintf("HTTP %d", sc.Connection.StatusCode)
}
