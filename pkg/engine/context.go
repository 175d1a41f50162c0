package engine

import (
	"fmt"
	"time"
)

// Command identifies the CLI command an evaluation runs for. Some facts
// depend on it (S3 content deployment only happens during deploy).
type Command string

const (
	CommandFacts   Command = "facts"
	CommandInfo    Command = "info"
	CommandStatus  Command = "status"
	CommandDeploy  Command = "deploy"
	CommandDestroy Command = "destroy"
	CommandWatch   Command = "watch"
)

// Validate checks if the command is known.
func (c Command) Validate() error {
	switch c {
	case CommandFacts, CommandInfo, CommandStatus, CommandDeploy, CommandDestroy, CommandWatch:
		return nil
	default:
		return fmt.Errorf("invalid command: %s", c)
	}
}

// Registrar identifiers understood by the engine.
const (
	RegistrarRoute53 = "route53"
	RegistrarDynadot = "dynadot"
)

// SiteSpec is the manifest-derived description of one site.
type SiteSpec struct {
	// Domain is the root domain name, e.g. "example.com".
	Domain string `json:"domain"`

	// Protected marks the site as protected against destroy.
	Protected bool `json:"protected"`

	// Registrar names the domain registrar ("route53", "dynadot" or empty).
	Registrar string `json:"registrar,omitempty"`

	// WebmasterEmail is the manifest-declared webmaster address.
	WebmasterEmail string `json:"webmaster_email,omitempty"`

	// Subdomains lists extra DNS names served by the site.
	Subdomains []string `json:"subdomains,omitempty"`

	// WebHosting is nil when the manifest declares no web hosting.
	WebHosting *WebHosting `json:"web_hosting,omitempty"`

	// Pipeline is nil when the manifest declares no content pipeline.
	Pipeline *Pipeline `json:"pipeline,omitempty"`

	// Certificate is nil when the manifest declares no certificate settings.
	Certificate *Certificate `json:"certificate,omitempty"`

	// Services lists additional service declarations by name.
	Services []string `json:"services,omitempty"`

	// Notifications controls notification delivery.
	Notifications Notifications `json:"notifications"`

	// CustomFacts are manifest-declared facts evaluated after the catalog.
	CustomFacts []CustomFact `json:"custom_facts,omitempty"`
}

// WebHosting describes the CDN front of the site.
type WebHosting struct {
	Type string `json:"type,omitempty"`
	WAF  *WAF   `json:"waf,omitempty"`
}

// WAF describes web application firewall settings.
type WAF struct {
	Enabled      bool     `json:"enabled"`
	RateLimit    *int     `json:"rate_limit,omitempty"`
	ManagedRules []string `json:"managed_rules,omitempty"`
}

// Pipeline describes the content build pipeline.
type Pipeline struct {
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
}

// Certificate describes TLS certificate settings.
type Certificate struct {
	SubjectAlternativeNames []string `json:"subject_alternative_names,omitempty"`
}

// Notifications controls the site's notification topic.
type Notifications struct {
	Disabled    bool `json:"disabled"`
	NoSubscribe bool `json:"no_subscribe"`
}

// CustomFact is a named Starlark boolean expression.
type CustomFact struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

// HostedZoneAttributes identifies a provider-side hosted zone.
type HostedZoneAttributes struct {
	Name   string `json:"name"`
	ZoneID string `json:"zone_id"`
}

// ConnectionStatus is the result of the live HTTP probe.
// StatusCode is -1 when the request failed before a response arrived.
type ConnectionStatus struct {
	StatusCode    int           `json:"status_code"`
	StatusMessage string        `json:"status_message"`
	Timing        time.Duration `json:"timing"`
}

// FailedConnection builds the synthetic probe result used when the request
// could not complete. reason is an error code, or "UNKNOWN".
func FailedConnection(reason string) *ConnectionStatus {
	if reason == "" {
		reason = "UNKNOWN"
	}
	return &ConnectionStatus{StatusCode: -1, StatusMessage: reason, Timing: -1}
}

// SiteContext is everything known about one site at one point in time.
// It is built once per command and never modified during evaluation.
//
// Lists use nil for "not provided" and a non-nil empty slice for "provided
// but empty"; facts distinguish the two.
type SiteContext struct {
	Site    SiteSpec `json:"site"`
	SiteID  string   `json:"site_id"`
	Command Command  `json:"command"`

	// SystemVersion is the version of the running binary.
	SystemVersion string `json:"system_version"`

	HostedZone             *HostedZoneAttributes `json:"hosted_zone,omitempty"`
	HostedZoneNameservers  []string              `json:"hosted_zone_nameservers"`
	DNSResolvedNameservers []string              `json:"dns_resolved_nameservers"`
	RegistrarNameservers   []string              `json:"registrar_nameservers"`
	DNSResolvedTxtRecord   string                `json:"dns_resolved_txt_record,omitempty"`
	Connection             *ConnectionStatus     `json:"connection,omitempty"`

	BucketExists bool `json:"bucket_exists"`
	BucketEmpty  bool `json:"bucket_empty"`

	Parameters Parameters `json:"parameters"`

	// WebmasterEmail is the manifest value, else the persisted parameter.
	WebmasterEmail string `json:"webmaster_email,omitempty"`
}

// Param returns a persisted parameter value, or "" when unset.
func (c *SiteContext) Param(name string) string {
	return c.Parameters.Get(name)
}

// RegistrarConfigured reports whether the manifest names a registrar.
func (c *SiteContext) RegistrarConfigured() bool {
	return c.Site.Registrar != ""
}
