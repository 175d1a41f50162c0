package config

import (
	"strings"

	"github.com/openfroyo/sitefroyo/pkg/engine"
)

// Manifest is the declarative description of one site, as written in
// site.cue or site.yaml.
type Manifest struct {
	// Domain is the root domain of the site (e.g., "example.com").
	Domain string `json:"domain" yaml:"domain" validate:"required,fqdn"`

	// Protected guards the site against destroy.
	Protected bool `json:"protected,omitempty" yaml:"protected,omitempty"`

	// Registrar is the registrar managing the domain (route53, dynadot).
	Registrar string `json:"registrar,omitempty" yaml:"registrar,omitempty" validate:"omitempty,oneof=route53 dynadot"`

	// WebmasterEmail receives site notifications.
	WebmasterEmail string `json:"webmasterEmail,omitempty" yaml:"webmasterEmail,omitempty" validate:"omitempty,email"`

	// Subdomains are extra names served by the site (e.g., "www").
	Subdomains []string `json:"subdomains,omitempty" yaml:"subdomains,omitempty" validate:"dive,required"`

	// WebHosting configures the CDN front.
	WebHosting *WebHostingConfig `json:"webHosting,omitempty" yaml:"webHosting,omitempty"`

	// Pipeline configures the content build pipeline.
	Pipeline *PipelineConfig `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`

	// Certificate configures the TLS certificate.
	Certificate *CertificateConfig `json:"certificate,omitempty" yaml:"certificate,omitempty"`

	// Services lists additional services by name.
	Services []string `json:"services,omitempty" yaml:"services,omitempty" validate:"dive,required"`

	// Notifications controls the notification topic.
	Notifications *NotificationsConfig `json:"notifications,omitempty" yaml:"notifications,omitempty"`

	// Facts are site-specific facts evaluated after the built-in ones.
	Facts []CustomFactConfig `json:"facts,omitempty" yaml:"facts,omitempty" validate:"dive"`
}

// WebHostingConfig configures the CDN front of the site.
type WebHostingConfig struct {
	// Type is the hosting flavour (e.g., "static", "spa").
	Type string `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=static spa redirect"`

	// WAF configures the web application firewall.
	WAF *WAFConfig `json:"waf,omitempty" yaml:"waf,omitempty"`
}

// WAFConfig configures the web application firewall.
type WAFConfig struct {
	Enabled      bool     `json:"enabled" yaml:"enabled"`
	RateLimit    *int     `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`
	ManagedRules []string `json:"managedRules,omitempty" yaml:"managedRules,omitempty" validate:"dive,required"`
}

// PipelineConfig configures the content build pipeline.
type PipelineConfig struct {
	Type   string `json:"type" yaml:"type" validate:"required"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// CertificateConfig configures the TLS certificate.
type CertificateConfig struct {
	SubjectAlternativeNames []string `json:"subjectAlternativeNames,omitempty" yaml:"subjectAlternativeNames,omitempty" validate:"dive,required"`
}

// NotificationsConfig controls the notification topic.
type NotificationsConfig struct {
	Disabled    bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	NoSubscribe bool `json:"noSubscribe,omitempty" yaml:"noSubscribe,omitempty"`
}

// CustomFactConfig declares a fact as a Starlark boolean expression.
type CustomFactConfig struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	Expr string `json:"expr" yaml:"expr" validate:"required"`
}

// ToSiteSpec converts the manifest into the engine's site description.
// The domain is lower-cased and stripped of a trailing dot.
func (m *Manifest) ToSiteSpec() engine.SiteSpec {
	spec := engine.SiteSpec{
		Domain:         strings.TrimSuffix(strings.ToLower(m.Domain), "."),
		Protected:      m.Protected,
		Registrar:      m.Registrar,
		WebmasterEmail: m.WebmasterEmail,
		Subdomains:     m.Subdomains,
		Services:       m.Services,
	}

	if m.WebHosting != nil {
		spec.WebHosting = &engine.WebHosting{Type: m.WebHosting.Type}
		if waf := m.WebHosting.WAF; waf != nil {
			spec.WebHosting.WAF = &engine.WAF{
				Enabled:      waf.Enabled,
				RateLimit:    waf.RateLimit,
				ManagedRules: waf.ManagedRules,
			}
		}
	}

	if m.Pipeline != nil {
		spec.Pipeline = &engine.Pipeline{Type: m.Pipeline.Type, Source: m.Pipeline.Source}
	}

	if m.Certificate != nil {
		spec.Certificate = &engine.Certificate{
			SubjectAlternativeNames: m.Certificate.SubjectAlternativeNames,
		}
	}

	if m.Notifications != nil {
		spec.Notifications = engine.Notifications{
			Disabled:    m.Notifications.Disabled,
			NoSubscribe: m.Notifications.NoSubscribe,
		}
	}

	for _, f := range m.Facts {
		spec.CustomFacts = append(spec.CustomFacts, engine.CustomFact{Name: f.Name, Expr: f.Expr})
	}

	return spec
}
