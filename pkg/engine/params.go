package engine

import (
	"path"
	"sort"
	"strings"
)

// Persisted parameter names, relative to a site's parameter path.
const (
	ParamProtected                = "protected"
	ParamDomainUser               = "domain-user"
	ParamDomainPublisher          = "domain-publisher"
	ParamHostedZoneID             = "hosted-zone-id"
	ParamDomainCertificateARN     = "domain-certificate-arn"
	ParamDomainBucketName         = "domain-bucket-name"
	ParamNotificationsSnsTopicARN = "notifications-sns-topic-arn"
	ParamWebmasterEmail           = "webmaster-email"
	ParamRoute53Registrar         = "route53-registrar"
	ParamCloudfrontDistributionID = "cloudfront-distribution-id"
	ParamSystemVersion            = "system-version"
)

// DefaultParameterPrefix is the root under which site parameters are stored.
const DefaultParameterPrefix = "/sitefroyo"

// Parameter is one persisted key/value pair.
type Parameter struct {
	Param string `json:"param"`
	Value string `json:"value"`
}

// Parameters is a flat snapshot of a site's persisted parameters.
type Parameters map[string]string

// Get returns the value of name, or "".
func (p Parameters) Get(name string) string {
	if p == nil {
		return ""
	}
	return p[name]
}

// Has reports whether name is set to a non-empty value.
func (p Parameters) Has(name string) bool {
	return p.Get(name) != ""
}

// Sorted returns the parameters as a list ordered by name.
func (p Parameters) Sorted() []Parameter {
	out := make([]Parameter, 0, len(p))
	for k, v := range p {
		out = append(out, Parameter{Param: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Param < out[j].Param })
	return out
}

// ParametersFromList builds a snapshot from store output. Names may be full
// paths; only the last path element is kept. Later duplicates win.
func ParametersFromList(list []Parameter) Parameters {
	out := make(Parameters, len(list))
	for _, p := range list {
		out[path.Base(p.Param)] = p.Value
	}
	return out
}

// SiteParameterPath returns the store path holding a site's parameters.
func SiteParameterPath(prefix, siteID string) string {
	if prefix == "" {
		prefix = DefaultParameterPrefix
	}
	return path.Join("/", strings.Trim(prefix, "/"), siteID) + "/"
}

// SiteIDFromDomain derives the site identifier from a domain name:
// "www.Example.com." becomes "www-example-com".
func SiteIDFromDomain(domain string) string {
	d := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	return strings.ReplaceAll(d, ".", "-")
}
