package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53domains"
)

// Route53DomainsAPI is the subset of the Route 53 Domains client used to
// read registrar nameservers.
type Route53DomainsAPI interface {
	GetDomainDetail(ctx context.Context, params *route53domains.GetDomainDetailInput, optFns ...func(*route53domains.Options)) (*route53domains.GetDomainDetailOutput, error)
}

// Domains reads registration details from Route 53 Domains.
type Domains struct {
	client Route53DomainsAPI
}

// NewDomains creates a Route 53 Domains reader. The client must be
// configured for GlobalRegion.
func NewDomains(client Route53DomainsAPI) *Domains {
	return &Domains{client: client}
}

// Nameservers returns the nameservers on record for domain.
func (d *Domains) Nameservers(ctx context.Context, domain string) ([]string, error) {
	out, err := d.client.GetDomainDetail(ctx, &route53domains.GetDomainDetailInput{
		DomainName: aws.String(domain),
	})
	if err != nil {
		return nil, classify("route53domains:GetDomainDetail", err)
	}

	names := make([]string, 0, len(out.Nameservers))
	for _, ns := range out.Nameservers {
		names = append(names, aws.ToString(ns.Name))
	}
	return normalizeNames(names), nil
}
