package aws

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"

	"github.com/openfroyo/sitefroyo/pkg/engine"
)

// Route53API is the subset of the Route 53 client used for hosted zones.
type Route53API interface {
	ListHostedZonesByName(ctx context.Context, params *route53.ListHostedZonesByNameInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesByNameOutput, error)
	GetHostedZone(ctx context.Context, params *route53.GetHostedZoneInput, optFns ...func(*route53.Options)) (*route53.GetHostedZoneOutput, error)
}

// HostedZones looks up public Route 53 hosted zones. It implements
// engine.HostedZoneClient.
type HostedZones struct {
	client Route53API
}

// NewHostedZones creates a hosted zone client.
func NewHostedZones(client Route53API) *HostedZones {
	return &HostedZones{client: client}
}

// GetHostedZoneAttributes returns the public hosted zone whose name is
// exactly domain, or nil when there is none.
func (h *HostedZones) GetHostedZoneAttributes(ctx context.Context, domain string) (*engine.HostedZoneAttributes, error) {
	name := fqdn(domain)

	out, err := h.client.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
		DNSName:  aws.String(name),
		MaxItems: aws.Int32(10),
	})
	if err != nil {
		return nil, classify("route53:ListHostedZonesByName", err)
	}

	for _, zone := range out.HostedZones {
		if !strings.EqualFold(aws.ToString(zone.Name), name) {
			continue
		}
		if zone.Config != nil && zone.Config.PrivateZone {
			continue
		}
		return &engine.HostedZoneAttributes{
			Name:   strings.TrimSuffix(strings.ToLower(aws.ToString(zone.Name)), "."),
			ZoneID: strings.TrimPrefix(aws.ToString(zone.Id), "/hostedzone/"),
		}, nil
	}

	return nil, nil
}

// GetHostedZoneNameservers returns the delegation set of the domain's
// hosted zone, or an empty list when there is no zone.
func (h *HostedZones) GetHostedZoneNameservers(ctx context.Context, domain string) ([]string, error) {
	attrs, err := h.GetHostedZoneAttributes(ctx, domain)
	if err != nil || attrs == nil {
		return []string{}, err
	}

	out, err := h.client.GetHostedZone(ctx, &route53.GetHostedZoneInput{
		Id: aws.String(attrs.ZoneID),
	})
	if err != nil {
		return []string{}, classify("route53:GetHostedZone", err)
	}

	if out.DelegationSet == nil {
		return []string{}, nil
	}
	return normalizeNames(out.DelegationSet.NameServers), nil
}

func fqdn(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".") + "."
}

func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(n)), "."); n != "" {
			out = append(out, n)
		}
	}
	return out
}
