package aws

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53domains"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Clients bundles the AWS-backed collaborators of one command run.
type Clients struct {
	Parameters  *ParameterStore
	HostedZones *HostedZones
	Buckets     *Buckets
	Domains     *Domains
	Secrets     *Secrets
}

// NewClients builds every adapter from one resolved configuration.
// Route 53 Domains is always called in GlobalRegion.
func NewClients(cfg aws.Config, parameterPrefix string) *Clients {
	return &Clients{
		Parameters:  NewParameterStore(ssm.NewFromConfig(cfg), parameterPrefix),
		HostedZones: NewHostedZones(route53.NewFromConfig(cfg)),
		Buckets:     NewBuckets(s3.NewFromConfig(cfg)),
		Domains: NewDomains(route53domains.NewFromConfig(cfg, func(o *route53domains.Options) {
			o.Region = GlobalRegion
		})),
		Secrets: NewSecrets(secretsmanager.NewFromConfig(cfg)),
	}
}
