package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/openfroyo/sitefroyo/pkg/engine"
)

// ParameterStore reads site parameters from SSM Parameter Store. It
// implements engine.ParameterStore.
type ParameterStore struct {
	client ssm.GetParametersByPathAPIClient
	prefix string
}

// NewParameterStore creates a parameter store rooted at prefix.
func NewParameterStore(client ssm.GetParametersByPathAPIClient, prefix string) *ParameterStore {
	if prefix == "" {
		prefix = engine.DefaultParameterPrefix
	}
	return &ParameterStore{client: client, prefix: prefix}
}

// GetParameters returns every parameter directly under the site's path,
// following pagination until the result set is drained. Nested paths are
// not read since the snapshot is keyed by leaf name. Secure strings are
// decrypted.
func (s *ParameterStore) GetParameters(ctx context.Context, siteID string) ([]engine.Parameter, error) {
	path := engine.SiteParameterPath(s.prefix, siteID)

	paginator := ssm.NewGetParametersByPathPaginator(s.client, &ssm.GetParametersByPathInput{
		Path:           aws.String(path),
		Recursive:      aws.Bool(false),
		WithDecryption: aws.Bool(true),
	})

	params := []engine.Parameter{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("ssm:GetParametersByPath", err)
		}
		for _, p := range page.Parameters {
			params = append(params, engine.Parameter{
				Param: aws.ToString(p.Name),
				Value: aws.ToString(p.Value),
			})
		}
	}

	return params, nil
}
