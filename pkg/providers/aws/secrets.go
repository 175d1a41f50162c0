package aws

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/openfroyo/sitefroyo/pkg/engine"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Secrets reads string secrets from Secrets Manager.
type Secrets struct {
	client SecretsManagerAPI
}

// NewSecrets creates a secret reader.
func NewSecrets(client SecretsManagerAPI) *Secrets {
	return &Secrets{client: client}
}

// GetSecret returns the string value of id. A missing secret is reported
// as a permanent ErrCodeNotFound error.
func (s *Secrets) GetSecret(ctx context.Context, id string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", engine.NewPermanentError("secret not found", err).
				WithCode(engine.ErrCodeNotFound).
				WithResource(id)
		}
		return "", classify("secretsmanager:GetSecretValue", err)
	}
	return aws.ToString(out.SecretString), nil
}
