package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/smithy-go"

	"github.com/openfroyo/sitefroyo/pkg/engine"
)

// GlobalRegion is where Route 53 Domains is served.
const GlobalRegion = "us-east-1"

// LoadConfig resolves AWS credentials and region from the standard chain,
// optionally pinned to a named profile.
func LoadConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, engine.NewPermanentError("failed to load AWS configuration", err).
			WithCode(engine.ErrCodeProviderFailed)
	}
	return cfg, nil
}

// throttleCodes are API error codes that mean the caller was rate limited.
var throttleCodes = map[string]bool{
	"Throttling":               true,
	"ThrottlingException":      true,
	"ThrottledException":       true,
	"TooManyRequestsException": true,
	"PriorRequestNotComplete":  true,
	"RequestLimitExceeded":     true,
	"SlowDown":                 true,
}

// accessCodes are API error codes for missing permissions or credentials.
var accessCodes = map[string]bool{
	"AccessDenied":                true,
	"AccessDeniedException":       true,
	"UnrecognizedClientException": true,
	"InvalidClientTokenId":        true,
	"ExpiredToken":                true,
	"ExpiredTokenException":       true,
}

// classify wraps an SDK error into a classified engine error.
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}

	message := fmt.Sprintf("%s failed", operation)

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case throttleCodes[code]:
			return engine.NewThrottledError(message, err).
				WithCode(engine.ErrCodeRateLimited).
				WithOperation(operation)
		case accessCodes[code]:
			return engine.NewPermanentError(message, err).
				WithCode(engine.ErrCodePermissionDenied).
				WithOperation(operation)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return engine.NewTransientError(message, err).
			WithCode(engine.ErrCodeTimeout).
			WithOperation(operation)
	}

	return engine.NewTransientError(message, err).
		WithCode(engine.ErrCodeProviderFailed).
		WithOperation(operation)
}

// apiErrorCode returns the API error code of err, or "".
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
