package aws

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used to inspect content buckets.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Buckets inspects S3 content buckets. It implements
// engine.BucketInspector.
type Buckets struct {
	client S3API
}

// NewBuckets creates a bucket inspector.
func NewBuckets(client S3API) *Buckets {
	return &Buckets{client: client}
}

// BucketExists reports whether bucket exists and is reachable.
func (b *Buckets) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) || apiErrorCode(err) == "NotFound" || apiErrorCode(err) == "NoSuchBucket" {
		return false, nil
	}
	return false, classify("s3:HeadBucket", err)
}

// IsBucketEmpty reports whether bucket holds no objects.
func (b *Buckets) IsBucketEmpty(ctx context.Context, bucket string) (bool, error) {
	out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, classify("s3:ListObjectsV2", err)
	}
	return aws.ToInt32(out.KeyCount) == 0 && len(out.Contents) == 0, nil
}
