// Package storage presigns direct uploads to an S3-compatible bucket
// (Cloudflare R2 by default) and builds the public URLs of stored objects.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"heartline/config"
)

// CacheControl is attached to every presigned upload; object keys are never
// reused so the objects can be cached indefinitely.
const CacheControl = "public, max-age=31536000"

var ErrNoPublicURL = errors.New("public bucket url is not configured")

type R2 struct {
	presigner  *s3.PresignClient
	publicBase string
}

func New(ctx context.Context, cfg config.StorageConfig) (*R2, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	endpoint := cfg.StorageEndpoint()
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})

	return &R2{
		presigner:  s3.NewPresignClient(client),
		publicBase: strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/"),
	}, nil
}

// PresignPut returns a URL the client can PUT the object body to directly.
func (r *R2) PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error) {
	req, err := r.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(bucket),
		Key:          aws.String(key),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(CacheControl),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("storage: presign put: %w", err)
	}
	return req.URL, nil
}

// PublicURL is where a stored object is served from.
func (r *R2) PublicURL(key string) (string, error) {
	if r.publicBase == "" {
		return "", ErrNoPublicURL
	}
	return r.publicBase + "/" + strings.TrimLeft(key, "/"), nil
}
