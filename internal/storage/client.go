// Package storage provides the blob-store client the pipeline reads
// images and reference tables from and writes result tables to. It works
// against AWS S3 and S3-compatible services.
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var (
	// ErrNotFound is returned when the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrBucketNotFound is returned when the bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrAccessDenied is returned on authorization failures.
	ErrAccessDenied = errors.New("access denied")
)

// Object describes one stored blob.
type Object struct {
	Key          string
	LastModified time.Time
}

// Client is the narrow blob-store capability the pipeline needs.
type Client interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)
}

// s3API is the subset of the AWS S3 API the client uses; it allows
// mocking the SDK in unit tests.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type client struct {
	s3 s3API
}

// NewClient creates a storage client with the given options.
func NewClient(ctx context.Context, opts ...Option) (Client, error) {
	cfg := &Options{}
	for _, opt := range opts {
		opt(cfg)
	}

	var awsOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(cfg.Region))
	} else if cfg.Endpoint != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(defaultRegion))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, err
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			)
		})
	}

	return &client{s3: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

// NewClientWithAPI builds a client over an explicit API implementation
// (for testing).
func NewClientWithAPI(api s3API) Client {
	return &client{s3: api}
}

// GetObject downloads an object.
func (c *client) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	resp, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapError(err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// PutObject uploads an object.
func (c *client) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	_, err := c.s3.PutObject(ctx, input)
	return wrapError(err)
}

// ListObjects lists keys under prefix with their last-modified times,
// following pagination.
func (c *client) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var objects []Object
	var continuationToken *string

	for {
		output, err := c.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, wrapError(err)
		}

		for _, obj := range output.Contents {
			o := Object{Key: aws.ToString(obj.Key)}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			objects = append(objects, o)
		}

		if !aws.ToBool(output.IsTruncated) {
			break
		}
		continuationToken = output.NextContinuationToken
	}

	return objects, nil
}

// wrapError converts AWS SDK errors to sentinel errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return errors.Join(ErrNotFound, err)
	}

	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return errors.Join(ErrBucketNotFound, err)
	}

	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AccessDeniedException":
			return errors.Join(ErrAccessDenied, err)
		case "NoSuchKey":
			return errors.Join(ErrNotFound, err)
		case "NoSuchBucket":
			return errors.Join(ErrBucketNotFound, err)
		}
	}

	return err
}
