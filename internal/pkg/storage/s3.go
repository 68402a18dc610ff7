package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Adapter implements Storage using AWS S3 or any S3 compatible endpoint.
type S3Adapter struct {
	client *s3.Client
}

// S3Options configures S3 client initialization.
type S3Options struct {
	Region string
	// Endpoint overrides the AWS endpoint, for LocalStack and friends.
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	UsePathStyle bool
}

// NewS3 loads the default AWS configuration and applies opts on top.
// Static credentials are used only when a key pair is configured.
func NewS3(ctx context.Context, opts S3Options) (*S3Adapter, error) {
	var loadOpts []func(*config.LoadOptions) error
	switch {
	case opts.Region != "":
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	case opts.Endpoint != "":
		// custom endpoints still need a signing region
		loadOpts = append(loadOpts, config.WithRegion("us-east-1"))
	}
	if opts.AccessKey != "" || opts.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	return &S3Adapter{client: s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})}, nil
}

func (s *S3Adapter) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.Size > 0 {
		input.ContentLength = aws.Int64(opts.Size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return ObjectInfo{}, err
	}

	return ObjectInfo{Bucket: bucket, Key: key, Size: opts.Size, ContentType: opts.ContentType}, nil
}

func (s *S3Adapter) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	return out.Body, ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		UpdatedAt:   aws.ToTime(out.LastModified),
	}, nil
}

// walk calls fn with each listing page under prefix. Pages hold at most
// 1000 keys, which is also the DeleteObjects batch limit.
func (s *S3Adapter) walk(ctx context.Context, bucket, prefix string, fn func([]types.Object) error) error {
	pager := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		if len(page.Contents) == 0 {
			continue
		}
		if err := fn(page.Contents); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3Adapter) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	err := s.walk(ctx, bucket, prefix, func(page []types.Object) error {
		for _, obj := range page {
			objects = append(objects, ObjectInfo{
				Bucket:    bucket,
				Key:       aws.ToString(obj.Key),
				Size:      aws.ToInt64(obj.Size),
				UpdatedAt: aws.ToTime(obj.LastModified),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// DeletePrefix removes the objects one listing page at a time with a single
// DeleteObjects request per page.
func (s *S3Adapter) DeletePrefix(ctx context.Context, bucket, prefix string) (int, error) {
	deleted := 0
	err := s.walk(ctx, bucket, prefix, func(page []types.Object) error {
		ids := make([]types.ObjectIdentifier, len(page))
		for i, obj := range page {
			ids[i] = types.ObjectIdentifier{Key: obj.Key}
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return err
		}

		deleted += len(ids) - len(out.Errors)
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("storage: delete %s: %s: %s", aws.ToString(first.Key),
				aws.ToString(first.Code), aws.ToString(first.Message))
		}
		return nil
	})
	return deleted, err
}

func (s *S3Adapter) Close() error {
	return nil
}
