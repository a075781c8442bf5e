package datasrc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store implements Store on an S3 bucket. Keys are prefixed with the store's root prefix.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store returns a store over bucket using client.
func NewS3Store(client *s3.Client, bucket, rootPrefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: rootPrefix}
}

// NewS3StoreFromEnv creates a client from the default AWS configuration chain
// (environment, shared config files, instance roles).
func NewS3StoreFromEnv(ctx context.Context, bucket, rootPrefix string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewS3Store(s3.NewFromConfig(cfg), bucket, rootPrefix), nil
}

func (s *S3Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *S3Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := s.key(name)
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, ErrNotFound)
		}
		return nil, err
	}
	return resp.Body, nil
}

// Create streams writes to a multipart upload. The object exists once the writer is closed.
func (s *S3Store) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	key := s.key(name)
	uploader := manager.NewUploader(s.client)
	return newPipeWriter(func(r io.Reader) error {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   r,
		})
		return err
	}), nil
}
