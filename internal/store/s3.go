package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3 keeps blobs in a single bucket. Endpoint is optional and makes the
// store work against S3-compatible services.
type S3 struct {
	client *s3.Client
	bucket string
}

type S3Options struct {
	Bucket   string
	Region   string
	Key      string
	Secret   string
	Endpoint string
}

func NewS3(opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}
	if opts.Key == "" || opts.Secret == "" {
		return nil, fmt.Errorf("s3 store: access key and secret are required")
	}

	region := opts.Region
	if region == "" {
		region = "auto"
	}

	clientOpts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(opts.Key, opts.Secret, ""),
		UsePathStyle: true,
	}
	if opts.Endpoint != "" {
		clientOpts.BaseEndpoint = aws.String(strings.TrimRight(opts.Endpoint, "/"))
	}

	return &S3{client: s3.New(clientOpts), bucket: opts.Bucket}, nil
}

func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", key, err)
	}
	return data, nil
}

func (s *S3) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}
