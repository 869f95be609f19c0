package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Apurer/photo-orders/internal/domains/orders/ports"
)

var _ ports.BlobStore = (*BlobStore)(nil)

// Client is the subset of the S3 API the adapter needs, extracted so tests
// can substitute a fake without a live bucket.
type Client interface {
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

// BlobStore persists uploads as S3 objects and returns their public URLs.
type BlobStore struct {
	client Client
	bucket string
	region string
}

// NewBlobStore wires the S3 adapter. Caller owns the client lifecycle.
func NewBlobStore(client Client, bucket, region string) (*BlobStore, error) {
	if client == nil {
		return nil, errors.New("s3 client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if strings.TrimSpace(region) == "" {
		return nil, errors.New("s3 region is required")
	}
	return &BlobStore{client: client, bucket: bucket, region: region}, nil
}

// Put writes the payload under the given key and returns the object URL.
func (s *BlobStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	input := &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put s3 object %q: %w", key, err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}
