// Package s3 implements blob storage on S3-compatible object stores.
//
// This is the production backend. Locators are full object URLs so that a
// stored FilePath remains directly addressable outside the service; the
// store translates between URLs and object keys internally.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/deskfs/deskfs/pkg/store/blob"
)

// Client is the subset of the AWS S3 client used by the store. Narrowing the
// dependency keeps the store testable without a live endpoint.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// S3BlobStore implements blob.Store on an S3 bucket.
//
// Payloads at or above PartSize are uploaded through the S3 multipart API;
// smaller payloads use a single PutObject. Callers see no difference.
type S3BlobStore struct {
	client    Client
	bucket    string
	keyPrefix string
	baseURL   string
	partSize  int64
}

// S3BlobStoreConfig configures an S3BlobStore.
type S3BlobStoreConfig struct {
	// Client is the S3 API client (required).
	Client Client

	// Bucket is the bucket name (required).
	Bucket string

	// KeyPrefix is prepended to all object keys, e.g. "uploads".
	KeyPrefix string

	// BaseURL is the public URL root used to mint locators, e.g.
	// "https://bucket.s3.eu-west-1.amazonaws.com". Required so that locators
	// are stable even when the client is configured against a custom
	// endpoint (MinIO, Localstack).
	BaseURL string

	// PartSize is the multipart threshold and part size in bytes.
	// Defaults to 10MB. S3 requires parts between 5MB and 5GB.
	PartSize int64
}

const defaultPartSize = 10 * 1024 * 1024 // 10MB

// NewS3BlobStore creates an S3-backed blob store and verifies bucket access
// with a HeadBucket probe.
func NewS3BlobStore(ctx context.Context, cfg S3BlobStoreConfig) (*S3BlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	partSize := cfg.PartSize
	if partSize == 0 {
		partSize = defaultPartSize
	}
	if partSize < 5*1024*1024 {
		return nil, fmt.Errorf("part size must be at least 5MB, got %d bytes", partSize)
	}
	if partSize > 5*1024*1024*1024 {
		return nil, fmt.Errorf("part size must be at most 5GB, got %d bytes", partSize)
	}

	if _, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3BlobStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		partSize:  partSize,
	}, nil
}

// objectKey returns the full S3 object key for a blob key.
func (s *S3BlobStore) objectKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + "/" + key
}

// locatorFor mints the URL locator for an object key.
func (s *S3BlobStore) locatorFor(objectKey string) string {
	return s.baseURL + "/" + objectKey
}

// keyFromLocator recovers the object key from a locator. Locators minted by
// this store carry the base URL prefix; bare keys are accepted as-is so that
// rows seeded with raw keys remain readable.
func (s *S3BlobStore) keyFromLocator(locator string) (string, error) {
	if strings.HasPrefix(locator, s.baseURL+"/") {
		return strings.TrimPrefix(locator, s.baseURL+"/"), nil
	}
	if strings.Contains(locator, "://") {
		return "", fmt.Errorf("locator %q does not match store base URL: %w", locator, blob.ErrInvalidLocator)
	}
	return locator, nil
}

// isNotFound reports whether an S3 error means the object does not exist.
func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

// Retrieve downloads the object addressed by the locator.
func (s *S3BlobStore) Retrieve(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := s.keyFromLocator(locator)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("locator %q: %w", locator, blob.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("failed to get object %q: %w", key, err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %q: %w", key, err)
	}

	return data, nil
}

// Delete removes the object addressed by the locator.
//
// S3 DeleteObject is idempotent and does not distinguish a missing key, so
// deleting an unknown locator succeeds.
func (s *S3BlobStore) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := s.keyFromLocator(locator)
	if err != nil {
		return err
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}

	return nil
}

// ListKeys pages through the bucket (under the key prefix) and returns the
// locator of every stored object.
func (s *S3BlobStore) ListKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		locators          []string
		continuationToken *string
	)

	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			ContinuationToken: continuationToken,
		}
		if s.keyPrefix != "" {
			input.Prefix = aws.String(s.keyPrefix + "/")
		}

		page, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key != nil {
				locators = append(locators, s.locatorFor(*obj.Key))
			}
		}

		if page.IsTruncated == nil || !*page.IsTruncated {
			break
		}
		continuationToken = page.NextContinuationToken
	}

	return locators, nil
}
