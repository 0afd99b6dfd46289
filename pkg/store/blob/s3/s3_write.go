// Write operations for the S3 blob store, including the transparent
// multipart upload path for large payloads.
package s3

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Store uploads data under key and returns the URL locator.
//
// Upload strategy depends on payload size:
//   - below PartSize: single PutObject
//   - at or above PartSize: multipart upload in PartSize chunks
//
// Callers never observe the difference; both paths yield the same locator.
func (s *S3BlobStore) Store(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	objectKey := s.objectKey(key)

	if int64(len(data)) < s.partSize {
		if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objectKey),
			Body:   bytes.NewReader(data),
		}); err != nil {
			return "", fmt.Errorf("failed to put object %q: %w", objectKey, err)
		}
		return s.locatorFor(objectKey), nil
	}

	if err := s.storeMultipart(ctx, objectKey, data); err != nil {
		return "", err
	}

	return s.locatorFor(objectKey), nil
}

// storeMultipart uploads data in PartSize chunks through the S3 multipart
// API. On any failure the upload is aborted so no incomplete parts linger in
// the bucket.
func (s *S3BlobStore) storeMultipart(ctx context.Context, objectKey string, data []byte) error {
	created, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to create multipart upload for %q: %w", objectKey, err)
	}

	uploadID := created.UploadId

	abort := func() {
		_, _ = s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(s.bucket),
			Key:      aws.String(objectKey),
			UploadId: uploadID,
		})
	}

	var completed []types.CompletedPart
	partNumber := int32(1)

	for offset := int64(0); offset < int64(len(data)); offset += s.partSize {
		if err := ctx.Err(); err != nil {
			abort()
			return err
		}

		end := offset + s.partSize
		if end > int64(len(data)) {
			end = int64(len(data))
		}

		part, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(s.bucket),
			Key:        aws.String(objectKey),
			UploadId:   uploadID,
			PartNumber: aws.Int32(partNumber),
			Body:       bytes.NewReader(data[offset:end]),
		})
		if err != nil {
			abort()
			return fmt.Errorf("failed to upload part %d of %q: %w", partNumber, objectKey, err)
		}

		completed = append(completed, types.CompletedPart{
			ETag:       part.ETag,
			PartNumber: aws.Int32(partNumber),
		})
		partNumber++
	}

	if _, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(objectKey),
		UploadId: uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	}); err != nil {
		abort()
		return fmt.Errorf("failed to complete multipart upload for %q: %w", objectKey, err)
	}

	return nil
}
