package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Storage serves s3:// URIs from Amazon S3
type S3Storage struct {
	client *s3.Client
}

// NewS3Storage creates an S3 backend from the AWS default credential
// chain, pinned to region when it is not empty
func NewS3Storage(ctx context.Context, region string) (*S3Storage, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3StorageWithClient(s3.NewFromConfig(cfg)), nil
}

// NewS3StorageWithClient wraps an existing client
func NewS3StorageWithClient(client *s3.Client) *S3Storage {
	return &S3Storage{client: client}
}

// splitObjectURI splits s3://bucket/key into its bucket and key
func splitObjectURI(uri string) (bucket, key string, err error) {
	_, path, err := expectScheme(uri, "S3", "s3")
	if err != nil {
		return "", "", err
	}

	bucket, key, _ = strings.Cut(path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URI %s: missing bucket name", uri)
	}
	if key == "" {
		return "", "", fmt.Errorf("invalid S3 URI %s: missing object key", uri)
	}
	return bucket, key, nil
}

// isS3NotFound reports whether err is a missing key or a 404
func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
		if status, ok := apiErr.(interface{ HTTPStatusCode() int }); ok {
			return status.HTTPStatusCode() == http.StatusNotFound
		}
	}
	return false
}

// Get downloads an object
func (s *S3Storage) Get(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := splitObjectURI(uri)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}
	return out.Body, nil
}

// Put uploads data. Artifacts are small, so the body is buffered to give
// the SDK a seekable payload with a known length.
func (s *S3Storage) Put(ctx context.Context, uri string, data io.Reader) error {
	bucket, key, err := splitObjectURI(uri)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to put S3 object: %w", err)
	}
	return nil
}

// Delete removes an object
func (s *S3Storage) Delete(ctx context.Context, uri string) error {
	bucket, key, err := splitObjectURI(uri)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("failed to delete S3 object: %w", err)
	}
	return nil
}

// Exists sends a HEAD request for the object
func (s *S3Storage) Exists(ctx context.Context, uri string) (bool, error) {
	bucket, key, err := splitObjectURI(uri)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check S3 object existence: %w", err)
	}
	return true, nil
}

// contentType picks a MIME type from the artifact extension
func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	case strings.HasSuffix(key, ".txt"):
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
