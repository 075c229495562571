package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig addresses an S3-compatible endpoint with static credentials
type MinioConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// MinioStorage serves s3:// URIs from an S3-compatible server. Buckets
// are created on first write.
type MinioStorage struct {
	client *minio.Client
	region string

	mu      sync.Mutex
	buckets map[string]bool
}

// NewMinioStorage creates a backend for cfg
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio access key and secret key are required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &MinioStorage{client: client, region: region, buckets: make(map[string]bool)}, nil
}

func (ms *MinioStorage) ensureBucket(ctx context.Context, bucket string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.buckets[bucket] {
		return nil
	}

	exists, err := ms.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("ensure bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := ms.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: ms.region}); err != nil {
			return fmt.Errorf("ensure bucket %s: %w", bucket, err)
		}
	}
	ms.buckets[bucket] = true
	return nil
}

func isMinioNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return true
	}
	return false
}

// Get downloads an object. The object is read fully so a missing key
// surfaces here rather than on the first Read.
func (ms *MinioStorage) Get(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := splitObjectURI(uri)
	if err != nil {
		return nil, err
	}

	obj, err := ms.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isMinioNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put uploads data, creating the bucket when needed
func (ms *MinioStorage) Put(ctx context.Context, uri string, data io.Reader) error {
	bucket, key, err := splitObjectURI(uri)
	if err != nil {
		return err
	}
	if err := ms.ensureBucket(ctx, bucket); err != nil {
		return err
	}

	body, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	_, err = ms.client.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType(key),
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// Delete removes an object
func (ms *MinioStorage) Delete(ctx context.Context, uri string) error {
	bucket, key, err := splitObjectURI(uri)
	if err != nil {
		return err
	}
	if err := ms.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil && !isMinioNotFound(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Exists stats the object
func (ms *MinioStorage) Exists(ctx context.Context, uri string) (bool, error) {
	bucket, key, err := splitObjectURI(uri)
	if err != nil {
		return false, err
	}

	_, err = ms.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}
