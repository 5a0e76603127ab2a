package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"luxegen-backend/internal/config"
)

// MinIOStore is the S3-compatible alternative to Supabase Storage for re-hosted assets.
// The bucket must allow anonymous reads under PublicURL.
type MinIOStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinIOStore(cfg *config.Config) (*MinIOStore, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOStore{
		client:    client,
		bucket:    cfg.MinIOBucket,
		publicURL: strings.TrimSuffix(cfg.MinIOPublicURL, "/"),
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// Put uploads data under key and returns its public URL.
func (s *MinIOStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return PublicURL(s.publicURL, s.bucket, key), nil
}

// Remove deletes objects by key in a single batch request.
func (s *MinIOStore) Remove(ctx context.Context, keys []string) error {
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)
	for result := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if result.Err != nil {
			return fmt.Errorf("delete object %s: %w", result.ObjectName, result.Err)
		}
	}
	return nil
}

// KeyFromPublicURL returns the object key for a URL produced by Put.
func (s *MinIOStore) KeyFromPublicURL(publicURL string) (string, bool) {
	prefix := s.publicURL + "/" + s.bucket + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimPrefix(publicURL, prefix))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

// Ping checks MinIO connectivity.
func (s *MinIOStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// PublicURL joins base, bucket and an escaped key.
func PublicURL(base, bucket, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + bucket + "/" + (&url.URL{Path: key}).EscapedPath()
}
