package supabase

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// StorageClient re-hosts assets in a public Supabase Storage bucket.
type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, serviceRoleKey, bucket string) (*StorageClient, error) {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("supabase url is empty")
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is empty")
	}
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

// Put uploads data at key, replacing any existing object, and returns its public URL.
func (s *StorageClient) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	upsert := true
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return s.GetPublicURL(key), nil
}

func (s *StorageClient) GetPublicURL(storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		s.baseURL, s.bucket, storagePath)
}

// Remove deletes objects by key.
func (s *StorageClient) Remove(_ context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.client.RemoveFile(s.bucket, keys); err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}
	return nil
}

// KeyFromPublicURL returns the object key for a URL produced by GetPublicURL.
func (s *StorageClient) KeyFromPublicURL(publicURL string) (string, bool) {
	prefix := s.GetPublicURL("")
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(publicURL, prefix)
	return key, key != ""
}
