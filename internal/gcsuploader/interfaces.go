package gcsuploader

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// StorageService provides an interface for cloud storage uploads.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// UploadBytes stores data under bucketName/objectName and returns its URI.
	UploadBytes(ctx context.Context, bucketName, objectName, contentType string, data []byte) (string, error)
}

// GCSStorageService is the concrete implementation of StorageService
// that interacts with Google Cloud Storage through a shared client.
type GCSStorageService struct {
	client *storage.Client
}

// NewGCSStorageService creates a new instance of GCSStorageService.
func NewGCSStorageService(ctx context.Context) (*GCSStorageService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStorageService{client: client}, nil
}

// Close closes the storage client.
func (s *GCSStorageService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// UploadBytes delegates to UploadBytesWithClient with the shared client.
func (s *GCSStorageService) UploadBytes(ctx context.Context, bucketName, objectName, contentType string, data []byte) (string, error) {
	return UploadBytesWithClient(ctx, s.client, bucketName, objectName, contentType, data)
}

var _ StorageService = (*GCSStorageService)(nil)
