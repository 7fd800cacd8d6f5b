// Package storage archives receipts in Google Cloud Storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gfn-loan-service/internal/common/logger"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var (
	ErrStorageUploadFailed = errors.New("STORAGE_UPLOAD_FAILED")
	ErrObjectExists        = errors.New("OBJECT_ALREADY_EXISTS")
)

type GCSStore struct {
	client *storage.Client
	bucket string
	logger logger.Logger
}

func NewGCSStore(ctx context.Context, bucket string, log logger.Logger, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return NewGCSStoreWithClient(client, bucket, log), nil
}

func NewGCSStoreWithClient(client *storage.Client, bucket string, log logger.Logger) *GCSStore {
	return &GCSStore{
		client: client,
		bucket: bucket,
		logger: log.WithFields(map[string]interface{}{"component": "gcs-store", "bucket": bucket}),
	}
}

// Put writes name only if it does not already exist. Receipts are never overwritten.
func (s *GCSStore) Put(ctx context.Context, name, contentType string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("%w: %s: %v", ErrStorageUploadFailed, name, err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return fmt.Errorf("%w: %s", ErrObjectExists, name)
		}
		return fmt.Errorf("%w: %s: %v", ErrStorageUploadFailed, name, err)
	}

	s.logger.Info("object archived", map[string]interface{}{
		"object": name,
		"bytes":  len(data),
	})
	return nil
}

func (s *GCSStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
