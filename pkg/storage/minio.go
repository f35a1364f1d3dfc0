package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/homereel/media-library/pkg/config"
)

type objectClient interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

// MinIOStorage keeps blobs in an S3 compatible bucket.
type MinIOStorage struct {
	client objectClient
	bucket string
}

// NewMinIOStorage connects to the endpoint and creates the bucket when missing.
func NewMinIOStorage(ctx context.Context, cfg config.MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinIOStorage{client: client, bucket: cfg.Bucket}, nil
}

// Write uploads r under key. A negative size streams with multipart upload.
func (s *MinIOStorage) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error) {
	key, err := cleanKey(key)
	if err != nil {
		return 0, err
	}
	if size <= 0 {
		size = -1
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return 0, fmt.Errorf("put object: %w", err)
	}
	return info.Size, nil
}

// ReadRange fetches the inclusive byte range of key.
func (s *MinIOStorage) ReadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, opts)
	if err != nil {
		return nil, translateMinIOError(err)
	}
	// GetObject is lazy; Stat forces the request so a missing key surfaces here.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, translateMinIOError(err)
	}
	return obj, nil
}

// Size returns the stored length of key.
func (s *MinIOStorage) Size(ctx context.Context, key string) (int64, error) {
	key, err := cleanKey(key)
	if err != nil {
		return 0, err
	}
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, translateMinIOError(err)
	}
	return info.Size, nil
}

// Exists reports whether key has stored bytes.
func (s *MinIOStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Size(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrBlobNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Delete removes key. Missing objects are not an error.
func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if errors.Is(translateMinIOError(err), ErrBlobNotFound) {
			return nil
		}
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func translateMinIOError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrBlobNotFound
	}
	return fmt.Errorf("minio: %w", err)
}
