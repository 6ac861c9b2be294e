package minio

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/dtroode/pastry-storefront/internal/model"
)

// Internal adapter interface to enable mocking without a real MinIO server.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Wrapper to adapt *minio.Client to minioAPI.
type minioClientWrapper struct{ c *minio.Client }

func (w minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return w.c.BucketExists(ctx, bucketName)
}
func (w minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucketName, opts)
}
func (w minioClientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}
func (w minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := w.c.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}
func (w minioClientWrapper) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return w.c.RemoveObject(ctx, bucketName, objectName, opts)
}

var _ model.KeyValueStore = (*Client)(nil)

// Client stores each key as one object under <namespace>/<key> in the bucket.
type Client struct {
	api       minioAPI
	bucket    string
	namespace string
}

// NewClient creates a MinIO-backed key/value store using a real *minio.Client instance.
func NewClient(ctx context.Context, client *minio.Client, bucket, namespace string) (*Client, error) {
	return NewClientWithAPI(ctx, minioClientWrapper{c: client}, bucket, namespace)
}

// NewClientWithAPI allows injecting a mockable API (used in tests).
func NewClientWithAPI(ctx context.Context, api minioAPI, bucket, namespace string) (*Client, error) {
	c := &Client{
		api:       api,
		bucket:    bucket,
		namespace: strings.Trim(namespace, "/"),
	}

	err := c.ensureBucketExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return c, nil
}

func (c *Client) ensureBucketExists(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

func (c *Client) objectName(key string) string {
	if c.namespace == "" {
		return key
	}
	return path.Join(c.namespace, key)
}

// Get reads the value stored under key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	obj, err := c.api.GetObject(ctx, c.bucket, c.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return "", model.ErrNotFound
		}
		return "", fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return "", model.ErrNotFound
		}
		return "", fmt.Errorf("failed to read object: %w", err)
	}
	return string(b), nil
}

// Set overwrites the value stored under key.
func (c *Client) Set(ctx context.Context, key, value string) error {
	_, err := c.api.PutObject(ctx, c.bucket, c.objectName(key), strings.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (c *Client) Remove(ctx context.Context, key string) error {
	err := c.api.RemoveObject(ctx, c.bucket, c.objectName(key), minio.RemoveObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
