package minio

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	minioLib "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/pastry-storefront/internal/model"
)

// fakeMinio implements minioAPI for testing without network.
type fakeMinio struct {
	bucketExists    bool
	bucketExistsErr error
	makeBucketErr   error
	madeBucket      bool

	objects map[string]string
	putErr  error
	getErr  error
	readErr error

	removeErr error
}

func newFakeMinio() *fakeMinio {
	return &fakeMinio{bucketExists: true, objects: map[string]string{}}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func (f *fakeMinio) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, f.bucketExistsErr
}
func (f *fakeMinio) MakeBucket(_ context.Context, _ string, _ minioLib.MakeBucketOptions) error {
	f.madeBucket = true
	return f.makeBucketErr
}
func (f *fakeMinio) PutObject(_ context.Context, _ string, name string, r io.Reader, _ int64, _ minioLib.PutObjectOptions) (minioLib.UploadInfo, error) {
	if f.putErr != nil {
		return minioLib.UploadInfo{}, f.putErr
	}
	b, _ := io.ReadAll(r)
	f.objects[name] = string(b)
	return minioLib.UploadInfo{Key: name, Size: int64(len(b))}, nil
}
func (f *fakeMinio) GetObject(_ context.Context, _ string, name string, _ minioLib.GetObjectOptions) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.readErr != nil {
		return io.NopCloser(errReader{err: f.readErr}), nil
	}
	v, ok := f.objects[name]
	if !ok {
		return io.NopCloser(errReader{err: minioLib.ErrorResponse{Code: "NoSuchKey"}}), nil
	}
	return io.NopCloser(strings.NewReader(v)), nil
}
func (f *fakeMinio) RemoveObject(_ context.Context, _ string, name string, _ minioLib.RemoveObjectOptions) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.objects, name)
	return nil
}

func TestNewClientWithAPI_BucketExists(t *testing.T) {
	api := newFakeMinio()
	c, err := NewClientWithAPI(context.Background(), api, "b", "/kiosk-1/")
	require.NoError(t, err)
	assert.Equal(t, "b", c.bucket)
	assert.Equal(t, "kiosk-1", c.namespace)
	assert.False(t, api.madeBucket)
}

func TestNewClientWithAPI_CreateBucket(t *testing.T) {
	api := newFakeMinio()
	api.bucketExists = false
	_, err := NewClientWithAPI(context.Background(), api, "bucket", "ns")
	require.NoError(t, err)
	assert.True(t, api.madeBucket)
}

func TestNewClientWithAPI_Errors(t *testing.T) {
	t.Run("bucket exists error", func(t *testing.T) {
		api := newFakeMinio()
		api.bucketExistsErr = errors.New("boom")
		c, err := NewClientWithAPI(context.Background(), api, "bucket", "ns")
		assert.Nil(t, c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to ensure bucket exists")
	})

	t.Run("make bucket error", func(t *testing.T) {
		api := newFakeMinio()
		api.bucketExists = false
		api.makeBucketErr = errors.New("fail")
		c, err := NewClientWithAPI(context.Background(), api, "bucket", "ns")
		assert.Nil(t, c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to ensure bucket exists")
	})
}

func TestClient_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	api := newFakeMinio()
	c := &Client{api: api, bucket: "b", namespace: "kiosk-1"}

	_, err := c.Get(ctx, "cart_42")
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, c.Set(ctx, "cart_42", `[]`))
	assert.Equal(t, `[]`, api.objects["kiosk-1/cart_42"])

	got, err := c.Get(ctx, "cart_42")
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)

	require.NoError(t, c.Remove(ctx, "cart_42"))
	_, err = c.Get(ctx, "cart_42")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("put", func(t *testing.T) {
		api := newFakeMinio()
		api.putErr = errors.New("put-fail")
		c := &Client{api: api, bucket: "b"}
		err := c.Set(ctx, "k", "v")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upload object")
	})

	t.Run("get", func(t *testing.T) {
		api := newFakeMinio()
		api.getErr = errors.New("get-fail")
		c := &Client{api: api, bucket: "b"}
		_, err := c.Get(ctx, "k")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get object")
	})

	t.Run("read", func(t *testing.T) {
		api := newFakeMinio()
		api.readErr = errors.New("read-fail")
		c := &Client{api: api, bucket: "b"}
		_, err := c.Get(ctx, "k")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read object")
	})

	t.Run("remove", func(t *testing.T) {
		api := newFakeMinio()
		api.removeErr = errors.New("rm-fail")
		c := &Client{api: api, bucket: "b"}
		err := c.Remove(ctx, "k")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to delete object")
	})

	t.Run("remove missing key", func(t *testing.T) {
		api := newFakeMinio()
		api.removeErr = minioLib.ErrorResponse{Code: "NoSuchKey"}
		c := &Client{api: api, bucket: "b"}
		assert.NoError(t, c.Remove(ctx, "k"))
	})
}
