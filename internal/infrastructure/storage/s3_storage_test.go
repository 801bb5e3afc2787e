package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printcore/backend/internal/infrastructure/config"
)

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(&config.StorageConfig{
			AccessKey: "test-key",
			SecretKey: "test-secret",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(&config.StorageConfig{
			Bucket:    "test-bucket",
			SecretKey: "test-secret",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(&config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates storage", func(t *testing.T) {
		s, err := NewS3ObjectStorage(&config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
			Region:    "eu-west-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "test-bucket", s.GetBucket())
	})
}

func TestS3ObjectStorage_ObjectURL(t *testing.T) {
	t.Run("explicit public base URL", func(t *testing.T) {
		s, err := NewS3ObjectStorage(&config.StorageConfig{
			Bucket:        "renditions",
			AccessKey:     "k",
			SecretKey:     "s",
			PublicBaseURL: "https://cdn.example.com/",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/books/1/interior.pdf",
			s.ObjectURL("books/1/interior.pdf"))
	})

	t.Run("defaults to virtual-hosted S3 URL", func(t *testing.T) {
		s, err := NewS3ObjectStorage(&config.StorageConfig{
			Bucket:    "renditions",
			AccessKey: "k",
			SecretKey: "s",
			Region:    "us-west-2",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://renditions.s3.us-west-2.amazonaws.com/cover.pdf",
			s.ObjectURL("cover.pdf"))
	})
}

func TestInMemoryObjectStorage(t *testing.T) {
	s := NewInMemoryObjectStorage()
	ctx := context.Background()

	url, err := s.Put(ctx, "books/1/interior.pdf", "application/pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, "https://storage.example.com/books/1/interior.pdf", url)

	body, ok := s.Get("books/1/interior.pdf")
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF-1.7"), body)

	t.Run("put copies the buffer", func(t *testing.T) {
		src := []byte("original")
		_, err := s.Put(ctx, "k", "application/pdf", src)
		require.NoError(t, err)
		src[0] = 'X'
		stored, _ := s.Get("k")
		assert.Equal(t, []byte("original"), stored)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		_, err := s.Put(ctx, "", "application/pdf", nil)
		assert.Error(t, err)
		assert.Error(t, s.Delete(ctx, ""))
	})

	t.Run("delete removes the object", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "books/1/interior.pdf"))
		_, ok := s.Get("books/1/interior.pdf")
		assert.False(t, ok)
	})
}
