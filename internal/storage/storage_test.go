package storage

import (
	"alcyxob/workout-tracker/internal/config"
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	files := NewMemoryStorage("https://files.test")

	uploadURL, err := files.GeneratePresignedUploadURL(ctx, "images/u/a.png", "image/png", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uploadURL, "https://files.test/upload/images/u/a.png?"))
	assert.Contains(t, uploadURL, "expires=900")

	downloadURL, err := files.GeneratePresignedDownloadURL(ctx, "images/u/a.png", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/images/u/a.png?expires=60", downloadURL)

	files.Put("images/u/a.png")
	assert.True(t, files.Has("images/u/a.png"))
	require.NoError(t, files.DeleteObject(ctx, "images/u/a.png"))
	require.NoError(t, files.DeleteObject(ctx, "images/u/a.png"), "deleting twice is fine")
	assert.False(t, files.Has("images/u/a.png"))

	failure := errors.New("boom")
	files.FailDelete["images/u/b.png"] = failure
	assert.ErrorIs(t, files.DeleteObject(ctx, "images/u/b.png"), failure)
	assert.Equal(t, []string{"images/u/a.png", "images/u/a.png"}, files.Deleted())
}

// Presigning is a local computation, so no S3 endpoint has to be reachable.
func TestS3Storage_Presign(t *testing.T) {
	ctx := context.Background()
	files, err := NewS3Storage(ctx, config.S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		AccessKeyID:     "test-access",
		SecretAccessKey: "test-secret",
		BucketName:      "workouts",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	uploadURL, err := files.GeneratePresignedUploadURL(ctx, "images/u/a.png", "image/png", 5*time.Minute)
	require.NoError(t, err)
	parsed, err := url.Parse(uploadURL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", parsed.Host)
	assert.Equal(t, "/workouts/images/u/a.png", parsed.Path)
	assert.Equal(t, "300", parsed.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
	assert.Contains(t, parsed.Query().Get("X-Amz-SignedHeaders"), "host")

	downloadURL, err := files.GeneratePresignedDownloadURL(ctx, "images/u/a.png", 0)
	require.NoError(t, err)
	parsed, err = url.Parse(downloadURL)
	require.NoError(t, err)
	assert.Equal(t, "/workouts/images/u/a.png", parsed.Path)
	assert.Equal(t, "900", parsed.Query().Get("X-Amz-Expires"))
}
