package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/config"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 32)...)
)

type fakeS3 struct {
	s3iface.S3API
	puts    []string
	deletes []string
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, aws.StringValue(in.Key))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newLocalStorage(t *testing.T) *StorageService {
	t.Helper()
	cfg := &config.Config{Storage: config.StorageConfig{
		LocalDir:     t.TempDir(),
		PublicURL:    "http://localhost:8080/uploads",
		MaxImageSize: 1024,
	}}
	storage, err := NewStorageService(cfg)
	require.NoError(t, err)
	return storage
}

func TestLocalUploadAndDelete(t *testing.T) {
	storage := newLocalStorage(t)
	ctx := context.Background()

	result, err := storage.Upload(ctx, "products", ImageFile{Filename: "front.PNG", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "image/png", result.MimeType)
	assert.Equal(t, "http://localhost:8080/uploads/"+result.Key, result.URL)

	path := filepath.Join(storage.storage.LocalDir, filepath.FromSlash(result.Key))
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, storage.Delete(ctx, result.URL))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Deleting twice or deleting foreign URLs is harmless.
	assert.NoError(t, storage.Delete(ctx, result.URL))
	assert.NoError(t, storage.Delete(ctx, "https://elsewhere.example.com/a.png"))
}

func TestUploadRejectsInvalidImages(t *testing.T) {
	storage := newLocalStorage(t)
	ctx := context.Background()

	cases := map[string]ImageFile{
		"extension":  {Filename: "doc.pdf", Data: pngBytes},
		"signature":  {Filename: "fake.png", Data: jpegBytes},
		"too large":  {Filename: "big.png", Data: append(pngBytes, make([]byte, 2048)...)},
		"plain text": {Filename: "notes.jpg", Data: []byte("hello world")},
	}
	for name, file := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := storage.Upload(ctx, "products", file)
			assert.True(t, apperror.HasCode(err, apperror.CodeInvalidImages), "got %v", err)
		})
	}
}

func TestS3UploadAndDelete(t *testing.T) {
	client := &fakeS3{}
	storage := &StorageService{
		s3Client: client,
		aws:      config.AWSConfig{Region: "eu-west-1", S3Bucket: "shop-images"},
	}
	ctx := context.Background()

	result, err := storage.Upload(ctx, "products", ImageFile{Filename: "side.jpg", Data: jpegBytes})
	require.NoError(t, err)
	assert.Equal(t, "https://shop-images.s3.eu-west-1.amazonaws.com/"+result.Key, result.URL)
	assert.Equal(t, []string{result.Key}, client.puts)

	require.NoError(t, storage.Delete(ctx, result.URL))
	assert.Equal(t, []string{result.Key}, client.deletes)
}

func TestS3URLUsesCloudFront(t *testing.T) {
	storage := &StorageService{
		s3Client: &fakeS3{},
		aws:      config.AWSConfig{S3Bucket: "shop-images", CloudFrontURL: "https://cdn.example.com/"},
	}

	assert.Equal(t, "https://cdn.example.com/products/a.png", storage.getS3URL("products/a.png"))
	key, ok := storage.keyFromURL("https://cdn.example.com/products/a.png")
	assert.True(t, ok)
	assert.Equal(t, "products/a.png", key)
}
