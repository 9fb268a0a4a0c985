// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/config"
)

// ImageStore keeps product images and hands back their public URLs.
type ImageStore interface {
	Upload(ctx context.Context, folder string, file ImageFile) (*UploadResult, error)
	Delete(ctx context.Context, url string) error
}

// ImageFile is an image read from a multipart upload.
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// StorageService writes to S3 when AWS credentials are configured and to a
// local directory otherwise.
type StorageService struct {
	s3Client s3iface.S3API
	aws      config.AWSConfig
	storage  config.StorageConfig
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	s := &StorageService{aws: cfg.AWS, storage: cfg.Storage}
	if cfg.AWS.AccessKeyID == "" {
		// Return service without S3 for local development
		if err := os.MkdirAll(cfg.Storage.LocalDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
		return s, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	s.s3Client = s3.New(sess)
	return s, nil
}

func (s *StorageService) Upload(ctx context.Context, folder string, file ImageFile) (*UploadResult, error) {
	contentType, err := s.validateImage(file)
	if err != nil {
		return nil, err
	}

	key := s.generateFileName(file.Filename, folder)
	if s.s3Client != nil {
		return s.uploadToS3(ctx, file.Data, key, contentType)
	}
	return s.uploadToLocal(file.Data, key, contentType)
}

func (s *StorageService) uploadToS3(ctx context.Context, data []byte, key, contentType string) (*UploadResult, error) {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.aws.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		ACL:           aws.String("public-read"),
	})
	if err != nil {
		return nil, apperror.Internal("failed to upload image", err)
	}

	return &UploadResult{
		URL:      s.getS3URL(key),
		Key:      key,
		Size:     int64(len(data)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) uploadToLocal(data []byte, key, contentType string) (*UploadResult, error) {
	path := filepath.Join(s.storage.LocalDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperror.Internal("failed to create upload directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, apperror.Internal("failed to store image", err)
	}

	return &UploadResult{
		URL:      strings.TrimRight(s.storage.PublicURL, "/") + "/" + key,
		Key:      key,
		Size:     int64(len(data)),
		MimeType: contentType,
	}, nil
}

// Delete removes the object behind url. URLs this service did not issue are
// ignored.
func (s *StorageService) Delete(ctx context.Context, url string) error {
	key, ok := s.keyFromURL(url)
	if !ok {
		logrus.WithField("url", url).Debug("Skipping delete of foreign image URL")
		return nil
	}

	if s.s3Client == nil {
		path := filepath.Join(s.storage.LocalDir, filepath.FromSlash(key))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete local file: %w", err)
		}
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.aws.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

func (s *StorageService) validateImage(file ImageFile) (string, error) {
	if s.storage.MaxImageSize > 0 && int64(len(file.Data)) > s.storage.MaxImageSize {
		return "", apperror.Validation(apperror.CodeInvalidImages,
			fmt.Sprintf("image %s exceeds maximum size of %d bytes", file.Filename, s.storage.MaxImageSize))
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType, ok := allowedImageTypes[ext]
	if !ok {
		return "", apperror.Validation(apperror.CodeInvalidImages,
			fmt.Sprintf("file type %s is not allowed", ext))
	}

	// The declared extension must match the file signature.
	if detected := http.DetectContentType(file.Data); detected != contentType {
		return "", apperror.Validation(apperror.CodeInvalidImages,
			fmt.Sprintf("image %s is not a valid %s file", file.Filename, ext))
	}
	return contentType, nil
}

func (s *StorageService) generateFileName(originalName, folder string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	timestamp := time.Now().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, uuid.NewString()[:8], ext)

	if folder != "" {
		return fmt.Sprintf("%s/%s", folder, filename)
	}
	return filename
}

func (s *StorageService) getS3URL(key string) string {
	return s.urlPrefix() + key
}

func (s *StorageService) urlPrefix() string {
	if s.s3Client == nil {
		return strings.TrimRight(s.storage.PublicURL, "/") + "/"
	}
	if s.aws.CloudFrontURL != "" {
		return strings.TrimRight(s.aws.CloudFrontURL, "/") + "/"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.aws.S3Bucket, s.aws.Region)
}

func (s *StorageService) keyFromURL(url string) (string, bool) {
	prefix := s.urlPrefix()
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
