package util

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/medisure/claims-api/config"
)

// ObjectUploader stores a document body and returns its public URL.
// The S3-backed implementation is the default; tests inject a stub.
type ObjectUploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte, metadata map[string]string) (string, error)
}

type s3Uploader struct{}

func (s3Uploader) Upload(ctx context.Context, key, contentType string, body []byte, metadata map[string]string) (string, error) {
	client := config.GetS3Client()
	if client == nil {
		return "", fmt.Errorf("object storage not available")
	}
	cfg := config.LoadConfig()

	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &cfg.S3Bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
		Metadata:    metadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", cfg.S3Bucket, cfg.AWSRegion, key), nil
}

var uploader ObjectUploader = s3Uploader{}

// GetUploader returns the active object uploader.
func GetUploader() ObjectUploader {
	return uploader
}

// SetUploaderForTesting allows tests to inject a stub uploader.
// This should only be used in tests.
func SetUploaderForTesting(u ObjectUploader) {
	uploader = u
}

// DocumentObjectKey builds the storage key for an uploaded medical report:
// medical-reports/<appointmentID>/<uuid>.<ext>. The extension is taken from
// the original filename.
func DocumentObjectKey(appointmentID uint, originalName string) string {
	ext := strings.TrimPrefix(path.Ext(originalName), ".")
	name := uuid.NewString()
	if ext != "" {
		name = fmt.Sprintf("%s.%s", name, ext)
	}
	return fmt.Sprintf("medical-reports/%d/%s", appointmentID, name)
}
