// Package media resolves the opaque attachment metadata on a Message to a
// short-lived URL. The pipeline itself never reads or re-encodes attachment
// bytes (no transcoding, thumbnailing, or EXIF stripping — see DESIGN.md);
// this package only brokers presigned GET/PUT URLs against an S3-compatible
// object store via minio-go, the same client the teacher used for guild icon
// and attachment uploads.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config configures a Service.
type Config struct {
	Endpoint    string
	Bucket      string
	AccessKey   string
	SecretKey   string
	UseSSL      bool
	MaxUploadMB int64
}

// Service brokers presigned URLs against an S3-compatible bucket.
type Service struct {
	client      *minio.Client
	bucket      string
	maxUploadMB int64
}

// New connects to the configured S3-compatible endpoint.
func New(cfg Config) (*Service, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to object store: %w", err)
	}
	return &Service{client: client, bucket: cfg.Bucket, maxUploadMB: cfg.MaxUploadMB}, nil
}

// MaxUploadBytes returns the configured upload ceiling, defaulting to 100MB
// when unset.
func (s *Service) MaxUploadBytes() int64 {
	if s.maxUploadMB <= 0 {
		return 100 * 1024 * 1024
	}
	return s.maxUploadMB * 1024 * 1024
}

// PresignGetURL returns a short-lived URL for reading the object at
// storageKey, used to populate Attachment.URL on read.
func (s *Service) PresignGetURL(ctx context.Context, storageKey string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, storageKey, 15*time.Minute, nil)
	if err != nil {
		return "", fmt.Errorf("presigning get for %s: %w", storageKey, err)
	}
	return u.String(), nil
}

// PresignPutURL returns a short-lived URL a client can PUT an attachment's
// bytes to directly, so the API server never proxies the upload body.
func (s *Service) PresignPutURL(ctx context.Context, storageKey string) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, storageKey, 15*time.Minute)
	if err != nil {
		return "", fmt.Errorf("presigning put for %s: %w", storageKey, err)
	}
	return u.String(), nil
}

// EnsureBucket creates the configured bucket if it does not already exist.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"code": code, "message": message},
	})
}
