// Package storage provides the object-storage boundary: presigned uploads
// for participant submissions and direct uploads for audit CSV snapshots.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pdamit/events-api/internal/config"
	"github.com/pdamit/events-api/internal/models"
)

// ErrNotConfigured is returned when an operation needs a bucket and none is
// configured. Callers surface it as an internal error; audit uploads record
// it in the log row instead of failing the transition.
var ErrNotConfigured = errors.New("object storage not configured")

// ObjectStore is what the logic layer sees.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key, mimeType string, size int64) (*models.PresignedUpload, error)
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
	PublicURL(key string) string
}

// S3Store talks to S3 or any S3-compatible endpoint.
type S3Store struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	region     string
	publicBase string
	presignTTL time.Duration
}

// NewS3 builds a store from configuration. Static credentials are used when
// provided; otherwise the default AWS chain applies.
func NewS3(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &S3Store{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		publicBase: cfg.PublicBaseURL,
		presignTTL: ttl,
	}, nil
}

// PresignUpload returns a PUT URL the client uploads to directly, plus the
// public URL the stored submission row will carry.
func (s *S3Store) PresignUpload(ctx context.Context, key, mimeType string, size int64) (*models.PresignedUpload, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(mimeType),
		ContentLength: aws.Int64(size),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return nil, fmt.Errorf("presign put %s: %w", key, err)
	}
	return &models.PresignedUpload{
		UploadURL: req.URL,
		PublicURL: s.PublicURL(key),
		Key:       key,
		MimeType:  mimeType,
	}, nil
}

// Upload writes body directly to the bucket, used for audit CSVs.
func (s *S3Store) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

func (s *S3Store) PublicURL(key string) string {
	if s.publicBase != "" {
		return fmt.Sprintf("%s/%s", s.publicBase, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// LocalStore is the development fallback: audit files land under a static
// directory and presigned uploads are unavailable.
type LocalStore struct {
	dir string
}

func NewLocal(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (l *LocalStore) PresignUpload(ctx context.Context, key, mimeType string, size int64) (*models.PresignedUpload, error) {
	return nil, ErrNotConfigured
}

func (l *LocalStore) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	full := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("mkdir for %s: %w", key, err)
	}
	if err := os.WriteFile(full, body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return l.PublicURL(key), nil
}

func (l *LocalStore) PublicURL(key string) string {
	return "/uploads/" + key
}
