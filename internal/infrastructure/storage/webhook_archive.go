// Package storage provides the S3-compatible archive for raw webhook payloads.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	app "github.com/adhub/backend/internal/application/integration"
	"github.com/adhub/backend/internal/domain/integration"
	infraconfig "github.com/adhub/backend/internal/infrastructure/config"
)

// Ensure S3PayloadArchive implements PayloadArchive
var _ app.PayloadArchive = (*S3PayloadArchive)(nil)

// S3PayloadArchive stores raw webhook payloads in S3-compatible object
// storage. It works against any S3-compatible backend (AWS S3, MinIO, RustFS).
type S3PayloadArchive struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// S3PayloadArchiveOption is a functional option for configuring S3PayloadArchive
type S3PayloadArchiveOption func(*S3PayloadArchive)

// WithLogger sets a custom logger for S3PayloadArchive
func WithLogger(logger *zap.Logger) S3PayloadArchiveOption {
	return func(s *S3PayloadArchive) {
		s.logger = logger
	}
}

// NewS3PayloadArchive creates a new S3PayloadArchive from configuration
func NewS3PayloadArchive(cfg *infraconfig.StorageConfig, opts ...S3PayloadArchiveOption) (*S3PayloadArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"", // session token (not used for static credentials)
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	archive := &S3PayloadArchive{
		client: client,
		bucket: cfg.Bucket,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	return archive, nil
}

// archiveKey builds the object key for a payload. Keys shard by tenant so a
// tenant's archive can be exported or purged with a single prefix listing.
func archiveKey(tenantID, eventID uuid.UUID) string {
	return fmt.Sprintf("webhooks/%s/%s.json", tenantID, eventID)
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3PayloadArchive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Ignore "BucketAlreadyOwnedByYou" error (race condition)
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Store uploads the raw payload of one webhook event
func (s *S3PayloadArchive) Store(ctx context.Context, event *integration.WebhookEvent) error {
	key := archiveKey(event.TenantID, event.ID)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(event.Payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive payload %s: %w", key, err)
	}
	s.logger.Debug("Webhook payload archived",
		zap.String("key", key),
		zap.Int("size", len(event.Payload)),
	)
	return nil
}

// Fetch downloads an archived payload
func (s *S3PayloadArchive) Fetch(ctx context.Context, tenantID, eventID uuid.UUID) ([]byte, error) {
	key := archiveKey(tenantID, eventID)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archived payload %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Delete removes an archived payload
func (s *S3PayloadArchive) Delete(ctx context.Context, tenantID, eventID uuid.UUID) error {
	key := archiveKey(tenantID, eventID)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete archived payload %s: %w", key, err)
	}
	return nil
}
