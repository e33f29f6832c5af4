package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/Feedbird/platform-sub002/pkg/logging"
	"github.com/Feedbird/platform-sub002/pkg/models"
)

// S3Config holds configuration for the S3 client
type S3Config struct {
	Bucket    string // S3 bucket name
	Prefix    string // Key prefix for all uploads
	Region    string // AWS region (default: us-east-1)
	Endpoint  string // Custom endpoint for S3-compatible storage (MinIO, etc.)
	PublicURL string // Base URL media is served from; defaults to the bucket's virtual-hosted URL
	AccessKey string // AWS access key (optional, uses IAM roles if empty)
	SecretKey string // AWS secret key (optional, uses IAM roles if empty)
}

// S3Client uploads publish media to durable object storage
type S3Client struct {
	client *s3.Client
	config S3Config
	logger logging.Logger
}

// NewS3Client creates a new S3 client with the given configuration
func NewS3Client(cfg S3Config, logger logging.Logger) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}

	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	// Use explicit credentials if provided, otherwise use default credential chain (IAM roles)
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO and most S3-compatible storage
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	logger.WithFields(logging.Fields{
		"bucket":   cfg.Bucket,
		"prefix":   cfg.Prefix,
		"region":   cfg.Region,
		"endpoint": cfg.Endpoint,
	}).Info("S3 client initialized")

	return &S3Client{
		client: client,
		config: cfg,
		logger: logger,
	}, nil
}

// fullKey returns the full S3 key including prefix
func (c *S3Client) fullKey(key string) string {
	if c.config.Prefix == "" {
		return key
	}
	return strings.TrimSuffix(c.config.Prefix, "/") + "/" + strings.TrimPrefix(key, "/")
}

// publicURL returns the externally fetchable URL for a key
func (c *S3Client) publicURL(key string) string {
	if c.config.PublicURL != "" {
		return strings.TrimSuffix(c.config.PublicURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.config.Bucket, c.config.Region, key)
}

// IsDurable reports whether a URL already points at this client's storage,
// so re-uploading it would be redundant
func (c *S3Client) IsDurable(url string) bool {
	if c.config.PublicURL != "" && strings.HasPrefix(url, strings.TrimSuffix(c.config.PublicURL, "/")) {
		return true
	}
	return strings.HasPrefix(url, fmt.Sprintf("https://%s.s3.", c.config.Bucket))
}

// Upload stores a binary payload and returns its durable URL
func (c *S3Client) Upload(ctx context.Context, payload []byte, contentType string, kind models.MediaKind) (string, error) {
	ext := extensionFor(contentType, kind)
	key := c.fullKey(fmt.Sprintf("media/%s/%s%s", string(kind), uuid.New().String(), ext))

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}

	url := c.publicURL(key)
	c.logger.WithFields(logging.Fields{
		"key":   key,
		"bytes": len(payload),
		"kind":  string(kind),
	}).Debug("Uploaded media object")
	return url, nil
}

// Ping verifies the bucket is reachable, for health checks
func (c *S3Client) Ping(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.Bucket),
	})
	if err != nil {
		return fmt.Errorf("S3 bucket unreachable: %w", err)
	}
	return nil
}

func extensionFor(contentType string, kind models.MediaKind) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "application/pdf":
		return ".pdf"
	}
	switch kind {
	case models.MediaImage:
		return ".jpg"
	case models.MediaVideo:
		return ".mp4"
	}
	return ".bin"
}
