// Package storage uploads user and product images to S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/logger"
)

// ErrNotConfigured is returned by a nil *S3Store.
var ErrNotConfigured = errors.New("image storage not configured")

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store is implemented by *S3Store.
type Store interface {
	Put(ctx context.Context, prefix string, up Upload) (string, error)
}

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes objects under a single bucket and returns public URLs.
type S3Store struct {
	client  putter
	bucket  string
	baseURL string
	logger  *zap.Logger
}

// LoadAWSConfig loads the default AWS config. AWS_S3_ENDPOINT or AWS_ENDPOINT
// redirects requests to an S3-compatible endpoint such as LocalStack or MinIO.
func LoadAWSConfig(ctx context.Context) (aws.Config, string, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, "", fmt.Errorf("load aws config: %w", err)
	}
	endpoint := os.Getenv("AWS_S3_ENDPOINT")
	if endpoint == "" {
		endpoint = os.Getenv("AWS_ENDPOINT")
	}
	return cfg, endpoint, nil
}

// NewS3 builds a store for bucket. baseURL, when empty, defaults to the
// virtual-hosted S3 URL of the bucket.
func NewS3(cfg aws.Config, endpoint, bucket, baseURL string, l *zap.Logger) *S3Store {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	if baseURL == "" {
		switch {
		case endpoint != "":
			baseURL = strings.TrimRight(endpoint, "/") + "/" + bucket
		default:
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, cfg.Region)
		}
	}
	return newS3Store(client, bucket, baseURL, l)
}

func newS3Store(client putter, bucket, baseURL string, l *zap.Logger) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.OrNop(l).Named("s3"),
	}
}

// Put stores up under prefix with a random key and returns its public URL.
func (s *S3Store) Put(ctx context.Context, prefix string, up Upload) (string, error) {
	if s == nil {
		return "", ErrNotConfigured
	}
	key := path.Join(prefix, uuid.NewString()+path.Ext(up.Filename))
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   up.Body,
		ACL:    "public-read",
	}
	if up.ContentType != "" {
		in.ContentType = aws.String(up.ContentType)
	}
	if up.Size > 0 {
		in.ContentLength = aws.Int64(up.Size)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		s.logger.Error("put object failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("upload %s: %w", up.Filename, err)
	}
	s.logger.Info("object stored", zap.String("key", key), zap.Int64("size", up.Size))
	return s.baseURL + "/" + key, nil
}
