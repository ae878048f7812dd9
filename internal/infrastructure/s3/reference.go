// Package s3 loads and publishes reference documents in an S3-compatible
// bucket (AWS S3 or MinIO).
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/reference"
)

// Config holds explicit construction parameters. Credentials fall back to
// the default AWS chain when AccessKeyID is empty.
type Config struct {
	Region          string
	Bucket          string
	Key             string
	Endpoint        string // optional; set for MinIO and other S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

// ReferenceSource reads a reference document from a single object. The
// parsed document is cached by ETag so periodic reloads skip unchanged
// objects.
type ReferenceSource struct {
	client *s3.Client
	bucket string
	key    string
	logger *zap.Logger

	mu   sync.Mutex
	etag string
	doc  *reference.Document
}

var _ reference.Source = (*ReferenceSource)(nil)

// New creates a reference source from Config
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*ReferenceSource, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("s3 object key required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newSource(client, cfg.Bucket, cfg.Key, logger), nil
}

func newSource(client *s3.Client, bucket, key string, logger *zap.Logger) *ReferenceSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceSource{client: client, bucket: bucket, key: key, logger: logger}
}

func (s *ReferenceSource) Name() string { return "s3://" + s.bucket + "/" + s.key }

// Load fetches and parses the object, reusing the cached document when the
// ETag is unchanged
func (s *ReferenceSource) Load(ctx context.Context) (*reference.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc != nil {
		head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &s.key})
		if err != nil {
			return nil, fmt.Errorf("head %s: %w", s.Name(), err)
		}
		if etag := aws.ToString(head.ETag); etag != "" && etag == s.etag {
			s.logger.Debug("reference object unchanged", zap.String("etag", etag))
			return s.doc, nil
		}
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &s.key})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.Name(), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Name(), err)
	}
	doc, err := reference.Parse(data)
	if err != nil {
		return nil, err
	}

	s.doc = doc
	s.etag = aws.ToString(out.ETag)
	return doc, nil
}

// Publish validates doc and uploads it to the source object
func (s *ReferenceSource) Publish(ctx context.Context, doc *reference.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reference document: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &s.key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", s.Name(), err)
	}

	s.mu.Lock()
	s.doc = nil
	s.etag = ""
	s.mu.Unlock()
	return nil
}
