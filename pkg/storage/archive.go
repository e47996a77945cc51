package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/tvet-apply/applicants-api/config"
	"github.com/tvet-apply/applicants-api/pkg/circuitbreaker"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
	"github.com/tvet-apply/applicants-api/pkg/retry"
	"go.uber.org/zap"
)

// XLSXContentType is the MIME type of uploaded and exported workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ObjectPutter is the subset of the S3 API the archive needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveClient stores import and export workbooks in an S3-compatible bucket
type ArchiveClient struct {
	client     ObjectPutter
	bucketName string
	breaker    *circuitbreaker.Breaker
	retryCfg   retry.Config
}

// NewArchiveClient builds a client from config. A custom endpoint switches to
// path-style addressing, which MinIO and most self-hosted stores expect.
func NewArchiveClient(cfg config.ArchiveConfig) (*ArchiveClient, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("archive storage is not configured")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := s3.Options{
		Region: region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	logger.Info("Archive storage client initialized",
		zap.String("bucket", cfg.BucketName),
		zap.String("endpoint", cfg.Endpoint),
		zap.String("region", region),
	)

	return NewArchiveClientWithAPI(s3.New(opts), cfg.BucketName), nil
}

// NewArchiveClientWithAPI wires an existing S3 API implementation
func NewArchiveClientWithAPI(api ObjectPutter, bucketName string) *ArchiveClient {
	return &ArchiveClient{
		client:     api,
		bucketName: bucketName,
		breaker:    circuitbreaker.New(archiveBreakerConfig()),
		retryCfg:   retry.ArchiveConfig(),
	}
}

// Put uploads body under key and returns the key
func (a *ArchiveClient) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	start := time.Now()
	operation := "putObject"

	err := retry.Do(ctx, a.retryCfg, "archive.put", func() error {
		return a.breaker.Run(func() error {
			_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
				Bucket:      aws.String(a.bucketName),
				Key:         aws.String(key),
				Body:        bytes.NewReader(body),
				ContentType: aws.String(contentType),
			})
			if isClientError(err) {
				return retry.Permanent(err)
			}
			return err
		})
	})

	duration := metrics.MeasureDuration(start)
	status := metrics.Outcome(err)
	metrics.StorageOperationDuration.WithLabelValues(operation, status).Observe(duration)
	metrics.StorageOperationTotal.WithLabelValues(operation, status).Inc()

	if err != nil {
		logger.LogStoreCall("archive", operation, status, duration,
			zap.Error(err),
			zap.String("key", key),
		)
		return "", fmt.Errorf("failed to archive %s: %w", key, err)
	}

	logger.LogStoreCall("archive", operation, status, duration,
		zap.String("key", key),
		zap.Int("size_bytes", len(body)),
	)
	return key, nil
}

// S3 error codes caused by bucket setup or credentials. Retrying them
// cannot succeed and they say nothing about the store's health.
var clientErrorCodes = map[string]bool{
	"AccessDenied":          true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"NoSuchBucket":          true,
	"InvalidBucketName":     true,
	"EntityTooLarge":        true,
}

func isClientError(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && clientErrorCodes[apiErr.ErrorCode()]
}

func archiveBreakerConfig() circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig("archive-storage")
	cfg.IgnoreError = isClientError
	return cfg
}

// ObjectKey builds "<prefix>/<yyyy>/<mm>/<dd>/<uuid>-<filename>"
func ObjectKey(prefix, filename string, now time.Time) string {
	name := sanitizeFilename(filename)
	if name == "" {
		name = "workbook.xlsx"
	}
	now = now.UTC()
	return path.Join(
		strings.Trim(prefix, "/"),
		now.Format("2006"), now.Format("01"), now.Format("02"),
		uuid.NewString()+"-"+name,
	)
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
