package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tvet-apply/applicants-api/config"
	"github.com/tvet-apply/applicants-api/pkg/retry"
)

type fakePutter struct {
	failures int
	err      error
	calls    int
	bucket   string
	key      string
	body     string
	ctype    string
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	if f.calls <= f.failures {
		if f.err != nil {
			return nil, f.err
		}
		return nil, errors.New("connection reset")
	}
	f.bucket = *in.Bucket
	f.key = *in.Key
	f.ctype = *in.ContentType
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func fastRetry(c *ArchiveClient) {
	c.retryCfg.InitialDelay = time.Millisecond
	c.retryCfg.MaxDelay = time.Millisecond
	c.retryCfg.Jitter = false
}

func TestArchiveClient_Put(t *testing.T) {
	api := &fakePutter{}
	client := NewArchiveClientWithAPI(api, "applicant-archive")

	key, err := client.Put(context.Background(), "imports/a.xlsx", []byte("data"), XLSXContentType)
	require.NoError(t, err)

	assert.Equal(t, "imports/a.xlsx", key)
	assert.Equal(t, "applicant-archive", api.bucket)
	assert.Equal(t, "data", api.body)
	assert.Equal(t, XLSXContentType, api.ctype)
}

func TestArchiveClient_PutRetriesTransientErrors(t *testing.T) {
	api := &fakePutter{failures: 2}
	client := NewArchiveClientWithAPI(api, "bucket")
	fastRetry(client)

	_, err := client.Put(context.Background(), "k", []byte("x"), XLSXContentType)
	require.NoError(t, err)
	assert.Equal(t, 3, api.calls)
	assert.Equal(t, "x", api.body)
}

func TestArchiveClient_PutGivesUp(t *testing.T) {
	api := &fakePutter{failures: 100}
	client := NewArchiveClientWithAPI(api, "bucket")
	fastRetry(client)
	client.retryCfg = retry.Config{
		MaxRetries:      1,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		Multiplier:      1,
		RetryableErrors: retry.IsRetryable,
	}

	_, err := client.Put(context.Background(), "k", []byte("x"), XLSXContentType)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to archive k")
	assert.Equal(t, 2, api.calls)
}

func TestArchiveClient_PutDoesNotRetryAccessDenied(t *testing.T) {
	api := &fakePutter{
		failures: 100,
		err:      &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"},
	}
	client := NewArchiveClientWithAPI(api, "bucket")
	fastRetry(client)

	_, err := client.Put(context.Background(), "k", []byte("x"), XLSXContentType)
	require.Error(t, err)
	assert.Equal(t, 1, api.calls)

	var apiErr smithy.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "AccessDenied", apiErr.ErrorCode())
	assert.False(t, client.breaker.Open())
}

func TestNewArchiveClient_RequiresConfig(t *testing.T) {
	_, err := NewArchiveClient(config.ArchiveConfig{BucketName: "b"})
	assert.Error(t, err)

	client, err := NewArchiveClient(config.ArchiveConfig{
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		BucketName:      "b",
		Endpoint:        "http://localhost:9000",
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2024, 9, 3, 23, 30, 0, 0, time.UTC)

	key := ObjectKey("/imports/", "forms 2024.xlsx", now)
	assert.True(t, strings.HasPrefix(key, "imports/2024/09/03/"), key)
	assert.True(t, strings.HasSuffix(key, "-forms_2024.xlsx"), key)

	key = ObjectKey("exports", "../../etc/passwd", now)
	assert.True(t, strings.HasSuffix(key, "-passwd"), key)
	assert.NotContains(t, key, "..")

	key = ObjectKey("exports", "", now)
	assert.True(t, strings.HasSuffix(key, "-workbook.xlsx"), key)
}
