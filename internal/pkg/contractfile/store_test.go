package contractfile

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/contracts/internal/pkg/env"
)

type fakeBucket struct {
	objects map[string]string
	keys    []string
	err     error
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentType:   aws.String("application/pdf"),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func TestOpen(t *testing.T) {
	bucket := &fakeBucket{objects: map[string]string{"contracts/4711.pdf": "%PDF-1.4"}}
	s := &Store{client: bucket, bucket: "files"}

	f, err := s.Open(context.Background(), "4711.pdf")
	require.NoError(t, err)
	defer f.Body.Close()
	body, err := io.ReadAll(f.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
	assert.Equal(t, "application/pdf", f.ContentType)
	assert.Equal(t, int64(8), f.Size)
	assert.Equal(t, []string{"contracts/4711.pdf"}, bucket.keys)
}

func TestOpenErrors(t *testing.T) {
	s := &Store{client: &fakeBucket{}, bucket: "files"}

	_, err := s.Open(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, name := range []string{"", "../secret", "a/b.pdf", ".hidden"} {
		_, err = s.Open(context.Background(), name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}

	failing := &Store{client: &fakeBucket{err: errors.New("timeout")}, bucket: "files"}
	_, err = failing.Open(context.Background(), "x.pdf")
	assert.ErrorContains(t, err, "timeout")
}

func TestDisabledStore(t *testing.T) {
	s, err := NewStore(context.Background(), &Config{})
	require.NoError(t, err)
	assert.False(t, s.Enabled())
	_, err = s.Open(context.Background(), "x.pdf")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestLoadConfig(t *testing.T) {
	env.Env = map[string]string{"CONTRACT_FILES_ENABLED": "true", "S3_ACCESS_KEY_ID": "id"}
	t.Cleanup(func() { env.Env = nil })
	t.Setenv("S3_SECRET_ACCESS_KEY", "")

	_, err := LoadConfig()
	assert.EqualError(t, err, "S3_SECRET_ACCESS_KEY is required when contract files are enabled")

	env.Env["S3_SECRET_ACCESS_KEY"] = "secret"
	env.Env["S3_BUCKET_NAME"] = "files"
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "files", cfg.BucketName)
}
