// Package contractfile serves scanned contract documents from S3-compatible
// object storage.
package contractfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"
)

var (
	ErrDisabled    = errors.New("contract files are disabled")
	ErrNotFound    = errors.New("contract file not found")
	ErrInvalidName = errors.New("invalid contract file name")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,199}$`)

// objectGetter is the part of the S3 client the store needs.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// File is an open contract file. The caller closes Body.
type File struct {
	Name        string
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Store reads contract files. A Store built from a disabled config answers
// every Open with ErrDisabled.
type Store struct {
	client objectGetter
	bucket string
}

// NewStore connects to the configured bucket.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if !cfg.Enabled {
		return &Store{}, nil
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})
	log.Infof("[ContractFile] Serving contract files from bucket %s", cfg.BucketName)
	return &Store{client: client, bucket: cfg.BucketName}, nil
}

// Enabled reports whether the store is backed by a bucket.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Open streams the named contract file.
func (s *Store) Open(ctx context.Context, name string) (*File, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	if !namePattern.MatchString(name) || name == "." || name == ".." {
		return nil, ErrInvalidName
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ObjectKey(name)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		log.Errorf("[ContractFile] Failed to read %s: %v", name, err)
		return nil, fmt.Errorf("failed to get contract file %s: %w", name, err)
	}

	f := &File{
		Name:        name,
		Body:        out.Body,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}
	if f.ContentType == "" {
		f.ContentType = "application/octet-stream"
	}
	return f, nil
}
