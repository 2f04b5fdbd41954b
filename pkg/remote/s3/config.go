// Package s3 implements pkg/remote.Store against an S3-compatible object
// store: one object per block (key = content address), one object per
// session (key = sessions/<token>/<folder>/<name>), one JSON object per
// folder under folders/<token>/, and a small JSON "account" object per
// token holding the wrapped keyset.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func bytesReader(b []byte) io.ReadSeeker {
	return bytes.NewReader(b)
}

// Config holds configuration for the S3-backed remote store.
type Config struct {
	// Bucket is the S3 bucket name.
	Bucket string

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible services).
	Endpoint string

	// KeyPrefix is prepended to every object key.
	KeyPrefix string

	// ForcePathStyle forces path-style addressing (required for MinIO and
	// similar S3-compatible services).
	ForcePathStyle bool
}

// Store is an S3-backed implementation of remote.Store.
type Store struct {
	client *s3.Client
	bucket string
	prefix string

	mu sync.Mutex
	// pendingSessions holds session names registered (via RegisterSession)
	// but not yet committed (via FinishSession), keyed by "token/folderID".
	pendingSessions map[string]string
}

// New creates a Store from an existing S3 client.
func New(client *s3.Client, cfg Config) *Store {
	return &Store{
		client:          client,
		bucket:          cfg.Bucket,
		prefix:          cfg.KeyPrefix,
		pendingSessions: make(map[string]string),
	}
}

// NewFromConfig builds an S3 client from cfg and returns a Store using it.
func NewFromConfig(ctx context.Context, cfg Config) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return New(client, cfg), nil
}

// blockKey returns the object key for a block's hex content address.
func (s *Store) blockKey(hmacHex string) string {
	return s.prefix + "blocks/" + hmacHex
}

// sessionKey returns the object key for a named session in a folder.
func (s *Store) sessionKey(folderID, name string) string {
	return s.prefix + "sessions/" + folderID + "/" + name
}

// accountKey returns the object key for an account's bookkeeping blob.
func (s *Store) accountKey(token string) string {
	return s.prefix + "accounts/" + token
}
