// Package storage uploads reduced sprites to an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrIncomplete is returned by Config.Validate when a required field is empty.
var ErrIncomplete = errors.New("incomplete storage configuration")

// Config holds the connection parameters of the bucket.
type Config struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`

	// Prefix is prepended to every object name, e.g. "sprites/".
	Prefix string `mapstructure:"prefix"`
}

// Validate checks that the fields needed to connect are set.
func (c Config) Validate() error {
	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.BucketName == "" {
		missing = append(missing, "bucket_name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// ObjectName returns the object key for a local file: the prefix joined with
// the file's base name, always with forward slashes.
func (c Config) ObjectName(localPath string) string {
	name := filepath.Base(localPath)
	prefix := strings.Trim(filepath.ToSlash(c.Prefix), "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Bucket is an S3-compatible storage backend using MinIO.
type Bucket struct {
	client *minio.Client
	cfg    Config
}

// New connects to the configured server. If the bucket does not exist, it is
// created.
func New(ctx context.Context, cfg Config) (*Bucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Bucket{client: client, cfg: cfg}, nil
}

// Publish uploads the PNG at localPath and returns its object name.
func (b *Bucket) Publish(ctx context.Context, localPath string) (string, error) {
	object := b.cfg.ObjectName(localPath)

	_, err := b.client.FPutObject(ctx, b.cfg.BucketName, object, localPath, minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", object, err)
	}
	return object, nil
}
