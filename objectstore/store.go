package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("object not found")

// Store keeps generated documents by key.
type Store interface {
	// Put writes data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get reads the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// SignedURL returns a time-limited download URL for key.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Backend string

const (
	BackendLocal Backend = "local"
	BackendGCS   Backend = "gcs"
	BackendS3    Backend = "s3"
)

type Config struct {
	Backend  Backend `json:"backend" yaml:"backend"`
	Dir      string  `json:"dir" yaml:"dir"`
	BaseURL  string  `json:"base_url" yaml:"base_url"`
	Secret   string  `json:"secret" yaml:"secret"`
	Bucket   string  `json:"bucket" yaml:"bucket"`
	Prefix   string  `json:"prefix" yaml:"prefix"`
	Region   string  `json:"region" yaml:"region"`
	Endpoint string  `json:"endpoint" yaml:"endpoint"`
}

// New builds the store selected by cfg.Backend. The local store is the default.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendLocal:
		dir := cfg.Dir
		if dir == "" {
			dir = "data"
		}
		return NewFileStore(dir, cfg.BaseURL, cfg.Secret)
	case BackendGCS:
		if cfg.Bucket == "" {
			return nil, errors.New("gcs storage requires a bucket")
		}
		return NewGCSStore(ctx, GCSStoreConfig{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
	case BackendS3:
		if cfg.Bucket == "" {
			return nil, errors.New("s3 storage requires a bucket")
		}
		return NewS3Store(ctx, S3StoreConfig{Bucket: cfg.Bucket, Region: cfg.Region, Endpoint: cfg.Endpoint, Prefix: cfg.Prefix})
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("empty object key")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return "", fmt.Errorf("invalid object key %q", key)
		}
	}
	return key, nil
}
