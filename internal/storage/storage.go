package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yelpcamp/apiserver/config"
	"github.com/yelpcamp/apiserver/types"
)

const imagePrefix = "images/"

// Image keys are never rewritten, so clients may cache them indefinitely.
const imageCacheControl = "public, max-age=31536000, immutable"

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage keeps uploaded images in an ObjectStorage backend and serves
// them from publicBaseURL.
type Storage struct {
	backend       ObjectStorage
	publicBaseURL string
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage, publicBaseURL string) *Storage {
	return &Storage{
		backend:       backend,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// New builds the backend selected by cfg.Backend and makes sure its bucket
// exists.
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Backend {
	case "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
	case "s3":
		backend, err = NewS3Client(ctx, cfg.S3)
	case "":
		return nil, errors.New("storage backend is required")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend, cfg.PublicBaseURL), nil
}

// Upload stores data under a fresh key and returns its public URL. The key
// keeps the lower-cased extension of filename.
func (s *Storage) Upload(ctx context.Context, filename string, data []byte) (types.Image, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	key := imagePrefix + uuid.NewString() + ext

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return types.Image{}, err
	}
	return types.Image{URL: s.URL(key), ID: key}, nil
}

// Destroy removes the image stored under id.
func (s *Storage) Destroy(ctx context.Context, id string) error {
	if !strings.HasPrefix(id, imagePrefix) {
		return fmt.Errorf("invalid image id %q", id)
	}
	return s.backend.Delete(ctx, id)
}

// URL returns the public address of key. Without a configured public base
// URL the path is bucket-relative.
func (s *Storage) URL(key string) string {
	if s.publicBaseURL == "" {
		return "/" + s.backend.Bucket() + "/" + key
	}
	return s.publicBaseURL + "/" + key
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string            `json:"Effect"`
	Principal map[string]string `json:"Principal"`
	Action    []string          `json:"Action"`
	Resource  []string          `json:"Resource"`
}

// publicReadPolicy is an S3 bucket policy letting anyone read objects under
// prefix, so image URLs work without signing.
func publicReadPolicy(bucket, prefix string) (string, error) {
	policy := bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string]string{"AWS": "*"},
			Action:    []string{"s3:GetObject"},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/" + prefix + "*"},
		}},
	}
	data, err := json.Marshal(policy)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
