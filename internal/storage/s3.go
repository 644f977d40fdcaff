package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func LoadS3ConfigFromEnv() (S3Config, error) {
	cfg := S3Config{
		Endpoint:  strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		Region:    strings.TrimSpace(os.Getenv("S3_REGION")),
		Bucket:    strings.TrimSpace(os.Getenv("S3_BUCKET")),
		AccessKey: strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
	}
	useSSL := strings.TrimSpace(os.Getenv("S3_USE_SSL"))
	if useSSL == "" {
		cfg.UseSSL = false
	} else {
		b, err := strconv.ParseBool(useSSL)
		if err != nil {
			return S3Config{}, fmt.Errorf("invalid S3_USE_SSL: %w", err)
		}
		cfg.UseSSL = b
	}

	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return S3Config{}, errors.New("missing required S3 env: S3_ENDPOINT, S3_BUCKET, S3_ACCESS_KEY, S3_SECRET_KEY")
	}
	// Region can be empty for MinIO.
	return cfg, nil
}

// FileStore resolves stored file paths to client-fetchable URLs. Uploads are
// handled by the cloud module of the main application; this service only
// signs reads for message attachments.
type FileStore struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewFileStore(cfg S3Config) (*FileStore, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &FileStore{client: cl, bucket: cfg.Bucket, ttl: 1 * time.Hour}, nil
}

// PresignURL returns a time-limited GET URL for an object key.
func (s *FileStore) PresignURL(ctx context.Context, key string) (string, error) {
	if s == nil {
		return "", errors.New("file store not configured")
	}
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", errors.New("invalid object key")
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
