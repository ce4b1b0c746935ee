package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint   string
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	PublicBase string // optional URL prefix used instead of the endpoint, e.g. a CDN
}

// Store keeps uploaded screenshots in an S3-compatible bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	publicBase string
	now        func() time.Time
}

// New connects to MinIO and makes sure the bucket exists
func New(ctx context.Context, cfg Config) (*Store, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, err
		}
	}

	base := strings.TrimSuffix(cfg.PublicBase, "/")
	if base == "" {
		u := cli.EndpointURL()
		base = fmt.Sprintf("%s://%s/%s", u.Scheme, u.Host, cfg.Bucket)
	}
	return &Store{client: cli, bucketName: cfg.Bucket, publicBase: base, now: time.Now}, nil
}

// PutImage implements analysis.ImageStore.
func (s *Store) PutImage(ctx context.Context, data []byte, mime string) (string, error) {
	key := objectKey(s.now(), uuid.NewString(), mime)
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mime,
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	// public URL; the bucket policy decides whether it is readable anonymously
	return s.publicBase + "/" + key, nil
}

func objectKey(at time.Time, id, mime string) string {
	return fmt.Sprintf("screenshots/%s/%s%s", at.UTC().Format("2006/01/02"), id, extension(mime))
}

func extension(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ".bin"
}
