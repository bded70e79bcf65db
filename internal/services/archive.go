package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioArchive struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

func NewMinioArchive(endpoint string, accessKey string, secretKey string, bucket string, useSSL bool) (*MinioArchive, error) {
	if endpoint == "" {
		return nil, errors.New("minio endpoint is empty")
	}
	if bucket == "" {
		return nil, errors.New("minio bucket is empty")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioArchive{client: client, bucket: bucket, now: time.Now}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (a *MinioArchive) EnsureBucket(ctx context.Context) error {
	if a == nil || a.client == nil {
		return errors.New("minio archive is nil")
	}

	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}

	return nil
}

func (a *MinioArchive) Archive(ctx context.Context, upload Upload) (string, error) {
	if a == nil || a.client == nil {
		return "", errors.New("minio archive is nil")
	}

	key := ArchiveKey(a.now(), upload.Name)
	opts := minio.PutObjectOptions{
		ContentType:  upload.Type,
		UserMetadata: map[string]string{"filename": upload.Name},
	}
	if _, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(upload.Data), int64(len(upload.Data)), opts); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return key, nil
}

// ArchiveKey returns uploads/<yyyy>/<mm>/<uuid><ext>.
func ArchiveKey(at time.Time, name string) string {
	at = at.UTC()
	return fmt.Sprintf("uploads/%04d/%02d/%s%s", at.Year(), int(at.Month()), uuid.NewString(), strings.ToLower(path.Ext(name)))
}

type nopArchiver struct{}

func (nopArchiver) Archive(ctx context.Context, upload Upload) (string, error) {
	return "", nil
}
