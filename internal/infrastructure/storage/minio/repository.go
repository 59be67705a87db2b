package minio

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/pkg/errors"
)

var ErrObjectNotFound = errors.New(errors.ErrCodeObjectNotFound, "object not found")

// ArtifactRepository stores exported workbooks and rendered maps in the
// artifact bucket.
type ArtifactRepository interface {
	PutArtifact(ctx context.Context, key string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Stat(ctx context.Context, key string) (*ArtifactInfo, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string, limit int) ([]ArtifactInfo, error)
}

type ArtifactInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

type artifactRepository struct {
	client MinIOAPI
	bucket string
	expiry time.Duration
	logger logging.Logger
}

func NewArtifactRepository(client *MinIOClient, log logging.Logger) ArtifactRepository {
	return &artifactRepository{
		client: client.GetClient(),
		bucket: client.config.Bucket,
		expiry: client.config.PresignExpiry,
		logger: log,
	}
}

// NewArtifactRepositoryWithAPI skips bucket preparation.
func NewArtifactRepositoryWithAPI(api MinIOAPI, bucket string, log logging.Logger) ArtifactRepository {
	return &artifactRepository{client: api, bucket: bucket, expiry: time.Hour, logger: log}
}

func (r *artifactRepository) PutArtifact(ctx context.Context, key string, data []byte, contentType string) error {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return errors.InvalidParam("artifact key is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := r.client.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to upload artifact").WithDetail(key)
	}
	r.logger.Debug("Stored artifact",
		logging.String("bucket", r.bucket),
		logging.String("key", key),
		logging.Int64("size", info.Size))
	return nil
}

func (r *artifactRepository) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = r.expiry
	}
	u, err := r.client.PresignedGetObject(ctx, r.bucket, strings.TrimPrefix(key, "/"), expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to presign artifact url").WithDetail(key)
	}
	return u.String(), nil
}

func (r *artifactRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.StatObject(ctx, r.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrCodeStorageError, "failed to stat artifact")
}

func (r *artifactRepository) Stat(ctx context.Context, key string) (*ArtifactInfo, error) {
	obj, err := r.client.StatObject(ctx, r.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to stat artifact")
	}
	info := toArtifactInfo(obj)
	return &info, nil
}

func (r *artifactRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.RemoveObject(ctx, r.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to delete artifact").WithDetail(key)
	}
	return nil
}

// List returns artifacts under prefix in key order.  limit <= 0 means all.
func (r *artifactRepository) List(ctx context.Context, prefix string, limit int) ([]ArtifactInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := []ArtifactInfo{}
	for obj := range r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "failed to list artifacts")
		}
		out = append(out, toArtifactInfo(obj))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func toArtifactInfo(obj minio.ObjectInfo) ArtifactInfo {
	return ArtifactInfo{
		Key:          obj.Key,
		Size:         obj.Size,
		ContentType:  obj.ContentType,
		ETag:         obj.ETag,
		LastModified: obj.LastModified,
	}
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

//Personal.AI order the ending
