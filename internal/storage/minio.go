package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/gogotex/gogotex/backend/content-service/internal/config"
	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SnapshotKey is the object key of an archived content version.
func SnapshotKey(version int) string {
	return fmt.Sprintf("content/versions/v%06d.json", version)
}

// EncodeSnapshot renders a version the way it is archived.
func EncodeSnapshot(doc *content.Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// SnapshotArchive keeps a JSON copy of every content version in a MinIO bucket.
type SnapshotArchive struct {
	client *minio.Client
	bucket string
}

// NewSnapshotArchive creates a MinIO client and ensures the bucket exists.
func NewSnapshotArchive(ctx context.Context, cfg config.MinIOConfig) (*SnapshotArchive, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	a := &SnapshotArchive{client: mc, bucket: cfg.Bucket}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, a.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return a, nil
}

// Archive uploads doc under SnapshotKey(doc.Version). It has the
// repository.VersionHook signature.
func (a *SnapshotArchive) Archive(ctx context.Context, doc *content.Document) error {
	b, err := EncodeSnapshot(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = a.client.PutObject(ctx, a.bucket, SnapshotKey(doc.Version), bytes.NewReader(b), int64(len(b)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("upload snapshot v%d: %w", doc.Version, err)
	}
	return nil
}

// Load reads an archived version back.
func (a *SnapshotArchive) Load(ctx context.Context, version int) (*content.Document, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, SnapshotKey(version), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}
	var doc content.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: snapshot v%d: %v", content.ErrMalformedContent, version, err)
	}
	return &doc, nil
}

// PresignedURL returns a time-limited download link for an archived version.
func (a *SnapshotArchive) PresignedURL(ctx context.Context, version int, expires time.Duration) (string, error) {
	u, err := a.client.PresignedGetObject(ctx, a.bucket, SnapshotKey(version), expires, make(url.Values))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
