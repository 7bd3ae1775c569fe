package incidents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"vigil-live-go/internal/config"
	"vigil-live-go/internal/helpers"
	"vigil-live-go/internal/models"
)

// ObjectStore is the subset of the MinIO client the archive uses
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// SnapshotArchive stores the annotated frame of each confirmed incident
type SnapshotArchive struct {
	store  ObjectStore
	bucket string
}

// NewMinioArchive connects to MinIO and makes sure the bucket exists
func NewMinioArchive(ctx context.Context, cfg *config.Config) (*SnapshotArchive, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinioBucket, err)
		}
		log.Info().Str("bucket", cfg.MinioBucket).Msg("Created snapshot bucket")
	}

	return NewSnapshotArchive(client, cfg.MinioBucket), nil
}

func NewSnapshotArchive(store ObjectStore, bucket string) *SnapshotArchive {
	return &SnapshotArchive{store: store, bucket: bucket}
}

// ObjectName is where the snapshot of alert is stored
func ObjectName(alert models.Alert) string {
	return fmt.Sprintf("%s/%d.jpg", alert.Mode, alert.ID)
}

func (a *SnapshotArchive) Record(ctx context.Context, alert models.Alert) error {
	data, mediaType, err := helpers.DecodeDataURL(alert.Image)
	if err != nil {
		return fmt.Errorf("snapshot of alert %d: %w", alert.ID, err)
	}

	object := ObjectName(alert)
	_, err = a.store.PutObject(ctx, a.bucket, object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType: mediaType,
			UserMetadata: map[string]string{
				"detection-mode": string(alert.Mode),
				"created-at":     alert.CreatedAt.UTC().Format(time.RFC3339),
			},
		})
	if err != nil {
		return fmt.Errorf("upload %s: %w", object, err)
	}

	log.Debug().Str("bucket", a.bucket).Str("object", object).Int("size", len(data)).Msg("Snapshot archived")
	return nil
}
