package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/maauso/charactercast-api/internal/cache"
	"github.com/maauso/charactercast-api/internal/hedra"
)

// AssetUploader uploads generation inputs once per distinct content.
// Concurrent uploads of the same content share one remote call.
type AssetUploader struct {
	store AssetStore
	cache cache.Cache
	group singleflight.Group
	opts  options
}

// NewAssetUploader creates an uploader that records remote asset ids in c.
func NewAssetUploader(store AssetStore, c cache.Cache, opts ...Option) *AssetUploader {
	return &AssetUploader{store: store, cache: c, opts: buildOptions(opts)}
}

// Fingerprint identifies content by declared type, SHA-256 digest and size.
func Fingerprint(t hedra.AssetType, data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s:%d", t, hex.EncodeToString(sum[:]), len(data))
}

// Upload returns the remote asset id for data, uploading only on a cache miss.
// Cache read and write failures are logged and never fail the upload.
func (u *AssetUploader) Upload(ctx context.Context, t hedra.AssetType, name string, data []byte) (string, error) {
	key := Fingerprint(t, data)
	if id, ok := u.lookup(ctx, key); ok {
		u.opts.logger.Debug("asset cache hit", slog.String("type", string(t)), slog.String("asset_id", id))
		return id, nil
	}

	v, err, _ := u.group.Do(key, func() (any, error) {
		if id, ok := u.lookup(ctx, key); ok {
			return id, nil
		}

		id, err := u.store.CreateAsset(ctx, t, name)
		if err != nil {
			return "", fmt.Errorf("create %s asset: %w", t, err)
		}
		if err := u.store.UploadAsset(ctx, id, t, name, data); err != nil {
			return "", fmt.Errorf("upload %s asset: %w", t, err)
		}

		if err := u.cache.Put(ctx, key, id); err != nil {
			u.opts.logger.Warn("asset cache write failed",
				slog.String("type", string(t)),
				slog.String("error", err.Error()),
			)
		}
		u.opts.logger.Info("asset uploaded", slog.String("type", string(t)), slog.String("asset_id", id))
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (u *AssetUploader) lookup(ctx context.Context, key string) (string, bool) {
	id, ok, err := u.cache.Get(ctx, key)
	if err != nil {
		u.opts.logger.Warn("asset cache read failed", slog.String("error", err.Error()))
		return "", false
	}
	return id, ok && id != ""
}
