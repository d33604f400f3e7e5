package generator

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/charactercast-api/internal/job"
	"github.com/maauso/charactercast-api/internal/storage"
)

// Compile-time check that ImageAdapter implements Adapter.
var _ Adapter = (*ImageAdapter)(nil)

// ImageAdapter renders the character image and stores it.
type ImageAdapter struct {
	renderer ImageRenderer
	store    storage.Storage
	opts     options
}

// NewImageAdapter creates an image adapter.
func NewImageAdapter(renderer ImageRenderer, store storage.Storage, opts ...Option) *ImageAdapter {
	return &ImageAdapter{renderer: renderer, store: store, opts: buildOptions(opts)}
}

// Generate returns the stored image reference.
func (a *ImageAdapter) Generate(ctx context.Context, j *job.Job) (string, error) {
	img, err := a.renderer.GenerateImage(ctx, ImagePrompt(j.CharacterType, j.Attributes))
	if err != nil {
		return "", fail(StageImage, err)
	}

	name := artifactName("images", a.opts.now(), j, "png")
	ref, err := a.store.Put(ctx, name, bytes.NewReader(img.Data))
	if err != nil {
		return "", fail(StageImage, fmt.Errorf("store image: %w", err))
	}

	a.opts.logger.Info("image generated",
		slog.String("job_id", j.ID),
		slog.String("ref", ref),
		slog.Int("bytes", len(img.Data)),
	)
	return ref, nil
}
