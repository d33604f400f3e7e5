package generator

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maauso/charactercast-api/internal/job"
	"github.com/maauso/charactercast-api/internal/storage"
)

// Compile-time check that AudioAdapter implements Adapter.
var _ Adapter = (*AudioAdapter)(nil)

// AudioAdapter speaks the script with a persona voice and stores the track.
type AudioAdapter struct {
	synth SpeechSynthesizer
	store storage.Storage
	opts  options
}

// NewAudioAdapter creates an audio adapter.
func NewAudioAdapter(synth SpeechSynthesizer, store storage.Storage, opts ...Option) *AudioAdapter {
	return &AudioAdapter{synth: synth, store: store, opts: buildOptions(opts)}
}

// Generate returns the stored audio reference.
func (a *AudioAdapter) Generate(ctx context.Context, j *job.Job) (string, error) {
	if strings.TrimSpace(j.Script) == "" {
		return "", fail(StageAudio, fmt.Errorf("%w: script", ErrMissingInput))
	}

	voice := SelectVoice(j.CharacterType, j.Attributes)
	audio, err := a.synth.Synthesize(ctx, voice, j.Script)
	if err != nil {
		return "", fail(StageAudio, err)
	}

	name := artifactName("audio", a.opts.now(), j, "mp3")
	ref, err := a.store.Put(ctx, name, bytes.NewReader(audio))
	if err != nil {
		return "", fail(StageAudio, fmt.Errorf("store audio: %w", err))
	}

	a.opts.logger.Info("audio generated",
		slog.String("job_id", j.ID),
		slog.String("voice", voice),
		slog.String("ref", ref),
	)
	return ref, nil
}
