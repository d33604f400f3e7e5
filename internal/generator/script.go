package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maauso/charactercast-api/internal/job"
	"github.com/maauso/charactercast-api/internal/llm"
)

// Compile-time check that ScriptAdapter implements Adapter.
var _ Adapter = (*ScriptAdapter)(nil)

// ScriptAdapter writes the persona monologue with a text completion model.
type ScriptAdapter struct {
	client llm.Client
	opts   options
}

// NewScriptAdapter creates a script adapter backed by client.
func NewScriptAdapter(client llm.Client, opts ...Option) *ScriptAdapter {
	return &ScriptAdapter{client: client, opts: buildOptions(opts)}
}

// Generate returns the monologue text.
func (a *ScriptAdapter) Generate(ctx context.Context, j *job.Job) (string, error) {
	if strings.TrimSpace(j.Topic) == "" {
		return "", fail(StageScript, fmt.Errorf("%w: topic", ErrMissingInput))
	}

	prompt := ScriptPrompt(j.CharacterType, j.Attributes, j.Topic)
	text, err := a.client.Complete(ctx, prompt)
	if err != nil {
		return "", fail(StageScript, err)
	}

	a.opts.logger.Info("script generated",
		slog.String("job_id", j.ID),
		slog.Int("length", len(text)),
	)
	return text, nil
}
