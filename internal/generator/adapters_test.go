package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/charactercast-api/internal/character"
	"github.com/maauso/charactercast-api/internal/httpapi"
	"github.com/maauso/charactercast-api/internal/job"
	"github.com/maauso/charactercast-api/internal/llm"
	"github.com/maauso/charactercast-api/internal/openai"
	"github.com/maauso/charactercast-api/internal/storage"
)

var fixedNow = time.UnixMilli(1700000000000)

func fixedClock() time.Time { return fixedNow }

func newAnimalJob() *job.Job {
	return job.NewWithID("job-1", "owner-1", character.TypeAnimal,
		character.Attributes{"species": "Dog", "trait": "Playful"}, "space exploration")
}

func TestScriptAdapter_Generate(t *testing.T) {
	ctx := context.Background()
	client := &mockLLM{}
	adapter := NewScriptAdapter(client, WithLogger(discardLogger()))

	client.On("Complete", ctx, mock.MatchedBy(func(p llm.Prompt) bool {
		return p.MaxTokens == 500 && assert.ObjectsAreEqual(ScriptPrompt(character.TypeAnimal,
			character.Attributes{"species": "Dog", "trait": "Playful"}, "space exploration"), p)
	})).Return("Woof. Space is wild, man.", nil)

	got, err := adapter.Generate(ctx, newAnimalJob())
	require.NoError(t, err)
	assert.Equal(t, "Woof. Space is wild, man.", got)
	client.AssertExpectations(t)
}

func TestScriptAdapter_ProviderFailures(t *testing.T) {
	causes := []error{httpapi.ErrUnauthorized, httpapi.ErrRateLimited, llm.ErrEmptyResponse}
	for _, cause := range causes {
		t.Run(cause.Error(), func(t *testing.T) {
			client := &mockLLM{}
			client.On("Complete", mock.Anything, mock.Anything).Return("", cause)

			_, err := NewScriptAdapter(client).Generate(context.Background(), newAnimalJob())

			var ge *GenerationError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, StageScript, ge.Stage)
			assert.ErrorIs(t, err, cause)
		})
	}
}

func TestScriptAdapter_MissingTopic(t *testing.T) {
	client := &mockLLM{}
	j := newAnimalJob()
	j.Topic = " "

	_, err := NewScriptAdapter(client).Generate(context.Background(), j)
	assert.ErrorIs(t, err, ErrMissingInput)
	client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestImageAdapter_Generate(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	renderer := &mockRenderer{}
	adapter := NewImageAdapter(renderer, store, WithClock(fixedClock), WithLogger(discardLogger()))

	renderer.On("GenerateImage", ctx, mock.MatchedBy(func(p string) bool {
		return p == ImagePrompt(character.TypeAnimal, character.Attributes{"species": "Dog", "trait": "Playful"})
	})).Return(&openai.Image{Data: []byte("png-bytes")}, nil)

	ref, err := adapter.Generate(ctx, newAnimalJob())
	require.NoError(t, err)
	assert.Equal(t, "/uploads/images/job-1-1700000000000-animal.png", ref)

	data, err := storage.ReadAll(ctx, store, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	renderer.AssertExpectations(t)
}

func TestImageAdapter_JobsInSameMillisecondKeepOwnArtifacts(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	renderer := &mockRenderer{}
	adapter := NewImageAdapter(renderer, store, WithClock(fixedClock), WithLogger(discardLogger()))

	renderer.On("GenerateImage", ctx, mock.Anything).Return(&openai.Image{Data: []byte("first")}, nil).Once()
	renderer.On("GenerateImage", ctx, mock.Anything).Return(&openai.Image{Data: []byte("second")}, nil).Once()

	first := newAnimalJob()
	second := job.NewWithID("job-2", "owner-2", character.TypeAnimal,
		character.Attributes{"species": "Dog", "trait": "Playful"}, "space exploration")

	refA, err := adapter.Generate(ctx, first)
	require.NoError(t, err)
	refB, err := adapter.Generate(ctx, second)
	require.NoError(t, err)
	require.NotEqual(t, refA, refB)

	data, err := storage.ReadAll(ctx, store, refA)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)
}

func TestImageAdapter_NoImageData(t *testing.T) {
	renderer := &mockRenderer{}
	renderer.On("GenerateImage", mock.Anything, mock.Anything).Return(nil, openai.ErrNoImageData)

	_, err := NewImageAdapter(renderer, newTestStorage(t)).Generate(context.Background(), newAnimalJob())

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, StageImage, ge.Stage)
	assert.ErrorIs(t, err, openai.ErrNoImageData)
}

func TestAudioAdapter_Generate(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	synth := &mockSynth{}
	adapter := NewAudioAdapter(synth, store, WithClock(fixedClock), WithLogger(discardLogger()))

	j := newAnimalJob()
	j.Script = "Woof."
	synth.On("Synthesize", ctx, "XrExE9yKIg1WjnnlVkGX", "Woof.").Return([]byte("mp3"), nil)

	ref, err := adapter.Generate(ctx, j)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/audio/job-1-1700000000000-animal.mp3", ref)

	ok, err := store.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)
	synth.AssertExpectations(t)
}

func TestAudioAdapter_RequiresScript(t *testing.T) {
	synth := &mockSynth{}

	_, err := NewAudioAdapter(synth, newTestStorage(t)).Generate(context.Background(), newAnimalJob())
	assert.ErrorIs(t, err, ErrMissingInput)
	synth.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything, mock.Anything)
}

func TestAudioAdapter_ProviderFailure(t *testing.T) {
	synth := &mockSynth{}
	synth.On("Synthesize", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	j := newAnimalJob()
	j.Script = "Woof."
	_, err := NewAudioAdapter(synth, newTestStorage(t)).Generate(context.Background(), j)

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, StageAudio, ge.Stage)
	assert.Contains(t, err.Error(), "quota exceeded")
}
