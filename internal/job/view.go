package job

import (
	"time"

	"github.com/maauso/charactercast-api/internal/character"
)

// View is the read-only projection of a Job returned to clients.
// It omits the owner and any internal bookkeeping.
type View struct {
	ID            string               `json:"id"`
	CharacterType character.Type       `json:"character_type"`
	Attributes    character.Attributes `json:"character_attributes"`
	Topic         string               `json:"topic"`
	Status        Status               `json:"status"`
	Script        *string              `json:"script"`
	ImageURL      *string              `json:"image_url"`
	AudioURL      *string              `json:"audio_url"`
	VideoURL      *string              `json:"video_url"`
	ErrorMessage  *string              `json:"error_message"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// View returns the client projection of the job. Unset artifacts are null.
func (j *Job) View() View {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return View{
		ID:            j.ID,
		CharacterType: j.CharacterType,
		Attributes:    j.Attributes.Clone(),
		Topic:         j.Topic,
		Status:        j.Status,
		Script:        nullable(j.Script),
		ImageURL:      nullable(j.ImageURL),
		AudioURL:      nullable(j.AudioURL),
		VideoURL:      nullable(j.VideoURL),
		ErrorMessage:  nullable(j.ErrorMessage),
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

// IsTerminal reports whether the projected job has stopped changing.
func (v View) IsTerminal() bool {
	return v.Status.IsTerminal()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
