package model

import "time"

// Default voice settings applied for fields the user never set. Explicitly
// stored zeros are kept as-is; only nil columns fall back to these.
const (
	DefaultStability       = 0.5
	DefaultSimilarityBoost = 0.75
	DefaultStyle           = 0.0
	DefaultSpeakerBoost    = true
)

// Project is one voice-cloning job owned by a user.
type Project struct {
	ID                string        `json:"id"`
	UserID            string        `json:"userId"`
	Name              string        `json:"name"`
	ScriptText        string        `json:"scriptText"`
	Stability         *float64      `json:"stability,omitempty"`
	SimilarityBoost   *float64      `json:"similarityBoost,omitempty"`
	Style             *float64      `json:"style,omitempty"`
	SpeakerBoost      *bool         `json:"speakerBoost,omitempty"`
	Status            ProjectStatus `json:"status"`
	TotalClips        int           `json:"totalClips"`
	ClipsUploaded     int           `json:"clipsUploaded"`
	RemoteVoiceID     *string       `json:"remoteVoiceId,omitempty"`
	GeneratedAudioURL *string       `json:"generatedAudioUrl,omitempty"`
	LastGenerationAt  *time.Time    `json:"lastGenerationAt,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// VoiceSettings is the synthesis parameter block sent to the provider.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Settings resolves the project's stored parameters into the wire block,
// substituting defaults only for fields that were never set.
func (p *Project) Settings() VoiceSettings {
	s := VoiceSettings{
		Stability:       DefaultStability,
		SimilarityBoost: DefaultSimilarityBoost,
		Style:           DefaultStyle,
		UseSpeakerBoost: DefaultSpeakerBoost,
	}
	if p.Stability != nil {
		s.Stability = *p.Stability
	}
	if p.SimilarityBoost != nil {
		s.SimilarityBoost = *p.SimilarityBoost
	}
	if p.Style != nil {
		s.Style = *p.Style
	}
	if p.SpeakerBoost != nil {
		s.UseSpeakerBoost = *p.SpeakerBoost
	}
	return s
}

// Sample is one recorded clip belonging to a project. The generation path
// only ever reads samples; recording/upload owns their creation.
type Sample struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"projectId"`
	ClipNumber      int       `json:"clipNumber"`
	StorageKey      string    `json:"storageKey"`
	DurationSeconds float64   `json:"durationSeconds"`
	CreatedAt       time.Time `json:"createdAt"`
}
