package model

import "time"

// GenerateRequest triggers a generation run for one project.
type GenerateRequest struct {
	ProjectID string `json:"projectId" validate:"required,max=128"`
}

// GenerateResponse is returned once the run completed successfully.
type GenerateResponse struct {
	Success  bool   `json:"success"`
	AudioURL string `json:"audioUrl"`
}

// CreateProjectRequest creates a new voice-cloning project.
type CreateProjectRequest struct {
	Name            string   `json:"name" validate:"required,max=120"`
	ScriptText      string   `json:"scriptText" validate:"max=10000"`
	TotalClips      int      `json:"totalClips" validate:"required,min=1,max=50"`
	Stability       *float64 `json:"stability,omitempty" validate:"omitempty,min=0,max=1"`
	SimilarityBoost *float64 `json:"similarityBoost,omitempty" validate:"omitempty,min=0,max=1"`
	Style           *float64 `json:"style,omitempty" validate:"omitempty,min=0,max=1"`
	SpeakerBoost    *bool    `json:"speakerBoost,omitempty"`
}

// UpdateScriptRequest replaces a project's script text.
type UpdateScriptRequest struct {
	ScriptText string `json:"scriptText" validate:"required,max=10000"`
}

// SampleUploadResponse describes a stored clip after upload.
type SampleUploadResponse struct {
	ID         string    `json:"id"`
	ClipNumber int       `json:"clipNumber"`
	StorageKey string    `json:"storageKey"`
	FileURL    string    `json:"fileUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ScriptSuggestRequest asks for an AI-drafted reading script.
type ScriptSuggestRequest struct {
	Topic    string `json:"topic" validate:"required,max=300"`
	Tone     string `json:"tone,omitempty" validate:"omitempty,max=60"`
	Language string `json:"language,omitempty" validate:"omitempty,oneof=en tr fr de es"`
}

// ScriptSuggestResponse carries the drafted script.
type ScriptSuggestResponse struct {
	ScriptText string `json:"scriptText"`
}

// SweepReport summarizes one cleanup pass over remote voices.
type SweepReport struct {
	ProjectsCleaned int `json:"projectsCleaned"`
	ProjectsFailed  int `json:"projectsFailed"`
	OrphansDeleted  int `json:"orphansDeleted"`
	OrphansFailed   int `json:"orphansFailed"`
}
