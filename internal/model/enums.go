package model

// Project lifecycle status
type ProjectStatus string

const (
	StatusDraft      ProjectStatus = "draft"
	StatusRecording  ProjectStatus = "recording"
	StatusAnalyzing  ProjectStatus = "analyzing"
	StatusTraining   ProjectStatus = "training"
	StatusGenerating ProjectStatus = "generating"
	StatusCompleted  ProjectStatus = "completed"
	StatusFailed     ProjectStatus = "failed"
)

var ValidStatuses = []ProjectStatus{
	StatusDraft, StatusRecording, StatusAnalyzing, StatusTraining,
	StatusGenerating, StatusCompleted, StatusFailed,
}

// InFlight reports whether a status marks a generation run in progress.
// Projects stuck in one of these states are eligible for sweeping once
// their updated_at is old enough.
func (s ProjectStatus) InFlight() bool {
	switch s {
	case StatusAnalyzing, StatusTraining, StatusGenerating:
		return true
	default:
		return false
	}
}

// Terminal reports whether a status is an end state of a run.
func (s ProjectStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
