package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voicemint/api/internal/apperr"
	"github.com/voicemint/api/internal/client"
	"github.com/voicemint/api/internal/model"
	"github.com/voicemint/api/internal/store"
)

// ProjectService owns the CRUD surface around projects and the sample
// intake path the recording studio posts clips to.
type ProjectService struct {
	store   store.Store
	storage client.StorageClient
}

func NewProjectService(st store.Store, storage client.StorageClient) *ProjectService {
	return &ProjectService{store: st, storage: storage}
}

// Create inserts a new draft project for the user.
func (s *ProjectService) Create(ctx context.Context, userID string, req *model.CreateProjectRequest) (*model.Project, error) {
	p := &model.Project{
		ID:              uuid.New().String(),
		UserID:          userID,
		Name:            req.Name,
		ScriptText:      req.ScriptText,
		Stability:       req.Stability,
		SimilarityBoost: req.SimilarityBoost,
		Style:           req.Style,
		SpeakerBoost:    req.SpeakerBoost,
		Status:          model.StatusDraft,
		TotalClips:      req.TotalClips,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return s.store.GetProject(ctx, p.ID)
}

// Get returns a project if the user owns it.
func (s *ProjectService) Get(ctx context.Context, userID, projectID string) (*model.Project, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, apperr.New(apperr.NotFound, "project not found")
	}
	return p, nil
}

// List returns the user's projects, newest first.
func (s *ProjectService) List(ctx context.Context, userID string) ([]model.Project, error) {
	return s.store.ListProjects(ctx, userID)
}

// UpdateScript replaces the project's script text.
func (s *ProjectService) UpdateScript(ctx context.Context, userID, projectID, script string) error {
	if _, err := s.Get(ctx, userID, projectID); err != nil {
		return err
	}
	return s.store.UpdateScript(ctx, projectID, script)
}

// AddSample stores an uploaded clip and registers its row. Storage keys
// are prefixed with the owning user so bucket policies can enforce
// owner-only access by path.
func (s *ProjectService) AddSample(ctx context.Context, userID, projectID string, clipNumber int, filename string, file io.Reader, duration float64) (*model.SampleUploadResponse, error) {
	p, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if clipNumber < 1 || clipNumber > p.TotalClips {
		return nil, apperr.Newf(apperr.InvalidInput, "clip number must be between 1 and %d", p.TotalClips)
	}

	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".webm"
	}
	key := fmt.Sprintf("%s/%s/samples/clip_%d%s", userID, projectID, clipNumber, ext)

	fileURL, err := s.storage.Upload(ctx, key, file, contentTypeForKey(key))
	if err != nil {
		return nil, err
	}

	sample := &model.Sample{
		ID:              uuid.New().String(),
		ProjectID:       projectID,
		ClipNumber:      clipNumber,
		StorageKey:      key,
		DurationSeconds: duration,
	}
	if err := s.store.AddSample(ctx, sample); err != nil {
		return nil, err
	}

	return &model.SampleUploadResponse{
		ID:         sample.ID,
		ClipNumber: clipNumber,
		StorageKey: key,
		FileURL:    fileURL,
		CreatedAt:  time.Now(),
	}, nil
}
