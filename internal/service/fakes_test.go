package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/voicemint/api/internal/apperr"
	"github.com/voicemint/api/internal/client"
	"github.com/voicemint/api/internal/model"
)

// fakeStore is an in-memory Store mirroring the Postgres semantics the
// orchestrator relies on (atomic claim, clear-on-complete).
type fakeStore struct {
	mu       sync.Mutex
	projects map[string]*model.Project
	samples  map[string][]model.Sample

	claimErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects: make(map[string]*model.Project),
		samples:  make(map[string][]model.Sample),
	}
}

func (s *fakeStore) putProject(p *model.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.projects[p.ID] = &cp
}

func (s *fakeStore) project(id string) *model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (s *fakeStore) CreateProject(ctx context.Context, p *model.Project) error {
	s.putProject(p)
	return nil
}

func (s *fakeStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	if p := s.project(id); p != nil {
		return p, nil
	}
	return nil, apperr.New(apperr.NotFound, "project not found")
}

func (s *fakeStore) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Project
	for _, p := range s.projects {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateScript(ctx context.Context, id, script string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return apperr.New(apperr.NotFound, "project not found")
	}
	p.ScriptText = script
	return nil
}

func (s *fakeStore) AddSample(ctx context.Context, sample *model.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[sample.ProjectID]
	if !ok {
		return apperr.New(apperr.NotFound, "project not found")
	}
	s.samples[sample.ProjectID] = append(s.samples[sample.ProjectID], *sample)
	p.ClipsUploaded++
	if p.Status == model.StatusDraft {
		p.Status = model.StatusRecording
	}
	return nil
}

func (s *fakeStore) ListSamples(ctx context.Context, projectID string, limit int) ([]model.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	samples := s.samples[projectID]
	if len(samples) > limit {
		samples = samples[:limit]
	}
	out := make([]model.Sample, len(samples))
	copy(out, samples)
	return out, nil
}

func (s *fakeStore) ClaimGeneration(ctx context.Context, projectID string, cooldown time.Duration) (bool, error) {
	if s.claimErr != nil {
		return false, s.claimErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return false, nil
	}
	if p.Status.InFlight() {
		return false, nil
	}
	if p.LastGenerationAt != nil && time.Since(*p.LastGenerationAt) < cooldown {
		return false, nil
	}
	now := time.Now()
	p.Status = model.StatusAnalyzing
	p.LastGenerationAt = &now
	p.UpdatedAt = now
	return true, nil
}

func (s *fakeStore) SetStatus(ctx context.Context, projectID string, status model.ProjectStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return apperr.New(apperr.NotFound, "project not found")
	}
	p.Status = status
	return nil
}

func (s *fakeStore) SetVoiceID(ctx context.Context, projectID, voiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return apperr.New(apperr.NotFound, "project not found")
	}
	p.RemoteVoiceID = &voiceID
	p.Status = model.StatusGenerating
	return nil
}

func (s *fakeStore) ClearVoiceID(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[projectID]; ok {
		p.RemoteVoiceID = nil
	}
	return nil
}

func (s *fakeStore) CompleteGeneration(ctx context.Context, projectID, audioURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return apperr.New(apperr.NotFound, "project not found")
	}
	p.Status = model.StatusCompleted
	p.GeneratedAudioURL = &audioURL
	p.RemoteVoiceID = nil
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[projectID]; ok {
		p.Status = model.StatusFailed
	}
	return nil
}

func (s *fakeStore) ListStaleProjects(ctx context.Context, stuckAfter time.Duration) ([]model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Project
	for _, p := range s.projects {
		switch {
		case p.RemoteVoiceID != nil && p.Status.Terminal():
			out = append(out, *p)
		case p.Status.InFlight() && time.Since(p.UpdatedAt) > stuckAfter:
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeStore) ListReferencedVoiceIDs(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]struct{})
	for _, p := range s.projects {
		if p.RemoteVoiceID != nil {
			ids[*p.RemoteVoiceID] = struct{}{}
		}
	}
	return ids, nil
}

// fakeProvider records provider traffic and serves scripted results.
type fakeProvider struct {
	mu sync.Mutex

	createCalls int
	synthCalls  int
	deleteCalls int

	createErr error
	synthErr  error
	deleteErr map[string]error
	listErr   error

	nextVoiceID  string
	audio        []byte
	voices       []client.VoiceInfo
	deletedIDs   []string
	lastSettings model.VoiceSettings
	lastText     string
	lastSamples  []client.VoiceSample
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		nextVoiceID: "voice-abc",
		audio:       []byte("mp3-bytes"),
		deleteErr:   make(map[string]error),
	}
}

func (p *fakeProvider) CreateVoice(ctx context.Context, name, description string, samples []client.VoiceSample) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	p.lastSamples = samples
	if p.createErr != nil {
		return "", p.createErr
	}
	return p.nextVoiceID, nil
}

func (p *fakeProvider) Synthesize(ctx context.Context, voiceID, text string, settings model.VoiceSettings) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.synthCalls++
	p.lastText = text
	p.lastSettings = settings
	if p.synthErr != nil {
		return nil, p.synthErr
	}
	return p.audio, nil
}

func (p *fakeProvider) DeleteVoice(ctx context.Context, voiceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleteCalls++
	if err := p.deleteErr[voiceID]; err != nil {
		return err
	}
	p.deletedIDs = append(p.deletedIDs, voiceID)
	for i, v := range p.voices {
		if v.ID == voiceID {
			p.voices = append(p.voices[:i], p.voices[i+1:]...)
			break
		}
	}
	return nil
}

func (p *fakeProvider) ListVoices(ctx context.Context) ([]client.VoiceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	out := make([]client.VoiceInfo, len(p.voices))
	copy(out, p.voices)
	return out, nil
}

func (p *fakeProvider) deleted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.deletedIDs))
	copy(out, p.deletedIDs)
	return out
}

// fakeStorage is an in-memory StorageClient.
type fakeStorage struct {
	mu          sync.Mutex
	objects     map[string][]byte
	downloadErr map[string]error
	uploadErr   error
	uploadedKey string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		objects:     make(map[string][]byte),
		downloadErr: make(map[string]error),
	}
}

func (s *fakeStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.objects[key] = data
	s.uploadedKey = key
	return s.GetPublicURL(key), nil
}

func (s *fakeStorage) Download(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.downloadErr[key]; err != nil {
		return nil, err
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, apperr.Newf(apperr.StorageFailed, "object %s not found", key)
	}
	return data, nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return s.GetPublicURL(key) + "?signed=1", nil
}

func (s *fakeStorage) GetPublicURL(key string) string {
	return fmt.Sprintf("https://cdn.test/%s", key)
}
