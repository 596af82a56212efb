package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/voicemint/api/internal/apperr"
	"github.com/voicemint/api/internal/client"
	"github.com/voicemint/api/internal/config"
	"github.com/voicemint/api/internal/model"
	"github.com/voicemint/api/internal/retry"
	"github.com/voicemint/api/internal/store"
)

const (
	maxProjectIDLen   = 128
	voiceNamePrefix   = "Voice_"
	releaseTimeout    = 30 * time.Second
	artifactObjectKey = "generated.mp3"
)

// VoiceName is the provider-side name for a project's cloned voice. The
// sweeper relies on this convention to recognize orphans it owns.
func VoiceName(projectID string) string {
	return voiceNamePrefix + projectID
}

// GenerationService drives a project through the voice-clone pipeline:
// claim the run, assemble samples, create a remote voice, synthesize the
// script, persist the artifact, and release the remote voice on every exit.
type GenerationService struct {
	store    store.Store
	provider client.VoiceProvider
	storage  client.StorageClient
	loader   *SampleLoader
	cfg      config.GenerationConfig
}

func NewGenerationService(st store.Store, provider client.VoiceProvider, storage client.StorageClient, loader *SampleLoader, cfg config.GenerationConfig) *GenerationService {
	return &GenerationService{
		store:    st,
		provider: provider,
		storage:  storage,
		loader:   loader,
		cfg:      cfg,
	}
}

// Run executes one generation for the given project. Validation and the
// cooldown pre-check happen before any state mutation or provider call;
// everything after the claim marks the project failed on error.
func (s *GenerationService) Run(ctx context.Context, userID, projectID string) (*model.GenerateResponse, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" || len(projectID) > maxProjectIDLen {
		return nil, apperr.New(apperr.InvalidInput, "invalid project id")
	}

	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if userID != "" && p.UserID != userID {
		// Hide other users' projects rather than confirming they exist.
		return nil, apperr.New(apperr.NotFound, "project not found")
	}

	// Mutation-free cooldown pre-check so the caller learns the remaining
	// wait; the claim below re-checks atomically.
	if p.LastGenerationAt != nil {
		if elapsed := time.Since(*p.LastGenerationAt); elapsed < s.cfg.Cooldown {
			remaining := int((s.cfg.Cooldown - elapsed).Seconds()) + 1
			return nil, apperr.Newf(apperr.RateLimited, "generation cooldown active, retry in %ds", remaining)
		}
	}

	if err := validateForGeneration(p, s.cfg.MaxScriptChars); err != nil {
		return nil, err
	}

	samples, err := s.store.ListSamples(ctx, projectID, s.cfg.MaxSamples)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, apperr.New(apperr.NotFound, "project has no samples")
	}

	claimed, err := s.store.ClaimGeneration(ctx, projectID, s.cfg.Cooldown)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, apperr.New(apperr.RateLimited, "a generation for this project is already running or cooling down")
	}

	log.Printf("[Generate] project %s: run claimed (%d sample rows)", projectID, len(samples))

	audioURL, err := s.generate(ctx, p, samples)
	if err != nil {
		log.Printf("[Generate] project %s: run failed: %v", projectID, err)
		return nil, err
	}

	log.Printf("[Generate] project %s: completed, artifact at %s", projectID, audioURL)
	return &model.GenerateResponse{Success: true, AudioURL: audioURL}, nil
}

// generate is the provider-facing half of the pipeline. The deferred block
// is the single cleanup path: on any error the project is marked failed,
// and a voice created by this run gets exactly one delete attempt before
// its stored id is cleared no matter how the delete went.
func (s *GenerationService) generate(ctx context.Context, p *model.Project, samples []model.Sample) (audioURL string, err error) {
	voiceID := ""
	defer func() {
		if err == nil {
			return
		}
		// The request context may already be dead; cleanup gets its own.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if markErr := s.store.MarkFailed(cleanupCtx, p.ID); markErr != nil {
			log.Printf("[Generate] project %s: failed to mark failed: %v", p.ID, markErr)
		}
		if voiceID != "" {
			s.releaseVoice(cleanupCtx, p.ID, voiceID)
			if clearErr := s.store.ClearVoiceID(cleanupCtx, p.ID); clearErr != nil {
				log.Printf("[Generate] project %s: failed to clear voice id: %v", p.ID, clearErr)
			}
		}
	}()

	blobs, err := s.loader.Load(ctx, samples)
	if err != nil {
		return "", err
	}

	if err = s.store.SetStatus(ctx, p.ID, model.StatusTraining); err != nil {
		return "", err
	}

	retryCfg := retry.Config{
		MaxAttempts:  s.cfg.RetryMaxAttempts,
		InitialDelay: s.cfg.RetryInitialDelay,
	}

	createdID, err := retry.Do(ctx, retryCfg, "create voice", func(ctx context.Context) (string, error) {
		return s.provider.CreateVoice(ctx, VoiceName(p.ID), fmt.Sprintf("Cloned voice for %q", p.Name), blobs)
	})
	if err != nil {
		return "", err
	}
	voiceID = createdID

	// Persist the handle before synthesis: if anything after this point
	// dies without cleanup, the sweeper can still find and delete it.
	if err = s.store.SetVoiceID(ctx, p.ID, voiceID); err != nil {
		return "", err
	}

	settings := p.Settings()
	audio, err := retry.Do(ctx, retryCfg, "synthesize", func(ctx context.Context) ([]byte, error) {
		return s.provider.Synthesize(ctx, voiceID, strings.TrimSpace(p.ScriptText), settings)
	})
	if err != nil {
		return "", err
	}
	if len(audio) == 0 {
		return "", apperr.New(apperr.EmptyResult, "provider returned empty audio")
	}

	key := fmt.Sprintf("%s/%s/%s", p.UserID, p.ID, artifactObjectKey)
	audioURL, err = s.storage.Upload(ctx, key, bytes.NewReader(audio), "audio/mpeg")
	if err != nil {
		return "", err
	}

	// Completion clears the stored voice id; from here the remote handle is
	// release-only and a failed delete is the sweeper's problem.
	if err = s.store.CompleteGeneration(ctx, p.ID, audioURL); err != nil {
		return "", err
	}
	s.releaseVoice(ctx, p.ID, voiceID)

	return audioURL, nil
}

// releaseVoice deletes the remote voice best-effort. Failures are logged
// only: the delete is never worth failing a finished run over, and the
// sweeper reconciles whatever is left behind.
func (s *GenerationService) releaseVoice(ctx context.Context, projectID, voiceID string) {
	delCtx, cancel := context.WithTimeout(ctx, releaseTimeout)
	defer cancel()

	if err := s.provider.DeleteVoice(delCtx, voiceID); err != nil {
		log.Printf("[Generate] project %s: best-effort delete of voice %s failed: %v", projectID, voiceID, err)
	}
}

// validateForGeneration checks the domain invariants that must hold before
// any state is touched: parameters in range when set, script present and
// bounded.
func validateForGeneration(p *model.Project, maxScriptChars int) error {
	params := []struct {
		name  string
		value *float64
	}{
		{"stability", p.Stability},
		{"similarity_boost", p.SimilarityBoost},
		{"style", p.Style},
	}
	for _, param := range params {
		if param.value != nil && (*param.value < 0 || *param.value > 1) {
			return apperr.Newf(apperr.InvalidInput, "%s must be between 0 and 1, got %v", param.name, *param.value)
		}
	}

	script := strings.TrimSpace(p.ScriptText)
	if script == "" {
		return apperr.New(apperr.InvalidInput, "script text is empty")
	}
	if utf8.RuneCountInString(script) > maxScriptChars {
		return apperr.Newf(apperr.InvalidInput, "script text exceeds %d characters", maxScriptChars)
	}
	return nil
}
