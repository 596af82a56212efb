package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/voicemint/api/internal/client"
	"github.com/voicemint/api/internal/config"
	"github.com/voicemint/api/internal/model"
	"github.com/voicemint/api/internal/store"
)

// CleanupService reconciles remote provider voices against the database,
// independent of any single generation run. Individual voices failing to
// delete never abort a sweep; only a dead provider or database does.
type CleanupService struct {
	store    store.Store
	provider client.VoiceProvider
	cfg      config.CleanupConfig
}

func NewCleanupService(st store.Store, provider client.VoiceProvider, cfg config.CleanupConfig) *CleanupService {
	return &CleanupService{
		store:    st,
		provider: provider,
		cfg:      cfg,
	}
}

// Sweep runs both reconciliation passes and reports what was cleaned.
// Running it twice back-to-back with no intervening writes cleans nothing
// new on the second pass.
func (s *CleanupService) Sweep(ctx context.Context) (*model.SweepReport, error) {
	report := &model.SweepReport{}

	if err := s.sweepStaleProjects(ctx, report); err != nil {
		return report, err
	}
	if err := s.sweepOrphanVoices(ctx, report); err != nil {
		return report, err
	}

	log.Printf("[Sweep] done: %d project voices cleaned (%d failed), %d orphans deleted (%d failed)",
		report.ProjectsCleaned, report.ProjectsFailed, report.OrphansDeleted, report.OrphansFailed)
	return report, nil
}

// sweepStaleProjects handles pass A: projects a dead run left behind,
// either still holding a voice id after a terminal status or stuck in an
// in-flight status past the configured threshold. Any voice gets a delete
// attempt and the stored id is only cleared once the provider confirmed
// (404 counts as confirmed). Stuck in-flight projects are then moved to
// failed so the next generation claim can go through again.
func (s *CleanupService) sweepStaleProjects(ctx context.Context, report *model.SweepReport) error {
	projects, err := s.store.ListStaleProjects(ctx, s.cfg.StuckAfter)
	if err != nil {
		return fmt.Errorf("stale project query failed: %w", err)
	}

	for _, p := range projects {
		if p.RemoteVoiceID != nil {
			voiceID := *p.RemoteVoiceID
			if err := s.provider.DeleteVoice(ctx, voiceID); err != nil {
				log.Printf("[Sweep] delete of voice %s (project %s, status %s) failed: %v", voiceID, p.ID, p.Status, err)
				report.ProjectsFailed++
				continue
			}
			if err := s.store.ClearVoiceID(ctx, p.ID); err != nil {
				log.Printf("[Sweep] clearing voice id on project %s failed: %v", p.ID, err)
				report.ProjectsFailed++
				continue
			}
		}
		if p.Status.InFlight() {
			if err := s.store.MarkFailed(ctx, p.ID); err != nil {
				log.Printf("[Sweep] failing stuck project %s failed: %v", p.ID, err)
				report.ProjectsFailed++
				continue
			}
			log.Printf("[Sweep] project %s stuck in %s, moved to failed", p.ID, p.Status)
		}
		report.ProjectsCleaned++
	}
	return nil
}

// sweepOrphanVoices handles pass B: remote voices that follow this
// system's naming convention but are referenced by no project row at all.
func (s *CleanupService) sweepOrphanVoices(ctx context.Context, report *model.SweepReport) error {
	voices, err := s.provider.ListVoices(ctx)
	if err != nil {
		return fmt.Errorf("provider voice listing failed: %w", err)
	}

	referenced, err := s.store.ListReferencedVoiceIDs(ctx)
	if err != nil {
		return fmt.Errorf("referenced voice query failed: %w", err)
	}

	for _, voice := range voices {
		if !strings.HasPrefix(voice.Name, voiceNamePrefix) {
			continue
		}
		if _, ok := referenced[voice.ID]; ok {
			continue
		}
		if err := s.provider.DeleteVoice(ctx, voice.ID); err != nil {
			log.Printf("[Sweep] delete of orphan voice %s (%s) failed: %v", voice.ID, voice.Name, err)
			report.OrphansFailed++
			continue
		}
		report.OrphansDeleted++
	}
	return nil
}
