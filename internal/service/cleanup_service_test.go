package service

import (
	"context"
	"testing"
	"time"

	"github.com/voicemint/api/internal/apperr"
	"github.com/voicemint/api/internal/client"
	"github.com/voicemint/api/internal/config"
	"github.com/voicemint/api/internal/model"
)

func testCleanupConfig() config.CleanupConfig {
	return config.CleanupConfig{
		StuckAfter: time.Hour,
		Schedule:   "@every 1h",
	}
}

func strPtr(s string) *string { return &s }

func TestSweep_CleansStaleProjects(t *testing.T) {
	st := newFakeStore()
	provider := newFakeProvider()

	// Terminal with a leftover voice id: the run died between delete and
	// clear, or the delete itself failed.
	st.putProject(&model.Project{
		ID:            "proj-failed",
		Status:        model.StatusFailed,
		RemoteVoiceID: strPtr("voice-failed"),
		UpdatedAt:     time.Now(),
	})
	// In-flight but untouched for longer than the stuck threshold.
	st.putProject(&model.Project{
		ID:            "proj-stuck",
		Status:        model.StatusGenerating,
		RemoteVoiceID: strPtr("voice-stuck"),
		UpdatedAt:     time.Now().Add(-2 * time.Hour),
	})
	// Healthy in-flight run, must not be touched.
	st.putProject(&model.Project{
		ID:            "proj-live",
		Status:        model.StatusGenerating,
		RemoteVoiceID: strPtr("voice-live"),
		UpdatedAt:     time.Now(),
	})

	svc := NewCleanupService(st, provider, testCleanupConfig())
	report, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if report.ProjectsCleaned != 2 || report.ProjectsFailed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if st.project("proj-failed").RemoteVoiceID != nil {
		t.Errorf("terminal project kept its voice id")
	}
	stuck := st.project("proj-stuck")
	if stuck.RemoteVoiceID != nil {
		t.Errorf("stuck project kept its voice id")
	}
	if stuck.Status != model.StatusFailed {
		t.Errorf("stuck project must be moved to failed, got %s", stuck.Status)
	}
	if st.project("proj-live").RemoteVoiceID == nil {
		t.Errorf("live in-flight project lost its voice id")
	}

	for _, id := range provider.deleted() {
		if id == "voice-live" {
			t.Errorf("live voice was deleted")
		}
	}
}

// A run that dies after the claim never executes its deferred cleanup, so
// the project sits in an in-flight status forever and every later claim is
// refused. The sweeper must unwedge it: fail the project, release its
// voice, and let the next trigger generate again.
func TestSweep_UnwedgesCrashedRun(t *testing.T) {
	svc, st, provider, _ := setupGeneration(t, 1)
	old := time.Now().Add(-2 * time.Hour)
	p := st.project("proj-1")
	p.Status = model.StatusGenerating
	p.RemoteVoiceID = strPtr("voice-dead")
	p.LastGenerationAt = &old
	p.UpdatedAt = old
	st.putProject(p)

	cleanup := NewCleanupService(st, provider, testCleanupConfig())
	report, err := cleanup.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if report.ProjectsCleaned != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	swept := st.project("proj-1")
	if swept.Status != model.StatusFailed || swept.RemoteVoiceID != nil {
		t.Fatalf("crashed run not unwedged: status=%s voice=%v", swept.Status, swept.RemoteVoiceID)
	}
	if got := provider.deleted(); len(got) != 1 || got[0] != "voice-dead" {
		t.Errorf("expected the dead run's voice deleted, got %v", got)
	}

	// The project must be generatable again once swept.
	resp, err := svc.Run(context.Background(), "user-1", "proj-1")
	if err != nil {
		t.Fatalf("generation after sweep failed: %v", err)
	}
	if !resp.Success {
		t.Errorf("expected a successful run after sweeping")
	}
}

func TestSweep_FailsStuckRunWithoutVoice(t *testing.T) {
	st := newFakeStore()
	provider := newFakeProvider()

	// Crashed between the claim and CreateVoice: in-flight, no voice id.
	st.putProject(&model.Project{
		ID:        "proj-early-crash",
		Status:    model.StatusAnalyzing,
		UpdatedAt: time.Now().Add(-2 * time.Hour),
	})

	svc := NewCleanupService(st, provider, testCleanupConfig())
	report, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if report.ProjectsCleaned != 1 || report.ProjectsFailed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if st.project("proj-early-crash").Status != model.StatusFailed {
		t.Errorf("stuck voiceless project must be moved to failed")
	}
	if provider.deleteCalls != 0 {
		t.Errorf("no voice to delete for an early crash, got %d delete calls", provider.deleteCalls)
	}
}

func TestSweep_DeletesOrphanVoices(t *testing.T) {
	st := newFakeStore()
	provider := newFakeProvider()

	st.putProject(&model.Project{
		ID:            "proj-1",
		Status:        model.StatusGenerating,
		RemoteVoiceID: strPtr("voice-referenced"),
		UpdatedAt:     time.Now(),
	})
	provider.voices = []client.VoiceInfo{
		{ID: "voice-referenced", Name: VoiceName("proj-1")},
		{ID: "voice-orphan", Name: VoiceName("proj-gone")},
		{ID: "voice-foreign", Name: "Rachel"},
	}

	svc := NewCleanupService(st, provider, testCleanupConfig())
	report, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if report.OrphansDeleted != 1 || report.OrphansFailed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	deleted := provider.deleted()
	if len(deleted) != 1 || deleted[0] != "voice-orphan" {
		t.Errorf("expected only voice-orphan deleted, got %v", deleted)
	}
}

func TestSweep_SecondPassIsNoOp(t *testing.T) {
	st := newFakeStore()
	provider := newFakeProvider()

	st.putProject(&model.Project{
		ID:            "proj-failed",
		Status:        model.StatusFailed,
		RemoteVoiceID: strPtr("voice-failed"),
		UpdatedAt:     time.Now(),
	})
	provider.voices = []client.VoiceInfo{
		{ID: "voice-failed", Name: VoiceName("proj-failed")},
		{ID: "voice-orphan", Name: VoiceName("proj-gone")},
	}

	svc := NewCleanupService(st, provider, testCleanupConfig())
	first, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	if first.ProjectsCleaned != 1 || first.OrphansDeleted != 1 {
		t.Fatalf("unexpected first report: %+v", first)
	}

	second, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if second.ProjectsCleaned != 0 || second.OrphansDeleted != 0 ||
		second.ProjectsFailed != 0 || second.OrphansFailed != 0 {
		t.Errorf("second sweep should clean nothing: %+v", second)
	}
}

func TestSweep_PerItemFailuresDoNotAbort(t *testing.T) {
	st := newFakeStore()
	provider := newFakeProvider()

	st.putProject(&model.Project{
		ID:            "proj-bad",
		Status:        model.StatusFailed,
		RemoteVoiceID: strPtr("voice-bad"),
		UpdatedAt:     time.Now(),
	})
	st.putProject(&model.Project{
		ID:            "proj-good",
		Status:        model.StatusFailed,
		RemoteVoiceID: strPtr("voice-good"),
		UpdatedAt:     time.Now(),
	})
	provider.deleteErr["voice-bad"] = apperr.New(apperr.ProviderUnavailable, "provider unavailable (status 503)")
	provider.voices = []client.VoiceInfo{
		{ID: "voice-orphan-bad", Name: VoiceName("proj-x")},
	}
	provider.deleteErr["voice-orphan-bad"] = apperr.New(apperr.ProviderUnavailable, "provider unavailable (status 503)")

	svc := NewCleanupService(st, provider, testCleanupConfig())
	report, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("per-item failures must not fail the sweep: %v", err)
	}

	if report.ProjectsCleaned != 1 || report.ProjectsFailed != 1 {
		t.Errorf("unexpected project counts: %+v", report)
	}
	if report.OrphansDeleted != 0 || report.OrphansFailed != 1 {
		t.Errorf("unexpected orphan counts: %+v", report)
	}
	if st.project("proj-bad").RemoteVoiceID == nil {
		t.Errorf("voice id must stay until the provider confirms the delete")
	}
	if st.project("proj-good").RemoteVoiceID != nil {
		t.Errorf("confirmed delete must clear the voice id")
	}
}

func TestSweep_ListFailureAborts(t *testing.T) {
	st := newFakeStore()
	provider := newFakeProvider()
	provider.listErr = apperr.New(apperr.ProviderUnavailable, "provider unavailable (status 503)")

	svc := NewCleanupService(st, provider, testCleanupConfig())
	if _, err := svc.Sweep(context.Background()); err == nil {
		t.Fatal("a failed voice listing must abort the sweep")
	}
}
