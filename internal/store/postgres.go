package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voicemint/api/internal/apperr"
	"github.com/voicemint/api/internal/model"
)

// Store is the persistence contract for projects and samples. The
// orchestrator and the sweeper only see this interface; tests substitute
// in-memory fakes.
type Store interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, userID string) ([]model.Project, error)
	UpdateScript(ctx context.Context, id, script string) error

	AddSample(ctx context.Context, s *model.Sample) error
	ListSamples(ctx context.Context, projectID string, limit int) ([]model.Sample, error)

	ClaimGeneration(ctx context.Context, projectID string, cooldown time.Duration) (bool, error)
	SetStatus(ctx context.Context, projectID string, status model.ProjectStatus) error
	SetVoiceID(ctx context.Context, projectID, voiceID string) error
	ClearVoiceID(ctx context.Context, projectID string) error
	CompleteGeneration(ctx context.Context, projectID, audioURL string) error
	MarkFailed(ctx context.Context, projectID string) error

	ListStaleProjects(ctx context.Context, stuckAfter time.Duration) ([]model.Project, error)
	ListReferencedVoiceIDs(ctx context.Context) (map[string]struct{}, error)
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const projectColumns = `id, user_id, name, script_text, stability, similarity_boost, style, speaker_boost,
	status, total_clips, clips_uploaded, remote_voice_id, generated_audio_url, last_generation_at,
	created_at, updated_at`

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.ScriptText, &p.Stability, &p.SimilarityBoost, &p.Style, &p.SpeakerBoost,
		&p.Status, &p.TotalClips, &p.ClipsUploaded, &p.RemoteVoiceID, &p.GeneratedAudioURL, &p.LastGenerationAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "project not found")
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	return &p, nil
}

// CreateProject inserts a new project in draft status.
func (s *PostgresStore) CreateProject(ctx context.Context, p *model.Project) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO projects (id, user_id, name, script_text, stability, similarity_boost, style, speaker_boost, status, total_clips)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.UserID, p.Name, p.ScriptText, p.Stability, p.SimilarityBoost, p.Style, p.SpeakerBoost, p.Status, p.TotalClips,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

func (s *PostgresStore) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *PostgresStore) UpdateScript(ctx context.Context, id, script string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE projects SET script_text = $2, updated_at = now() WHERE id = $1`, id, script)
	if err != nil {
		return fmt.Errorf("failed to update script: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "project not found")
	}
	return nil
}

// AddSample inserts a clip row and bumps the project's upload counter in
// one transaction. The first clip moves the project into recording.
func (s *PostgresStore) AddSample(ctx context.Context, sample *model.Sample) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO samples (id, project_id, clip_number, storage_key, duration_seconds)
		VALUES ($1, $2, $3, $4, $5)`,
		sample.ID, sample.ProjectID, sample.ClipNumber, sample.StorageKey, sample.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE projects
		SET clips_uploaded = clips_uploaded + 1,
		    status = CASE WHEN status = 'draft' THEN 'recording' ELSE status END,
		    updated_at = now()
		WHERE id = $1`,
		sample.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("failed to bump clip count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "project not found")
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListSamples(ctx context.Context, projectID string, limit int) ([]model.Sample, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, clip_number, storage_key, duration_seconds, created_at
		FROM samples WHERE project_id = $1 ORDER BY clip_number ASC LIMIT $2`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []model.Sample
	for rows.Next() {
		var sm model.Sample
		if err := rows.Scan(&sm.ID, &sm.ProjectID, &sm.ClipNumber, &sm.StorageKey, &sm.DurationSeconds, &sm.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// ClaimGeneration atomically starts a run: one conditional UPDATE both
// checks the cooldown and the not-already-running guard and stamps
// last_generation_at, so two near-simultaneous triggers for the same
// project cannot both pass. The stamp lands before any remote call, which
// keeps the cooldown enforced even if the process dies mid-run.
func (s *PostgresStore) ClaimGeneration(ctx context.Context, projectID string, cooldown time.Duration) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE projects
		SET status = 'analyzing', last_generation_at = now(), updated_at = now()
		WHERE id = $1
		  AND status NOT IN ('analyzing', 'training', 'generating')
		  AND (last_generation_at IS NULL OR last_generation_at <= now() - $2::interval)`,
		projectID, cooldown,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim generation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, projectID string, status model.ProjectStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE projects SET status = $2, updated_at = now() WHERE id = $1`, projectID, status)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "project not found")
	}
	return nil
}

// SetVoiceID persists the remote voice handle and moves the project into
// generating. The stored id is what every later cleanup path keys off.
func (s *PostgresStore) SetVoiceID(ctx context.Context, projectID, voiceID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE projects SET remote_voice_id = $2, status = 'generating', updated_at = now() WHERE id = $1`,
		projectID, voiceID,
	)
	if err != nil {
		return fmt.Errorf("failed to set voice id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "project not found")
	}
	return nil
}

func (s *PostgresStore) ClearVoiceID(ctx context.Context, projectID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE projects SET remote_voice_id = NULL, updated_at = now() WHERE id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("failed to clear voice id: %w", err)
	}
	return nil
}

// CompleteGeneration finalizes a successful run: artifact URL set, status
// completed, voice id cleared in the same statement so the sweeper never
// sees a completed project still holding a handle.
func (s *PostgresStore) CompleteGeneration(ctx context.Context, projectID, audioURL string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE projects
		SET status = 'completed', generated_audio_url = $2, remote_voice_id = NULL, updated_at = now()
		WHERE id = $1`,
		projectID, audioURL,
	)
	if err != nil {
		return fmt.Errorf("failed to complete generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "project not found")
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, projectID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE projects SET status = 'failed', updated_at = now() WHERE id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("failed to mark failed: %w", err)
	}
	return nil
}

// ListStaleProjects returns projects a dead run left behind: any project
// still holding a remote voice id in a terminal state, plus any project
// stuck in an in-flight status past stuckAfter with or without a voice id.
// A run that crashed before SetVoiceID leaves no voice to delete but still
// wedges the status, so the in-flight branch must not require a voice id.
func (s *PostgresStore) ListStaleProjects(ctx context.Context, stuckAfter time.Duration) ([]model.Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE (remote_voice_id IS NOT NULL AND status IN ('failed', 'completed'))
		   OR (status IN ('analyzing', 'training', 'generating') AND updated_at < now() - $1::interval)`,
		stuckAfter,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *PostgresStore) ListReferencedVoiceIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT remote_voice_id FROM projects WHERE remote_voice_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query voice ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan voice id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}
