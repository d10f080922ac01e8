package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voiceletter/internal/model"
)

// Postgres is the durable backend.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const profileColumns = `
	id, owner_id, name, tones, formality, detail_level, sentence_style,
	vocabulary_level, paragraph_pattern, common_phrases, avoid_phrases,
	uses_emojis, uses_questions, uses_anecdotes, uses_statistics, uses_humor,
	writing_samples, avg_sentence_length, voice_prompt, system_prompt, status,
	total_generations, avg_rating, approved_at, last_used_at, created_at, updated_at`

const generationColumns = `
	id, owner_id, profile_id, source_kind, source_value, raw_request, status,
	execution_ref, error_message, articles, export_folder_url, export_files,
	execution_time_seconds, total_word_count, cost_estimate, created_at,
	started_at, completed_at, updated_at`

func (s *Postgres) CreateProfile(ctx context.Context, p *model.VoiceProfile) error {
	tones, err := json.Marshal(p.Tones)
	if err != nil {
		return fmt.Errorf("failed to marshal tones: %w", err)
	}
	common, err := json.Marshal(p.CommonPhrases)
	if err != nil {
		return fmt.Errorf("failed to marshal common phrases: %w", err)
	}
	avoid, err := json.Marshal(p.AvoidPhrases)
	if err != nil {
		return fmt.Errorf("failed to marshal avoid phrases: %w", err)
	}
	samples, err := json.Marshal(p.WritingSamples)
	if err != nil {
		return fmt.Errorf("failed to marshal writing samples: %w", err)
	}

	query := `
		INSERT INTO voice_profiles (
			id, owner_id, name, tones, formality, detail_level, sentence_style,
			vocabulary_level, paragraph_pattern, common_phrases, avoid_phrases,
			uses_emojis, uses_questions, uses_anecdotes, uses_statistics, uses_humor,
			writing_samples, avg_sentence_length, voice_prompt, system_prompt, status,
			total_generations, avg_rating, approved_at, last_used_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27
		)
	`
	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Name, tones, p.Formality, p.DetailLevel, p.SentenceStyle,
		p.VocabularyLevel, p.ParagraphPattern, common, avoid,
		p.UsesEmojis, p.UsesQuestions, p.UsesAnecdotes, p.UsesStatistics, p.UsesHumor,
		samples, p.AvgSentenceLength, p.VoicePrompt, p.SystemPrompt, p.Status,
		p.TotalGenerations, p.AvgRating, p.ApprovedAt, p.LastUsedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create voice profile: %w", err)
	}
	return nil
}

func (s *Postgres) GetProfile(ctx context.Context, id uuid.UUID) (*model.VoiceProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM voice_profiles WHERE id = $1`
	return scanProfile(s.db.QueryRowContext(ctx, query, id))
}

func (s *Postgres) GetProfileOwned(ctx context.Context, id, ownerID uuid.UUID) (*model.VoiceProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM voice_profiles WHERE id = $1 AND owner_id = $2`
	return scanProfile(s.db.QueryRowContext(ctx, query, id, ownerID))
}

func (s *Postgres) ListProfiles(ctx context.Context, ownerID uuid.UUID) ([]model.VoiceProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM voice_profiles WHERE owner_id = $1 ORDER BY created_at DESC`
	return s.queryProfiles(ctx, query, ownerID)
}

func (s *Postgres) ListReadyProfiles(ctx context.Context, ownerID uuid.UUID) ([]model.VoiceProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM voice_profiles
		WHERE owner_id = $1 AND status IN ($2, $3)
		ORDER BY last_used_at DESC NULLS LAST, created_at DESC`
	return s.queryProfiles(ctx, query, ownerID, model.ProfileStatusReady, model.ProfileStatusApproved)
}

func (s *Postgres) queryProfiles(ctx context.Context, query string, args ...interface{}) ([]model.VoiceProfile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query voice profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.VoiceProfile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voice profiles: %w", err)
	}
	return profiles, nil
}

func (s *Postgres) UpdateProfile(ctx context.Context, id, ownerID uuid.UUID, upd ProfileUpdate) (*model.VoiceProfile, error) {
	tones, err := marshalIfSet(upd.Tones)
	if err != nil {
		return nil, err
	}
	common, err := marshalIfSet(upd.CommonPhrases)
	if err != nil {
		return nil, err
	}
	avoid, err := marshalIfSet(upd.AvoidPhrases)
	if err != nil {
		return nil, err
	}
	samples, err := marshalIfSet(upd.WritingSamples)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE voice_profiles SET
			name = COALESCE($1, name),
			tones = COALESCE($2::jsonb, tones),
			formality = COALESCE($3, formality),
			detail_level = COALESCE($4, detail_level),
			sentence_style = COALESCE($5, sentence_style),
			vocabulary_level = COALESCE($6, vocabulary_level),
			paragraph_pattern = COALESCE($7, paragraph_pattern),
			common_phrases = COALESCE($8::jsonb, common_phrases),
			avoid_phrases = COALESCE($9::jsonb, avoid_phrases),
			uses_emojis = COALESCE($10, uses_emojis),
			uses_questions = COALESCE($11, uses_questions),
			uses_anecdotes = COALESCE($12, uses_anecdotes),
			uses_statistics = COALESCE($13, uses_statistics),
			uses_humor = COALESCE($14, uses_humor),
			writing_samples = COALESCE($15::jsonb, writing_samples),
			avg_sentence_length = COALESCE($16, avg_sentence_length),
			voice_prompt = COALESCE($17, voice_prompt),
			system_prompt = COALESCE($18, system_prompt),
			status = COALESCE($19, status),
			total_generations = COALESCE($20, total_generations),
			avg_rating = COALESCE($21, avg_rating),
			approved_at = COALESCE($22, approved_at),
			last_used_at = COALESCE($23, last_used_at),
			updated_at = $24
		WHERE id = $25 AND owner_id = $26
		RETURNING ` + profileColumns
	return scanProfile(s.db.QueryRowContext(ctx, query,
		upd.Name, tones, upd.Formality, upd.DetailLevel, upd.SentenceStyle,
		upd.VocabularyLevel, upd.ParagraphPattern, common, avoid,
		upd.UsesEmojis, upd.UsesQuestions, upd.UsesAnecdotes, upd.UsesStatistics, upd.UsesHumor,
		samples, upd.AvgSentenceLength, upd.VoicePrompt, upd.SystemPrompt, upd.Status,
		upd.TotalGenerations, upd.AvgRating, upd.ApprovedAt, upd.LastUsedAt,
		time.Now().UTC(), id, ownerID,
	))
}

func (s *Postgres) DeleteProfile(ctx context.Context, id, ownerID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM voice_profiles WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete voice profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete voice profile: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CreateGeneration(ctx context.Context, g *model.Generation) error {
	articles, err := marshalNullable(g.Articles)
	if err != nil {
		return fmt.Errorf("failed to marshal articles: %w", err)
	}
	files, err := marshalNullable(g.ExportFiles)
	if err != nil {
		return fmt.Errorf("failed to marshal export files: %w", err)
	}

	query := `
		INSERT INTO generations (
			id, owner_id, profile_id, source_kind, source_value, raw_request, status,
			execution_ref, error_message, articles, export_folder_url, export_files,
			execution_time_seconds, total_word_count, cost_estimate, created_at,
			started_at, completed_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		)
	`
	_, err = s.db.ExecContext(ctx, query,
		g.ID, g.OwnerID, g.ProfileID, g.SourceKind, g.SourceValue, []byte(g.RawRequest), g.Status,
		g.ExecutionRef, g.ErrorMessage, articles, g.ExportFolderURL, files,
		g.ExecutionTimeSec, g.TotalWordCount, g.CostEstimate, g.CreatedAt,
		g.StartedAt, g.CompletedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create generation: %w", err)
	}
	return nil
}

func (s *Postgres) GetGeneration(ctx context.Context, id uuid.UUID) (*model.Generation, error) {
	query := `SELECT ` + generationColumns + ` FROM generations WHERE id = $1`
	return scanGeneration(s.db.QueryRowContext(ctx, query, id))
}

func (s *Postgres) GetGenerationOwned(ctx context.Context, id, ownerID uuid.UUID) (*model.Generation, error) {
	query := `SELECT ` + generationColumns + ` FROM generations WHERE id = $1 AND owner_id = $2`
	return scanGeneration(s.db.QueryRowContext(ctx, query, id, ownerID))
}

func (s *Postgres) ListGenerations(ctx context.Context, ownerID uuid.UUID, status string) ([]model.Generation, error) {
	var rows *sql.Rows
	var err error
	if status != "" {
		query := `SELECT ` + generationColumns + ` FROM generations
			WHERE owner_id = $1 AND status = $2 ORDER BY created_at DESC`
		rows, err = s.db.QueryContext(ctx, query, ownerID, status)
	} else {
		query := `SELECT ` + generationColumns + ` FROM generations
			WHERE owner_id = $1 ORDER BY created_at DESC`
		rows, err = s.db.QueryContext(ctx, query, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	generations := make([]model.Generation, 0)
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		generations = append(generations, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generations: %w", err)
	}
	return generations, nil
}

func (s *Postgres) UpdateGeneration(ctx context.Context, id uuid.UUID, upd GenerationUpdate) (*model.Generation, error) {
	articles, err := marshalIfSet(upd.Articles)
	if err != nil {
		return nil, err
	}
	files, err := marshalIfSet(upd.ExportFiles)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if upd.RawRequest != nil {
		raw = upd.RawRequest
	}

	query := `
		UPDATE generations SET
			status = COALESCE($1, status),
			execution_ref = COALESCE($2, execution_ref),
			error_message = COALESCE($3, error_message),
			articles = COALESCE($4::jsonb, articles),
			export_folder_url = COALESCE($5, export_folder_url),
			export_files = COALESCE($6::jsonb, export_files),
			execution_time_seconds = COALESCE($7, execution_time_seconds),
			total_word_count = COALESCE($8, total_word_count),
			cost_estimate = COALESCE($9, cost_estimate),
			raw_request = COALESCE($10::jsonb, raw_request),
			started_at = COALESCE($11, started_at),
			completed_at = COALESCE($12, completed_at),
			updated_at = $13
		WHERE id = $14
		RETURNING ` + generationColumns
	return scanGeneration(s.db.QueryRowContext(ctx, query,
		upd.Status, upd.ExecutionRef, upd.ErrorMessage, articles, upd.ExportFolderURL,
		files, upd.ExecutionTimeSec, upd.TotalWordCount, upd.CostEstimate, raw,
		upd.StartedAt, upd.CompletedAt, time.Now().UTC(), id,
	))
}

func (s *Postgres) DeleteGeneration(ctx context.Context, id, ownerID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM generations WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DetachProfile(ctx context.Context, profileID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE generations SET profile_id = NULL, updated_at = $1 WHERE profile_id = $2`,
		time.Now().UTC(), profileID)
	if err != nil {
		return fmt.Errorf("failed to detach profile from generations: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*model.VoiceProfile, error) {
	var p model.VoiceProfile
	var tones, common, avoid, samples []byte

	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &tones, &p.Formality, &p.DetailLevel, &p.SentenceStyle,
		&p.VocabularyLevel, &p.ParagraphPattern, &common, &avoid,
		&p.UsesEmojis, &p.UsesQuestions, &p.UsesAnecdotes, &p.UsesStatistics, &p.UsesHumor,
		&samples, &p.AvgSentenceLength, &p.VoicePrompt, &p.SystemPrompt, &p.Status,
		&p.TotalGenerations, &p.AvgRating, &p.ApprovedAt, &p.LastUsedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan voice profile: %w", err)
	}

	if err := unmarshalList(tones, &p.Tones); err != nil {
		return nil, err
	}
	if err := unmarshalList(common, &p.CommonPhrases); err != nil {
		return nil, err
	}
	if err := unmarshalList(avoid, &p.AvoidPhrases); err != nil {
		return nil, err
	}
	if err := unmarshalList(samples, &p.WritingSamples); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanGeneration(row rowScanner) (*model.Generation, error) {
	var g model.Generation
	var raw, articles, files []byte

	err := row.Scan(
		&g.ID, &g.OwnerID, &g.ProfileID, &g.SourceKind, &g.SourceValue, &raw, &g.Status,
		&g.ExecutionRef, &g.ErrorMessage, &articles, &g.ExportFolderURL, &files,
		&g.ExecutionTimeSec, &g.TotalWordCount, &g.CostEstimate, &g.CreatedAt,
		&g.StartedAt, &g.CompletedAt, &g.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan generation: %w", err)
	}

	if len(raw) > 0 {
		g.RawRequest = raw
	}
	if len(articles) > 0 {
		if err := json.Unmarshal(articles, &g.Articles); err != nil {
			return nil, fmt.Errorf("failed to unmarshal articles: %w", err)
		}
	}
	if len(files) > 0 {
		if err := json.Unmarshal(files, &g.ExportFiles); err != nil {
			return nil, fmt.Errorf("failed to unmarshal export files: %w", err)
		}
	}
	return &g, nil
}

// marshalIfSet marshals an optional list for a COALESCE update; nil means
// "leave the column alone".
func marshalIfSet[T any](v *[]T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(*v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal field: %w", err)
	}
	return b, nil
}

func marshalNullable[T any](v []T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalList[T any](b []byte, dst *[]T) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("failed to unmarshal field: %w", err)
	}
	return nil
}
