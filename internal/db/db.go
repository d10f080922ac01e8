package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

var DB *sql.DB

// Init opens the Postgres connection pool and ensures the schema exists.
func Init(databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is empty")
	}

	var err error
	DB, err = sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return migrate()
}

func Close() {
	if DB != nil {
		DB.Close()
	}
}

func migrate() error {
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS voice_profiles (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			name TEXT NOT NULL,
			tones JSONB NOT NULL DEFAULT '[]',
			formality INT NOT NULL DEFAULT 3,
			detail_level INT NOT NULL DEFAULT 3,
			sentence_style TEXT NOT NULL DEFAULT '',
			vocabulary_level TEXT NOT NULL DEFAULT '',
			paragraph_pattern TEXT NOT NULL DEFAULT '',
			common_phrases JSONB NOT NULL DEFAULT '[]',
			avoid_phrases JSONB NOT NULL DEFAULT '[]',
			uses_emojis BOOLEAN NOT NULL DEFAULT FALSE,
			uses_questions BOOLEAN NOT NULL DEFAULT FALSE,
			uses_anecdotes BOOLEAN NOT NULL DEFAULT FALSE,
			uses_statistics BOOLEAN NOT NULL DEFAULT FALSE,
			uses_humor BOOLEAN NOT NULL DEFAULT FALSE,
			writing_samples JSONB NOT NULL DEFAULT '[]',
			avg_sentence_length DOUBLE PRECISION,
			voice_prompt TEXT,
			system_prompt TEXT,
			status TEXT NOT NULL DEFAULT 'draft',
			total_generations INT NOT NULL DEFAULT 0,
			avg_rating DOUBLE PRECISION,
			approved_at TIMESTAMPTZ,
			last_used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS generations (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			profile_id UUID,
			source_kind TEXT NOT NULL,
			source_value TEXT NOT NULL DEFAULT '',
			raw_request JSONB,
			status TEXT NOT NULL DEFAULT 'pending',
			execution_ref TEXT,
			error_message TEXT,
			articles JSONB,
			export_folder_url TEXT,
			export_files JSONB,
			execution_time_seconds DOUBLE PRECISION,
			total_word_count INT,
			cost_estimate DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_voice_profiles_owner ON voice_profiles(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_generations_owner ON generations(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_generations_owner_status ON generations(owner_id, status)`,
	} {
		if _, err := DB.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
