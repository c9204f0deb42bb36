package db

import (
	"database/sql"
)

// MigrateUp creates the full storage schema: feeds, raw_articles, articles,
// chunks (with embedding and fts_vector columns attached 1:1), config, and
// batch_runs.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feeds (
    id                     SERIAL PRIMARY KEY,
    url                    TEXT NOT NULL UNIQUE,
    language               VARCHAR(10),
    priority               INT NOT NULL DEFAULT 100,
    trust_score            INT NOT NULL DEFAULT 50,
    etag                   TEXT,
    last_modified          TEXT,
    health_score           INT NOT NULL DEFAULT 100,
    consecutive_failures   INT NOT NULL DEFAULT 0,
    daily_quota            INT NOT NULL DEFAULT 0,
    daily_count            INT NOT NULL DEFAULT 0,
    quota_reset_at         TIMESTAMPTZ,
    crawl_interval_seconds INT NOT NULL DEFAULT 900,
    last_crawled_at        TIMESTAMPTZ,
    next_crawl_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    status                 VARCHAR(10) NOT NULL DEFAULT 'active',
    created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS raw_articles (
    id              SERIAL PRIMARY KEY,
    feed_id         INTEGER NOT NULL REFERENCES feeds(id),
    canonical_url   TEXT NOT NULL,
    url_hash        VARCHAR(64) NOT NULL,
    rss_title       TEXT,
    rss_summary     TEXT,
    fetched_html    TEXT,
    clean_text      TEXT,
    text_hash       VARCHAR(64),
    language        VARCHAR(10),
    category        VARCHAR(50),
    published_at    TIMESTAMPTZ,
    is_estimated    BOOLEAN NOT NULL DEFAULT FALSE,
    word_count      INT NOT NULL DEFAULT 0,
    quality_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
    status          VARCHAR(12) NOT NULL DEFAULT 'pending',
    retry_count     INT NOT NULL DEFAULT 0,
    last_error      TEXT,
    dup_original_id BIGINT,
    lock_owner      TEXT,
    lock_expires_at TIMESTAMPTZ,
    fetch_date      DATE NOT NULL DEFAULT CURRENT_DATE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id                  SERIAL PRIMARY KEY,
    canonical_url       TEXT NOT NULL,
    source_domain       TEXT NOT NULL,
    text_hash           VARCHAR(64) NOT NULL UNIQUE,
    title               TEXT NOT NULL,
    clean_text          TEXT NOT NULL,
    authors             TEXT[] NOT NULL DEFAULT '{}',
    language            VARCHAR(10),
    category            VARCHAR(50),
    tags                TEXT[] NOT NULL DEFAULT '{}',
    quality_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
    ready_for_chunking  BOOLEAN NOT NULL DEFAULT FALSE,
    chunking_completed  BOOLEAN NOT NULL DEFAULT FALSE,
    processing_version  INT NOT NULL DEFAULT 1,
    published_at        TIMESTAMPTZ,
    is_estimated         BOOLEAN NOT NULL DEFAULT FALSE,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS chunks (
    id                  SERIAL PRIMARY KEY,
    article_id          INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    chunk_index         INT NOT NULL,
    processing_version  INT NOT NULL DEFAULT 1,
    text                TEXT NOT NULL,
    byte_start          INT NOT NULL DEFAULT 0,
    byte_end            INT NOT NULL DEFAULT 0,
    semantic_type       VARCHAR(12) NOT NULL DEFAULT 'body',
    importance_score    DOUBLE PRECISION NOT NULL DEFAULT 0.5,

    url                 TEXT,
    source_domain       TEXT,
    published_at        TIMESTAMPTZ,
    language            VARCHAR(10),
    category            VARCHAR(50),
    quality_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
    title               TEXT,

    embedding                  vector(3072),
    embedding_provider         VARCHAR(50),
    embedding_model            VARCHAR(100),
    embedding_permanent_failure BOOLEAN NOT NULL DEFAULT FALSE,
    embedding_failure_count     INT NOT NULL DEFAULT 0,
    embedding_last_error        TEXT,

    fts_language        VARCHAR(10),
    fts_vector          tsvector,

    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE(article_id, chunk_index, processing_version)
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_feeds_next_crawl ON feeds(next_crawl_at) WHERE status = 'active'`,
		`CREATE INDEX IF NOT EXISTS idx_raw_articles_url_hash ON raw_articles(url_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_articles_text_hash ON raw_articles(text_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_articles_status ON raw_articles(status)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_articles_lock_expires ON raw_articles(lock_expires_at) WHERE status = 'processing'`,
		`CREATE INDEX IF NOT EXISTS idx_articles_text_hash ON articles(text_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_ready_for_chunking ON articles(ready_for_chunking) WHERE chunking_completed = FALSE`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_article_id ON chunks(article_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_missing_embedding ON chunks(id) WHERE embedding IS NULL AND embedding_permanent_failure = FALSE`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_missing_fts ON chunks(id) WHERE fts_vector IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_published_at ON chunks(published_at DESC)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// IVFFlat cosine-distance index; ignored if pgvector extension failed
	// to install (e.g. insufficient privilege in a dev sandbox).
	_, _ = db.Exec(`
CREATE INDEX IF NOT EXISTS idx_chunks_embedding
    ON chunks USING ivfflat (embedding vector_cosine_ops)
    WITH (lists = 100)`)

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_chunks_fts_vector ON chunks USING gin(fts_vector)`)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS config (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    value_type VARCHAR(12) NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_by TEXT
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS batch_runs (
    id            SERIAL PRIMARY KEY,
    stage         VARCHAR(30) NOT NULL,
    worker_id     TEXT NOT NULL,
    input_count   INT NOT NULL DEFAULT 0,
    output_count  INT NOT NULL DEFAULT 0,
    error_count   INT NOT NULL DEFAULT 0,
    error_buckets JSONB NOT NULL DEFAULT '{}',
    duration_p50_ms INT NOT NULL DEFAULT 0,
    duration_p95_ms INT NOT NULL DEFAULT 0,
    duration_p99_ms INT NOT NULL DEFAULT 0,
    started_at    TIMESTAMPTZ NOT NULL,
    finished_at   TIMESTAMPTZ NOT NULL
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_batch_runs_stage ON batch_runs(stage, finished_at DESC)`); err != nil {
		return err
	}

	return nil
}

// MigrateDown drops the entire schema. Used only by integration-test setup.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS batch_runs CASCADE`,
		`DROP TABLE IF EXISTS config CASCADE`,
		`DROP TABLE IF EXISTS chunks CASCADE`,
		`DROP TABLE IF EXISTS articles CASCADE`,
		`DROP TABLE IF EXISTS raw_articles CASCADE`,
		`DROP TABLE IF EXISTS feeds CASCADE`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
