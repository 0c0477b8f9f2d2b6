package jobs

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    stage TEXT NOT NULL,
    status TEXT NOT NULL,
    progress INTEGER NOT NULL DEFAULT 0,
    attempt INTEGER NOT NULL DEFAULT 1,
    failed_stage TEXT,
    error_message TEXT,
    source_ref TEXT NOT NULL,
    language_hint TEXT,
    minutes_enabled INTEGER NOT NULL DEFAULT 1,
    transcript_json TEXT,
    quality_json TEXT,
    minutes_text TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_stage ON jobs(stage);
CREATE INDEX IF NOT EXISTS idx_jobs_updated_at ON jobs(updated_at);
`
