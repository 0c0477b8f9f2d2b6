// Package jobs persists job records in SQLite and enforces the stage
// transition invariants: stages advance forward, terminal stages accept no
// further writes, and only the dedicated retry reset moves a failed job
// back into the pipeline.
package jobs
