// Package pipeline moves jobs through the processing sequence:
// upload finalize, transcription, quality scoring, minutes generation.
//
// The Orchestrator runs each advancing job on its own goroutine, persists
// every stage transition to the job store before broadcasting it, and parks
// jobs in a terminal stage (completed, failed, cancelled) when they are done
// moving. Stage work is delegated to stage.Executor implementations through
// the stageexec retry runner, so transient provider failures are retried
// with backoff while permanent input failures fail the job immediately.
//
// The Controller carries the operator actions. Cancel flags a live run and
// lets it settle at the next stage boundary; retry returns a failed job to
// the stage that broke with a fresh attempt counter. Results from a
// superseded attempt are discarded when they land after a retry.
package pipeline
