// Package stt provides a speech-to-text client for meeting recordings.
//
// # Usage
//
// The transcription stage uploads the stored recording to an
// OpenAI-compatible transcription endpoint via multipart form and converts
// the response into the internal transcript model, deduplicating the speaker
// roster in first-seen order.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Transcribe: transcribe a local audio file, with optional language hint.
// Client.HealthCheck: verify the endpoint is reachable.
//
// # Error Classification
//
// The client performs no internal retries. HTTP 408 and network timeouts map
// to ErrTimeout, 429 and 5xx map to ErrTransient, other 4xx map to
// ErrValidation, and a missing audio file maps to ErrNotFound. The stage
// execution layer decides whether a failed call is retried.
package stt
