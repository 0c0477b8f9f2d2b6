// Package llm provides an OpenRouter-style chat client for minutes generation.
//
// # Usage
//
// The minutes stage sends a diarized transcript plus a markdown template to a
// configured chat-completion model and receives the rendered minutes back as
// markdown. The prompt labels every transcript line with its speaker so the
// model can attribute decisions and action items.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Summarize: produce minutes markdown for a transcript.
// Client.HealthCheck: verify API key and model availability.
//
// # Error Classification
//
// The client performs no internal retries. Transport failures and HTTP
// statuses are classified into the services error taxonomy: 408 and network
// timeouts map to ErrTimeout, 429 and 5xx map to ErrTransient, other 4xx map
// to ErrValidation. The stage execution layer decides whether a failed call
// is retried.
package llm
