// Package logging provides slog construction, standardized field names,
// and context-aware attribute extraction for all Scribe components.
package logging
