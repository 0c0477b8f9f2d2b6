// Package logs owns the daemon's on-disk log layout and serves bounded reads
// of it. Each scribed run writes a timestamped scribe-<runID>.log and repoints
// the stable scribe.log entry at it; CurrentPath resolves that pointer for
// readers that only know the log directory.
//
// Tail streams the current log with bounded memory: negative offsets mean
// "last N lines", forward reads resume from a byte offset, and follow mode
// polls briefly for new lines. The IPC LogTail endpoint and
// `scribe logs --follow` are the two consumers.
package logs
