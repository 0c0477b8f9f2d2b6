// Package daemon hosts the long-running scribe process: it holds the
// single-instance lock, runs the HTTP gateway, and resumes interrupted
// jobs on startup. Control operations arrive over IPC.
package daemon
