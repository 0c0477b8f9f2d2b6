// Package services holds cross-cutting helpers shared by provider clients
// and stage executors: the sentinel error taxonomy used for retry
// classification and context plumbing for correlation fields.
package services
