package model

import "github.com/m-mizutani/goerr/v2"

// Error tags classify failures for the task queue. Provider and storage
// failures are transient and eligible for retry; not_found and schema
// violations are permanent for the invocation that hit them.
var (
	ErrTagNotFound = goerr.NewTag("not_found")
	ErrTagProvider = goerr.NewTag("provider")
	ErrTagSchema   = goerr.NewTag("schema")
	ErrTagStorage  = goerr.NewTag("storage")
)

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool {
	return goerr.HasTag(err, ErrTagNotFound)
}

// IsPermanent reports whether err must not be retried. Retrying an
// LLM-backed capability with identical input does not self-correct a
// schema mismatch, and a missing entity stays missing.
func IsPermanent(err error) bool {
	return goerr.HasTag(err, ErrTagNotFound) || goerr.HasTag(err, ErrTagSchema)
}
