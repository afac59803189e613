// Package trust implements context-based login verification: a decision
// engine that classifies each sign-in context against the user's trusted
// baseline and a ledger of previously seen suspicious contexts.
package trust

import "contextguard/internal/models"

// Kind is the classification of a sign-in context.
type Kind string

const (
	// KindNoBaseline means the user has no trusted baseline yet; the caller
	// must fail the attempt.
	KindNoBaseline Kind = "no_baseline"
	// KindMatch means the context equals the baseline or an already-approved
	// ledger record; sign-in proceeds normally.
	KindMatch Kind = "match"
	// KindBlocked means the context is permanently blocked.
	KindBlocked Kind = "blocked"
	// KindSuspicious means the context was seen before and is still pending
	// verification; its attempt counter has been incremented.
	KindSuspicious Kind = "suspicious"
	// KindMismatch means the context was never seen before; a new ledger
	// record has been created and verification is required.
	KindMismatch Kind = "mismatch"
	// KindError means a storage fault occurred; the caller must fail closed.
	KindError Kind = "error"
)

// Outcome is the result of a single decision.
type Outcome struct {
	Kind Kind
	// MismatchedFields names the fingerprint attributes that differ from the
	// baseline. Set for KindMismatch.
	MismatchedFields []string
	// Record is the ledger entry backing the outcome. Set for KindMismatch
	// (the newly created record) and KindSuspicious (the incremented record).
	Record *models.SuspiciousLogin
	// Err carries the underlying fault for KindError. It is for logging
	// only and never reaches the end user.
	Err error
}
