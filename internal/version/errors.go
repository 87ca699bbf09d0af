package version

import "errors"

// Engine error kinds. Store-level "row missing" is gorm.ErrRecordNotFound.
var (
	// ErrNoActiveVersion: a draft was requested but the scope has no version
	// to clone from.
	ErrNoActiveVersion = errors.New("no active version for scope")

	// ErrInvalidField: a content key is not in the field registry for the
	// document type.
	ErrInvalidField = errors.New("field key not in registry for document type")

	// ErrStaleCommit: the draft's parent is no longer the active version;
	// another commit won the race. The caller must re-fetch and re-apply.
	ErrStaleCommit = errors.New("draft parent is no longer the active version")

	// ErrNotADraft: the operation only applies to drafts.
	ErrNotADraft = errors.New("version is not a draft")

	// ErrTransactionFailure: store-level failure during a commit transaction.
	// Always safe to retry; no partial state is left behind.
	ErrTransactionFailure = errors.New("commit transaction failed")
)
