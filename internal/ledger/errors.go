package ledger

import "errors"

var (
	// ErrNotFound is returned when an occurrence or aggregate does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrExists is returned when creating a record that is already stored.
	ErrExists = errors.New("record already exists")

	// ErrConflict is returned by a store when a conditional write lost the race.
	// The ledger retries on it; it never reaches API callers.
	ErrConflict = errors.New("conditional write conflict")

	// ErrInvalidState is returned when an operation is attempted outside its legal status.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidEvent is returned for an unknown event kind or an empty participant.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidVote is returned for a ballot naming the same player for both awards.
	ErrInvalidVote = errors.New("invalid vote")

	// ErrVotingClosed is returned when a ballot arrives while voting is not open.
	ErrVotingClosed = errors.New("voting is not open")

	// ErrNotEligible is returned when the voter did not hold a roster slot.
	ErrNotEligible = errors.New("voter is not eligible")

	// ErrAlreadyVoted is returned for a second ballot from the same voter.
	ErrAlreadyVoted = errors.New("already voted")

	// ErrAlreadyApplied is returned when an aggregate update was already
	// committed for the same occurrence.
	ErrAlreadyApplied = errors.New("already applied")

	// ErrTransactionFailed is returned when the retry budget or the caller's
	// deadline is exhausted, or the store is unavailable.
	ErrTransactionFailed = errors.New("transaction failed")
)
