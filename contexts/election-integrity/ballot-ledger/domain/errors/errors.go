package errors

import "errors"

var (
	ErrInvalidVoteInput     = errors.New("invalid vote input")
	ErrUnknownPosition      = errors.New("unknown candidature position")
	ErrCandidatureNotFound  = errors.New("candidature not found")
	ErrDuplicateVote        = errors.New("voter already voted for this position in this election year")
	ErrChainConflict        = errors.New("ledger head changed during append")
	ErrChainBroken          = errors.New("ledger chain integrity check failed")
	ErrMissingSecretKey     = errors.New("ledger secret key is not configured")
	ErrPersistence          = errors.New("ledger storage failure")
	ErrInvalidRegistration  = errors.New("invalid registration input")
	ErrDuplicateCandidature = errors.New("candidature code already taken for position and year")
	ErrUnknownReference     = errors.New("referenced party or candidate does not exist")
)
