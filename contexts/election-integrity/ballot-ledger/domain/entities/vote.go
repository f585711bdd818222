package entities

import "time"

// Vote is one ledger entry. Votes are created once and never updated.
type Vote struct {
	VoteID        string
	VoterID       string
	CandidatureID string
	Position      Position
	Hash          string
	PreviousHash  string
	Year          int
	CreatedAt     time.Time
}

// TallyRow is the vote count of one candidature.
type TallyRow struct {
	CandidatureID   string
	CandidatureCode string
	CandidateName   string
	PartyName       string
	PartyAcronym    string
	Votes           int
}

// ChainReport summarizes a full walk of the ledger.
type ChainReport struct {
	Length   int
	HeadHash string
	Valid    bool

	// Set when Valid is false.
	BrokenAt     int
	BrokenVoteID string
	Reason       string
}
