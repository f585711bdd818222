package entities

import "strings"

type Party struct {
	PartyID     string
	Name        string
	Description string
	Acronym     string
}

type Candidate struct {
	CandidateID string
	FirstName   string
	LastName    string
}

// FullName joins first and last name the way ballots display it.
func (c Candidate) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

type Voter struct {
	VoterID    string
	FirstName  string
	LastName   string
	MotherName string
	FatherName string
	BirthDate  string
}

// Candidature is a candidate's run for one office in one election year.
// (Code, Position, Year) is unique.
type Candidature struct {
	CandidatureID string
	PartyID       string
	CandidateID   string
	Code          string
	Position      Position
	Year          int
	ImageURL      string
}

// CandidatureListing is a candidature joined with its display attributes.
type CandidatureListing struct {
	Candidature Candidature
	Party       Party
	Candidate   Candidate
}
