package v1

import (
	"encoding/json"
	"time"
)

// Envelope is the canonical, versioned event envelope. Outbox rows store it
// JSON encoded and the bus carries it unchanged.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

const (
	TopicVoteCast     = "ballot.vote.cast"
	TopicTallyUpdated = "ballot.tally.updated"
)

// VoteCastData is the payload of TopicVoteCast.
type VoteCastData struct {
	VoteID              string `json:"vote_id"`
	VoterID             string `json:"voter_id"`
	CandidatureID       string `json:"candidature_id"`
	CandidatureCode     string `json:"candidature_code"`
	CandidaturePosition string `json:"candidature_position"`
	Year                int    `json:"year"`
	Hash                string `json:"hash"`
	PreviousHash        string `json:"previous_hash"`
	CreatedAt           string `json:"created_at"`
}

// TallyUpdatedData is the payload of TopicTallyUpdated.
type TallyUpdatedData struct {
	CandidaturePosition string         `json:"candidature_position"`
	CausedByEventID     string         `json:"caused_by_event_id"`
	Rows                []TallyRowData `json:"rows"`
}

type TallyRowData struct {
	CandidatureID   string `json:"candidature_id"`
	CandidatureCode string `json:"candidature_code"`
	CandidateName   string `json:"candidate_name"`
	PartyName       string `json:"party_name"`
	PartyAcronym    string `json:"party_acronym"`
	Votes           int    `json:"votes"`
}
