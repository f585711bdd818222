package commands

import (
	"encoding/json"

	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/services"
	"ballotbox/contexts/election-integrity/ballot-ledger/ports"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

// newVoteCastEnvelope is partitioned by position so tally consumers see the
// votes of one office in chain order.
func newVoteCastEnvelope(eventID string, vote entities.Vote, code string) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(contractsv1.VoteCastData{
		VoteID:              vote.VoteID,
		VoterID:             vote.VoterID,
		CandidatureID:       vote.CandidatureID,
		CandidatureCode:     code,
		CandidaturePosition: vote.Position.String(),
		Year:                vote.Year,
		Hash:                vote.Hash,
		PreviousHash:        vote.PreviousHash,
		CreatedAt:           services.FormatChainTime(vote.CreatedAt),
	})
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        contractsv1.TopicVoteCast,
		OccurredAt:       vote.CreatedAt.UTC(),
		SourceService:    "ballot-ledger",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "candidature_position",
		PartitionKey:     vote.Position.String(),
		Data:             payload,
	}, nil
}
