package ports

import (
	"context"
	"time"

	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

// CandidatureRepository is the read side of candidature registration.
type CandidatureRepository interface {
	// FindCandidatures returns at most limit candidatures matching the
	// ballot code for the position and year.
	FindCandidatures(ctx context.Context, code string, position entities.Position, year int, limit int) ([]entities.Candidature, error)
	ListCandidatures(ctx context.Context, position entities.Position, year int) ([]entities.CandidatureListing, error)
}

// LedgerStore owns the single global vote chain.
type LedgerStore interface {
	// RunInAppendTx runs fn while holding the ledger's exclusive append lock.
	// All writes made through tx commit together when fn returns nil and are
	// discarded otherwise.
	RunInAppendTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// LedgerTx is the view of the ledger inside one append unit of work.
type LedgerTx interface {
	GetVoteByVoter(ctx context.Context, voterID string, position entities.Position, year int) (entities.Vote, bool, error)
	LatestVote(ctx context.Context) (entities.Vote, bool, error)
	InsertVote(ctx context.Context, vote entities.Vote) error
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// ChainReader streams the ledger in creation order for audits.
type ChainReader interface {
	ListVotesInChainOrder(ctx context.Context) ([]entities.Vote, error)
}

type TallyRepository interface {
	CountVotesByCandidature(ctx context.Context, position entities.Position, year int) ([]entities.TallyRow, error)
}

type RegistrationRepository interface {
	CreateParty(ctx context.Context, party entities.Party) error
	CreateCandidate(ctx context.Context, candidate entities.Candidate) error
	CreateVoter(ctx context.Context, voter entities.Voter) error
	CreateCandidature(ctx context.Context, candidature entities.Candidature) error
}

type Clock interface {
	Now() time.Time
}

// ElectionCycle names the election year votes are currently cast for.
type ElectionCycle interface {
	CurrentYear() int
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
