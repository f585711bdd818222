package memory

import (
	"context"
	"errors"
	"testing"

	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	domainerrors "ballotbox/contexts/election-integrity/ballot-ledger/domain/errors"
	"ballotbox/contexts/election-integrity/ballot-ledger/ports"
)

func TestRunInAppendTxDiscardsWritesOnError(t *testing.T) {
	store := NewStore(Seed{})
	ctx := context.Background()
	failure := errors.New("abort")

	err := store.RunInAppendTx(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		if err := tx.InsertVote(ctx, entities.Vote{VoteID: "v1", VoterID: "voter-1", PreviousHash: "g", Position: entities.PositionMayor, Year: 2026}); err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt-1", EventType: "ballot.vote.cast"}); err != nil {
			return err
		}
		if latest, found, _ := tx.LatestVote(ctx); !found || latest.VoteID != "v1" {
			t.Fatalf("tx must see its own writes, got %+v", latest)
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected abort error, got %v", err)
	}

	votes, _ := store.ListVotesInChainOrder(ctx)
	pending, _ := store.ListPendingOutbox(ctx, 10)
	if len(votes) != 0 || len(pending) != 0 {
		t.Fatalf("aborted unit of work leaked %d votes and %d outbox rows", len(votes), len(pending))
	}
}

func TestRunInAppendTxRejectsForkAndDuplicateAtCommit(t *testing.T) {
	store := NewStore(Seed{Votes: []entities.Vote{
		{VoteID: "v1", VoterID: "voter-1", PreviousHash: "g", Hash: "h1", Position: entities.PositionMayor, Year: 2026},
	}})
	ctx := context.Background()

	err := store.RunInAppendTx(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		return tx.InsertVote(ctx, entities.Vote{VoteID: "v2", VoterID: "voter-2", PreviousHash: "g", Position: entities.PositionMayor, Year: 2026})
	})
	if !errors.Is(err, domainerrors.ErrChainConflict) {
		t.Fatalf("expected ErrChainConflict, got %v", err)
	}

	err = store.RunInAppendTx(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		return tx.InsertVote(ctx, entities.Vote{VoteID: "v3", VoterID: "voter-1", PreviousHash: "h1", Position: entities.PositionMayor, Year: 2026})
	})
	if !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}

	votes, _ := store.ListVotesInChainOrder(ctx)
	if len(votes) != 1 {
		t.Fatalf("expected only the seeded vote, got %d", len(votes))
	}
}

func TestGetVoteByVoterScopesByPositionAndYear(t *testing.T) {
	store := NewStore(Seed{Votes: []entities.Vote{
		{VoteID: "v1", VoterID: "voter-1", PreviousHash: "g", Position: entities.PositionMayor, Year: 2022},
	}})
	ctx := context.Background()

	_ = store.RunInAppendTx(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		if _, found, _ := tx.GetVoteByVoter(ctx, "voter-1", entities.PositionMayor, 2022); !found {
			t.Fatalf("expected vote for 2022")
		}
		if _, found, _ := tx.GetVoteByVoter(ctx, "voter-1", entities.PositionMayor, 2026); found {
			t.Fatalf("a past election must not block the current one")
		}
		if _, found, _ := tx.GetVoteByVoter(ctx, "voter-1", entities.PositionCouncilor, 2022); found {
			t.Fatalf("another office must not block")
		}
		return nil
	})
}

func TestMarkOutboxPublishedUnknownRow(t *testing.T) {
	store := NewStore(Seed{})
	if err := store.MarkOutboxPublished(context.Background(), "missing", store.Now()); !errors.Is(err, domainerrors.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestCreateCandidatureChecksReferences(t *testing.T) {
	store := NewStore(Seed{
		Parties:    []entities.Party{{PartyID: "p"}},
		Candidates: []entities.Candidate{{CandidateID: "c"}},
	})
	ctx := context.Background()
	candidature := entities.Candidature{CandidatureID: "cu-1", PartyID: "p", CandidateID: "c", Code: "X", Position: entities.PositionMayor, Year: 2026}
	if err := store.CreateCandidature(ctx, candidature); err != nil {
		t.Fatalf("create candidature failed: %v", err)
	}
	candidature.CandidatureID = "cu-2"
	if err := store.CreateCandidature(ctx, candidature); !errors.Is(err, domainerrors.ErrDuplicateCandidature) {
		t.Fatalf("expected ErrDuplicateCandidature, got %v", err)
	}
	candidature.Year = 2030
	if err := store.CreateCandidature(ctx, candidature); err != nil {
		t.Fatalf("same code in another year must be allowed: %v", err)
	}
	candidature.CandidatureID = "cu-3"
	candidature.PartyID = "ghost"
	if err := store.CreateCandidature(ctx, candidature); !errors.Is(err, domainerrors.ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference, got %v", err)
	}
}
