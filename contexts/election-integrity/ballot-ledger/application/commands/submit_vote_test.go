package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ballotbox/contexts/election-integrity/ballot-ledger/adapters/memory"
	"ballotbox/contexts/election-integrity/ballot-ledger/application/queries"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	domainerrors "ballotbox/contexts/election-integrity/ballot-ledger/domain/errors"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/services"
	"ballotbox/contexts/election-integrity/ballot-ledger/ports"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

const testYear = 2026

func newLedgerStore() *memory.Store {
	store := memory.NewStore(memory.Seed{
		Parties:    []entities.Party{{PartyID: "party-1", Name: "Partido Social", Acronym: "PS"}},
		Candidates: []entities.Candidate{{CandidateID: "cand-1", FirstName: "João", LastName: "Silva"}},
		Candidatures: []entities.Candidature{
			{CandidatureID: "cu-1", PartyID: "party-1", CandidateID: "cand-1", Code: "ABC12345", Position: entities.PositionPresident, Year: testYear},
			{CandidatureID: "cu-2", PartyID: "party-1", CandidateID: "cand-1", Code: "GOV00001", Position: entities.PositionGovernor, Year: testYear},
			{CandidatureID: "cu-old", PartyID: "party-1", CandidateID: "cand-1", Code: "OLD00001", Position: entities.PositionPresident, Year: testYear - 4},
		},
	})
	store.SetElectionYear(testYear)
	return store
}

func newVoteLedger(t *testing.T, store *memory.Store, ledger ports.LedgerStore) VoteLedger {
	t.Helper()
	digester, err := services.NewChainDigester([]byte("test-secret"))
	if err != nil {
		t.Fatalf("new digester failed: %v", err)
	}
	if ledger == nil {
		ledger = store
	}
	return VoteLedger{
		Directory: queries.CandidatureDirectory{Candidatures: store, Cycle: store, Clock: store},
		Ledger:    ledger,
		Digester:  digester,
		Cycle:     store,
		Clock:     store,
		IDGen:     store,
	}
}

func TestSubmitChainsVotesFromGenesis(t *testing.T) {
	store := newLedgerStore()
	ledger := newVoteLedger(t, store, nil)
	ctx := context.Background()

	first, err := ledger.Submit(ctx, SubmitVoteCommand{VoterID: "voter-1", Code: "ABC12345", Position: entities.PositionPresident})
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if first.PreviousHash != services.GenesisHash {
		t.Fatalf("first vote must chain to genesis, got %s", first.PreviousHash)
	}
	if first.CandidatureID != "cu-1" || first.Year != testYear {
		t.Fatalf("unexpected first vote %+v", first)
	}
	if first.Hash != ledger.Digester.Link("voter-1", "cu-1", services.GenesisLink()) {
		t.Fatalf("first vote hash is not the genesis digest")
	}

	second, err := ledger.Submit(ctx, SubmitVoteCommand{VoterID: "voter-2", Code: "GOV00001", Position: entities.PositionGovernor})
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	if second.PreviousHash != first.Hash {
		t.Fatalf("second vote must chain to first: %s != %s", second.PreviousHash, first.Hash)
	}
	if !second.CreatedAt.After(first.CreatedAt) {
		t.Fatalf("created_at must increase along the chain")
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 outbox rows, got %d", len(pending))
	}
	var event contractsv1.Envelope
	if err := json.Unmarshal(pending[0].Payload, &event); err != nil {
		t.Fatalf("decode outbox payload failed: %v", err)
	}
	var data contractsv1.VoteCastData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		t.Fatalf("decode vote cast data failed: %v", err)
	}
	if event.EventType != contractsv1.TopicVoteCast || data.VoteID != first.VoteID || data.CandidatureCode != "ABC12345" {
		t.Fatalf("unexpected vote cast event %+v %+v", event, data)
	}
	if event.PartitionKey != "Presidente" {
		t.Fatalf("expected partition by position label, got %q", event.PartitionKey)
	}
}

func TestSubmitRejectsSecondVoteForSameOffice(t *testing.T) {
	store := newLedgerStore()
	ledger := newVoteLedger(t, store, nil)
	ctx := context.Background()

	cmd := SubmitVoteCommand{VoterID: "voter-1", Code: "ABC12345", Position: entities.PositionPresident}
	if _, err := ledger.Submit(ctx, cmd); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if _, err := ledger.Submit(ctx, cmd); !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
	if _, err := ledger.Submit(ctx, SubmitVoteCommand{VoterID: "voter-1", Code: "GOV00001", Position: entities.PositionGovernor}); err != nil {
		t.Fatalf("same voter may vote for another office: %v", err)
	}

	votes, _ := store.ListVotesInChainOrder(ctx)
	if len(votes) != 2 {
		t.Fatalf("expected 2 committed votes, got %d", len(votes))
	}
}

func TestSubmitValidation(t *testing.T) {
	store := newLedgerStore()
	ledger := newVoteLedger(t, store, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  SubmitVoteCommand
		want error
	}{
		{name: "empty voter", cmd: SubmitVoteCommand{Code: "ABC12345", Position: entities.PositionPresident}, want: domainerrors.ErrInvalidVoteInput},
		{name: "blank code", cmd: SubmitVoteCommand{VoterID: "v", Code: "  ", Position: entities.PositionPresident}, want: domainerrors.ErrInvalidVoteInput},
		{name: "invalid position", cmd: SubmitVoteCommand{VoterID: "v", Code: "ABC12345"}, want: domainerrors.ErrUnknownPosition},
		{name: "unknown code", cmd: SubmitVoteCommand{VoterID: "v", Code: "ZZZ99999", Position: entities.PositionPresident}, want: domainerrors.ErrCandidatureNotFound},
		{name: "code of another office", cmd: SubmitVoteCommand{VoterID: "v", Code: "ABC12345", Position: entities.PositionGovernor}, want: domainerrors.ErrCandidatureNotFound},
		{name: "code of a past year", cmd: SubmitVoteCommand{VoterID: "v", Code: "OLD00001", Position: entities.PositionPresident}, want: domainerrors.ErrCandidatureNotFound},
	}
	for _, tc := range cases {
		if _, err := ledger.Submit(ctx, tc.cmd); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	votes, _ := store.ListVotesInChainOrder(ctx)
	if len(votes) != 0 {
		t.Fatalf("rejected submissions must not write votes, got %d", len(votes))
	}
}

func TestSubmitRequiresSecret(t *testing.T) {
	store := newLedgerStore()
	ledger := newVoteLedger(t, store, nil)
	ledger.Digester = services.ChainDigester{}
	_, err := ledger.Submit(context.Background(), SubmitVoteCommand{VoterID: "v", Code: "ABC12345", Position: entities.PositionPresident})
	if !errors.Is(err, domainerrors.ErrMissingSecretKey) {
		t.Fatalf("expected ErrMissingSecretKey, got %v", err)
	}
}

func TestConcurrentSubmitsKeepOneLinearChain(t *testing.T) {
	store := newLedgerStore()
	ledger := newVoteLedger(t, store, nil)
	ctx := context.Background()

	const voters = 40
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ledger.Submit(ctx, SubmitVoteCommand{
				VoterID:  fmt.Sprintf("voter-%02d", i),
				Code:     "ABC12345",
				Position: entities.PositionPresident,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent submit failed: %v", err)
		}
	}

	votes, _ := store.ListVotesInChainOrder(ctx)
	if len(votes) != voters {
		t.Fatalf("expected %d votes, got %d", voters, len(votes))
	}
	predecessors := make(map[string]struct{}, voters)
	for _, vote := range votes {
		if _, forked := predecessors[vote.PreviousHash]; forked {
			t.Fatalf("two votes share predecessor %s", vote.PreviousHash)
		}
		predecessors[vote.PreviousHash] = struct{}{}
	}

	auditor := queries.ChainAuditor{Chain: store, Digester: ledger.Digester}
	report, err := auditor.Verify(ctx)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !report.Valid || report.Length != voters || report.HeadHash != votes[voters-1].Hash {
		t.Fatalf("unexpected report %+v", report)
	}
}

// conflictingLedger fails the first conflicts units of work the way a storage
// unique index would after a concurrent writer advanced the head.
type conflictingLedger struct {
	inner     ports.LedgerStore
	conflicts int
	calls     int
}

func (c *conflictingLedger) RunInAppendTx(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	c.calls++
	if c.calls <= c.conflicts {
		return fmt.Errorf("insert vote: %w", domainerrors.ErrChainConflict)
	}
	return c.inner.RunInAppendTx(ctx, fn)
}

func TestSubmitRetriesHeadConflicts(t *testing.T) {
	store := newLedgerStore()
	fake := &conflictingLedger{inner: store, conflicts: 2}
	ledger := newVoteLedger(t, store, fake)

	vote, err := ledger.Submit(context.Background(), SubmitVoteCommand{VoterID: "voter-1", Code: "ABC12345", Position: entities.PositionPresident})
	if err != nil {
		t.Fatalf("submit after conflicts failed: %v", err)
	}
	if fake.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", fake.calls)
	}
	if vote.PreviousHash != services.GenesisHash {
		t.Fatalf("retried vote must still chain to the head")
	}
}

func TestSubmitGivesUpAfterAppendAttempts(t *testing.T) {
	store := newLedgerStore()
	fake := &conflictingLedger{inner: store, conflicts: 100}
	ledger := newVoteLedger(t, store, fake)
	ledger.AppendAttempts = 3

	_, err := ledger.Submit(context.Background(), SubmitVoteCommand{VoterID: "voter-1", Code: "ABC12345", Position: entities.PositionPresident})
	if !errors.Is(err, domainerrors.ErrChainConflict) {
		t.Fatalf("expected ErrChainConflict, got %v", err)
	}
	if fake.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", fake.calls)
	}
}

func TestSubmitUsesMonotonicTimestampsUnderClockSkew(t *testing.T) {
	store := newLedgerStore()
	ledger := newVoteLedger(t, store, nil)
	frozen := time.Date(2026, 10, 4, 9, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return frozen })
	ctx := context.Background()

	first, err := ledger.Submit(ctx, SubmitVoteCommand{VoterID: "voter-1", Code: "ABC12345", Position: entities.PositionPresident})
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	second, err := ledger.Submit(ctx, SubmitVoteCommand{VoterID: "voter-2", Code: "ABC12345", Position: entities.PositionPresident})
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	if !first.CreatedAt.Equal(frozen) || !second.CreatedAt.Equal(frozen.Add(time.Microsecond)) {
		t.Fatalf("unexpected timestamps %v %v", first.CreatedAt, second.CreatedAt)
	}
}
