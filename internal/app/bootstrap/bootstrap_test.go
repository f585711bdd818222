package bootstrap

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	ballotledger "ballotbox/contexts/election-integrity/ballot-ledger"
	"ballotbox/contexts/election-integrity/ballot-ledger/adapters/memory"
	"ballotbox/contexts/election-integrity/ballot-ledger/application/commands"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	"ballotbox/internal/platform/messaging"
)

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":      ":8080",
		" 9090": ":9090",
		":7000": ":7000",
	}
	for input, want := range cases {
		if got := normalizeAddr(input); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSeedDemoIsIdempotent(t *testing.T) {
	module, err := ballotledger.NewInMemoryModule(memory.Seed{}, []byte("seed-secret"), ballotledger.BusPorts{}, nil)
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	module.Store.SetElectionYear(2026)
	ctx := context.Background()

	SeedDemo(ctx, module, nil)
	SeedDemo(ctx, module, nil)

	listings, err := module.Directory.List(ctx, entities.PositionPresident, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 seeded candidatures, got %d", len(listings))
	}
	acronyms := map[string]bool{}
	for _, listing := range listings {
		acronyms[listing.Party.Acronym] = true
		if listing.Candidature.Year != 2026 || len(listing.Candidature.Code) != 8 {
			t.Fatalf("unexpected candidature: %+v", listing.Candidature)
		}
	}
	if !acronyms["PSD"] || !acronyms["PCB"] {
		t.Fatalf("expected PSD and PCB, got %v", acronyms)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWorkerRelaysVotesIntoTallyLog(t *testing.T) {
	logs := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))
	bus, err := messaging.NewKafka([]string{"localhost:9092"}, logger)
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	module, err := ballotledger.NewInMemoryModule(memory.Seed{
		Parties:    []entities.Party{{PartyID: "p", Name: "Partido", Acronym: "PSD"}},
		Candidates: []entities.Candidate{{CandidateID: "c", FirstName: "João", LastName: "Silva"}},
		Candidatures: []entities.Candidature{
			{CandidatureID: "cu-1", PartyID: "p", CandidateID: "c", Code: "ABC12345", Position: entities.PositionPresident, Year: 2026},
		},
	}, []byte("worker-secret"), ballotledger.BusPorts{Publisher: bus, Subscriber: bus}, logger)
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	module.Store.SetElectionYear(2026)

	worker := &WorkerApp{bus: bus, module: module, pollInterval: 10 * time.Millisecond, logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	if _, err := module.Ledger.Submit(context.Background(), commands.SubmitVoteCommand{
		VoterID:  "voter-1",
		Code:     "ABC12345",
		Position: entities.PositionPresident,
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(logs.String(), `"event":"bootstrap_tally_updated"`) {
		if time.Now().After(deadline) {
			t.Fatalf("tally update never reached the worker log: %s", logs.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(logs.String(), `"leader_code":"ABC12345"`) {
		t.Fatalf("tally log is missing the leader: %s", logs.String())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("worker run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop")
	}
	if _, ok := bus.Latest("ballot.tally.updated", "Presidente"); !ok {
		t.Fatalf("bus did not retain the tally")
	}
}
