package ballotledger

import (
	"io"
	"log/slog"

	httpadapter "ballotbox/contexts/election-integrity/ballot-ledger/adapters/http"
	"ballotbox/contexts/election-integrity/ballot-ledger/adapters/memory"
	"ballotbox/contexts/election-integrity/ballot-ledger/application/commands"
	"ballotbox/contexts/election-integrity/ballot-ledger/application/queries"
	"ballotbox/contexts/election-integrity/ballot-ledger/application/workers"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/services"
	"ballotbox/contexts/election-integrity/ballot-ledger/ports"
)

type Module struct {
	Handler     httpadapter.Handler
	Ledger      commands.VoteLedger
	Registry    commands.Registry
	Directory   queries.CandidatureDirectory
	Tallies     queries.TallyAggregator
	Auditor     queries.ChainAuditor
	OutboxRelay workers.OutboxRelay
	Results     workers.ResultsBroadcaster
	Store       *memory.Store
}

type Dependencies struct {
	Candidatures  ports.CandidatureRepository
	Ledger        ports.LedgerStore
	Chain         ports.ChainReader
	Tallies       ports.TallyRepository
	Registrations ports.RegistrationRepository
	Outbox        ports.OutboxRepository
	Publisher     ports.EventPublisher
	Subscriber    ports.EventSubscriber
	Clock         ports.Clock
	Cycle         ports.ElectionCycle
	IDGen         ports.IDGenerator

	// SecretKey keys the chain digest. It is required.
	SecretKey      []byte
	AppendAttempts int
	CodeSource     io.Reader
	Logger         *slog.Logger
}

// NewModule wires the use cases. It fails with ErrMissingSecretKey when no
// secret is supplied.
func NewModule(deps Dependencies) (Module, error) {
	digester, err := services.NewChainDigester(deps.SecretKey)
	if err != nil {
		return Module{}, err
	}
	directory := queries.CandidatureDirectory{
		Candidatures: deps.Candidatures,
		Cycle:        deps.Cycle,
		Clock:        deps.Clock,
		Logger:       deps.Logger,
	}
	ledger := commands.VoteLedger{
		Directory:      directory,
		Ledger:         deps.Ledger,
		Digester:       digester,
		Cycle:          deps.Cycle,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		AppendAttempts: deps.AppendAttempts,
		Logger:         deps.Logger,
	}
	registry := commands.Registry{
		Registrations: deps.Registrations,
		Cycle:         deps.Cycle,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		CodeSource:    deps.CodeSource,
		Logger:        deps.Logger,
	}
	tallies := queries.TallyAggregator{
		Tallies: deps.Tallies,
		Cycle:   deps.Cycle,
		Clock:   deps.Clock,
		Logger:  deps.Logger,
	}
	auditor := queries.ChainAuditor{
		Chain:    deps.Chain,
		Digester: digester,
		Logger:   deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Ledger:    ledger,
			Registry:  registry,
			Directory: directory,
			Tallies:   tallies,
			Auditor:   auditor,
			Logger:    deps.Logger,
		},
		Ledger:    ledger,
		Registry:  registry,
		Directory: directory,
		Tallies:   tallies,
		Auditor:   auditor,
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
		Results: workers.ResultsBroadcaster{
			Subscriber: deps.Subscriber,
			Publisher:  deps.Publisher,
			Tally:      tallies,
			Clock:      deps.Clock,
			IDGen:      deps.IDGen,
			Logger:     deps.Logger,
		},
	}, nil
}

// NewInMemoryModule runs every port on one memory store. The bus ports are
// left nil unless the caller sets them in bus.
func NewInMemoryModule(seed memory.Seed, secret []byte, bus BusPorts, logger *slog.Logger) (Module, error) {
	store := memory.NewStore(seed)
	module, err := NewModule(Dependencies{
		Candidatures:  store,
		Ledger:        store,
		Chain:         store,
		Tallies:       store,
		Registrations: store,
		Outbox:        store,
		Publisher:     bus.Publisher,
		Subscriber:    bus.Subscriber,
		Clock:         store,
		Cycle:         store,
		IDGen:         store,
		SecretKey:     secret,
		Logger:        logger,
	})
	if err != nil {
		return Module{}, err
	}
	module.Store = store
	return module, nil
}

// BusPorts groups the event bus sides a module publishes and consumes on.
type BusPorts struct {
	Publisher  ports.EventPublisher
	Subscriber ports.EventSubscriber
}
