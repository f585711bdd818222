package bootstrap

import (
	"context"
	"log/slog"

	ballotledger "ballotbox/contexts/election-integrity/ballot-ledger"
	"ballotbox/contexts/election-integrity/ballot-ledger/application/commands"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
)

// SeedDemo registers two parties, their presidential candidatures for the
// current election year and one voter. It is skipped when presidential
// candidatures already exist. Failures are logged and never abort startup.
func SeedDemo(ctx context.Context, module ballotledger.Module, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	existing, err := module.Directory.List(ctx, entities.PositionPresident, 0)
	if err != nil {
		logSeedFailure(logger, "list_candidatures", err)
		return
	}
	if len(existing) > 0 {
		logger.Info("demo seed skipped",
			"event", "bootstrap_seed_skipped",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"candidatures", len(existing),
		)
		return
	}

	entries := []struct {
		party     commands.RegisterPartyCommand
		candidate commands.RegisterCandidateCommand
		imageURL  string
	}{
		{
			party:     commands.RegisterPartyCommand{Name: "Partido Social Democrático", Description: "Partido Social Democrático", Acronym: "PSD"},
			candidate: commands.RegisterCandidateCommand{FirstName: "João", LastName: "Silva"},
			imageURL:  "https://example.com/candidates/joao-silva.jpg",
		},
		{
			party:     commands.RegisterPartyCommand{Name: "Partido Comunista Brasileiro", Description: "Partido Comunista Brasileiro", Acronym: "PCB"},
			candidate: commands.RegisterCandidateCommand{FirstName: "Maria", LastName: "Silva"},
			imageURL:  "https://example.com/candidates/maria-silva.png",
		},
	}
	for _, entry := range entries {
		party, err := module.Registry.RegisterParty(ctx, entry.party)
		if err != nil {
			logSeedFailure(logger, "party", err)
			continue
		}
		candidate, err := module.Registry.RegisterCandidate(ctx, entry.candidate)
		if err != nil {
			logSeedFailure(logger, "candidate", err)
			continue
		}
		candidature, err := module.Registry.RegisterCandidature(ctx, commands.RegisterCandidatureCommand{
			PartyID:     party.PartyID,
			CandidateID: candidate.CandidateID,
			Position:    entities.PositionPresident,
			ImageURL:    entry.imageURL,
		})
		if err != nil {
			logSeedFailure(logger, "candidature", err)
			continue
		}
		logger.Info("demo candidature seeded",
			"event", "bootstrap_seed_candidature",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"candidature_code", candidature.Code,
			"party_acronym", party.Acronym,
		)
	}

	voter, err := module.Registry.RegisterVoter(ctx, commands.RegisterVoterCommand{
		FirstName:  "Maria",
		LastName:   "Silva",
		MotherName: "Ana",
		FatherName: "José",
		BirthDate:  "01/01/2000",
	})
	if err != nil {
		logSeedFailure(logger, "voter", err)
		return
	}
	logger.Info("demo voter seeded",
		"event", "bootstrap_seed_voter",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"voter_id", voter.VoterID,
	)
}

func logSeedFailure(logger *slog.Logger, step string, err error) {
	logger.Warn("demo seed step failed",
		"event", "bootstrap_seed_failed",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"step", step,
		"error", err.Error(),
	)
}
