package queries

import (
	"context"
	"log/slog"

	application "ballotbox/contexts/election-integrity/ballot-ledger/application"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	domainerrors "ballotbox/contexts/election-integrity/ballot-ledger/domain/errors"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/services"
	"ballotbox/contexts/election-integrity/ballot-ledger/ports"
)

// ChainAuditor re-derives every hash of the ledger from its predecessor.
type ChainAuditor struct {
	Chain    ports.ChainReader
	Digester services.ChainDigester
	Logger   *slog.Logger
}

// Verify walks the ledger from genesis. A broken chain is reported with the
// offending index and returns ErrChainBroken alongside the report.
func (a ChainAuditor) Verify(ctx context.Context) (entities.ChainReport, error) {
	logger := application.ResolveLogger(a.Logger)
	if !a.Digester.Configured() {
		return entities.ChainReport{}, domainerrors.ErrMissingSecretKey
	}
	votes, err := a.Chain.ListVotesInChainOrder(ctx)
	if err != nil {
		logger.Error("ledger scan failed",
			"event", "ballot_ledger_scan_failed",
			"module", application.ModuleName,
			"layer", "application",
			"error", err.Error(),
		)
		return entities.ChainReport{}, asPersistence(err)
	}

	report := entities.ChainReport{Length: len(votes), HeadHash: services.GenesisHash, Valid: true}
	previous := services.GenesisLink()
	for i, vote := range votes {
		reason := ""
		switch {
		case vote.PreviousHash != previous.Hash:
			reason = "previous_hash does not match predecessor hash"
		case !vote.CreatedAt.After(previous.CreatedAt):
			reason = "created_at is not after predecessor"
		case !a.Digester.Verify(vote, previous):
			reason = "hash does not match recomputed digest"
		}
		if reason != "" {
			report.Valid = false
			report.BrokenAt = i
			report.BrokenVoteID = vote.VoteID
			report.Reason = reason
			report.HeadHash = previous.Hash
			logger.Warn("ledger chain broken",
				"event", "ballot_ledger_chain_broken",
				"module", application.ModuleName,
				"layer", "application",
				"index", i,
				"vote_id", vote.VoteID,
				"reason", reason,
			)
			return report, domainerrors.ErrChainBroken
		}
		previous = services.LinkOf(vote)
	}
	report.HeadHash = previous.Hash
	logger.Info("ledger chain verified",
		"event", "ballot_ledger_chain_verified",
		"module", application.ModuleName,
		"layer", "application",
		"length", report.Length,
		"head_hash", report.HeadHash,
	)
	return report, nil
}
