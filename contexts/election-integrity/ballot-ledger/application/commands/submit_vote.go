package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	application "ballotbox/contexts/election-integrity/ballot-ledger/application"
	"ballotbox/contexts/election-integrity/ballot-ledger/application/queries"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	domainerrors "ballotbox/contexts/election-integrity/ballot-ledger/domain/errors"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/services"
	"ballotbox/contexts/election-integrity/ballot-ledger/ports"
)

const DefaultAppendAttempts = 5

// SubmitVoteCommand is a voter's choice for one office.
type SubmitVoteCommand struct {
	VoterID  string
	Code     string
	Position entities.Position
}

// VoteLedger appends votes to the global hash chain.
type VoteLedger struct {
	Directory      queries.CandidatureDirectory
	Ledger         ports.LedgerStore
	Digester       services.ChainDigester
	Cycle          ports.ElectionCycle
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	AppendAttempts int
	Logger         *slog.Logger
}

// Submit validates the command, resolves the candidature and appends the vote
// after the current ledger head. The duplicate check, head read and insert run
// in one exclusive unit of work; a head race reported by storage is retried.
func (l VoteLedger) Submit(ctx context.Context, cmd SubmitVoteCommand) (entities.Vote, error) {
	logger := application.ResolveLogger(l.Logger)
	voterID := strings.TrimSpace(cmd.VoterID)
	code := strings.TrimSpace(cmd.Code)
	if !l.Digester.Configured() {
		return entities.Vote{}, domainerrors.ErrMissingSecretKey
	}
	if voterID == "" || code == "" {
		logger.Warn("vote submission validation failed",
			"event", "ballot_vote_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"voter_id", voterID,
			"candidature_code", code,
		)
		return entities.Vote{}, domainerrors.ErrInvalidVoteInput
	}
	if !cmd.Position.IsValid() {
		return entities.Vote{}, fmt.Errorf("%w: %d", domainerrors.ErrUnknownPosition, uint8(cmd.Position))
	}

	year := application.CurrentYear(l.Cycle, l.Clock)
	candidature, err := l.Directory.Resolve(ctx, code, cmd.Position, year)
	if err != nil {
		return entities.Vote{}, err
	}

	attempts := l.AppendAttempts
	if attempts <= 0 {
		attempts = DefaultAppendAttempts
	}
	for attempt := 1; ; attempt++ {
		vote, err := l.appendOnce(ctx, voterID, candidature, year)
		if err == nil {
			logger.Info("vote appended",
				"event", "ballot_vote_appended",
				"module", application.ModuleName,
				"layer", "application",
				"vote_id", vote.VoteID,
				"candidature_id", vote.CandidatureID,
				"position", vote.Position.String(),
				"year", vote.Year,
				"attempt", attempt,
			)
			return vote, nil
		}
		if !errors.Is(err, domainerrors.ErrChainConflict) || attempt >= attempts {
			logger.Warn("vote append rejected",
				"event", "ballot_vote_append_rejected",
				"module", application.ModuleName,
				"layer", "application",
				"voter_id", voterID,
				"candidature_id", candidature.CandidatureID,
				"attempt", attempt,
				"error", err.Error(),
			)
			return entities.Vote{}, err
		}
		logger.Debug("vote append retrying after head conflict",
			"event", "ballot_vote_append_retry",
			"module", application.ModuleName,
			"layer", "application",
			"candidature_id", candidature.CandidatureID,
			"attempt", attempt,
		)
	}
}

func (l VoteLedger) appendOnce(
	ctx context.Context,
	voterID string,
	candidature entities.Candidature,
	year int,
) (entities.Vote, error) {
	var appended entities.Vote
	err := l.Ledger.RunInAppendTx(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		if _, found, err := tx.GetVoteByVoter(ctx, voterID, candidature.Position, year); err != nil {
			return err
		} else if found {
			return domainerrors.ErrDuplicateVote
		}

		previous := services.GenesisLink()
		if head, found, err := tx.LatestVote(ctx); err != nil {
			return err
		} else if found {
			previous = services.LinkOf(head)
		}

		voteID, err := l.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		vote := entities.Vote{
			VoteID:        voteID,
			VoterID:       voterID,
			CandidatureID: candidature.CandidatureID,
			Position:      candidature.Position,
			Hash:          l.Digester.Link(voterID, candidature.CandidatureID, previous),
			PreviousHash:  previous.Hash,
			Year:          year,
			CreatedAt:     services.NextCreatedAt(application.Now(l.Clock), previous),
		}
		if err := tx.InsertVote(ctx, vote); err != nil {
			return err
		}

		eventID, err := l.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		envelope, err := newVoteCastEnvelope(eventID, vote, candidature.Code)
		if err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, envelope); err != nil {
			return err
		}
		appended = vote
		return nil
	})
	if err != nil {
		return entities.Vote{}, err
	}
	return appended, nil
}
