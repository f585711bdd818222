package queries

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	application "ballotbox/contexts/election-integrity/ballot-ledger/application"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	domainerrors "ballotbox/contexts/election-integrity/ballot-ledger/domain/errors"
	"ballotbox/contexts/election-integrity/ballot-ledger/ports"
)

// TallyAggregator counts committed votes per candidature.
type TallyAggregator struct {
	Tallies ports.TallyRepository
	Cycle   ports.ElectionCycle
	Clock   ports.Clock
	Logger  *slog.Logger
}

// Tally returns one row per candidature of position that received at least
// one vote in the current election year, most voted first.
func (a TallyAggregator) Tally(ctx context.Context, position entities.Position) ([]entities.TallyRow, error) {
	if !position.IsValid() {
		return nil, fmt.Errorf("%w: %d", domainerrors.ErrUnknownPosition, uint8(position))
	}
	year := application.CurrentYear(a.Cycle, a.Clock)
	rows, err := a.Tallies.CountVotesByCandidature(ctx, position, year)
	if err != nil {
		application.ResolveLogger(a.Logger).Error("tally query failed",
			"event", "ballot_tally_failed",
			"module", application.ModuleName,
			"layer", "application",
			"position", position.String(),
			"year", year,
			"error", err.Error(),
		)
		return nil, asPersistence(err)
	}
	filtered := make([]entities.TallyRow, 0, len(rows))
	for _, row := range rows {
		if row.Votes > 0 {
			filtered = append(filtered, row)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Votes == filtered[j].Votes {
			return filtered[i].CandidatureCode < filtered[j].CandidatureCode
		}
		return filtered[i].Votes > filtered[j].Votes
	})
	return filtered, nil
}
