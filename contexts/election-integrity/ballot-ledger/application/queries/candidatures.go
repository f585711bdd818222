package queries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	application "ballotbox/contexts/election-integrity/ballot-ledger/application"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	domainerrors "ballotbox/contexts/election-integrity/ballot-ledger/domain/errors"
	"ballotbox/contexts/election-integrity/ballot-ledger/ports"
)

// CandidatureDirectory resolves ballot codes to registered candidatures.
type CandidatureDirectory struct {
	Candidatures ports.CandidatureRepository
	Cycle        ports.ElectionCycle
	Clock        ports.Clock
	Logger       *slog.Logger
}

// Resolve returns the single candidature registered under code for the
// position and year. A year <= 0 selects the current election cycle.
// No match and an ambiguous match both fail with ErrCandidatureNotFound.
func (d CandidatureDirectory) Resolve(
	ctx context.Context,
	code string,
	position entities.Position,
	year int,
) (entities.Candidature, error) {
	logger := application.ResolveLogger(d.Logger)
	code = strings.TrimSpace(code)
	if code == "" {
		return entities.Candidature{}, domainerrors.ErrInvalidVoteInput
	}
	if !position.IsValid() {
		return entities.Candidature{}, fmt.Errorf("%w: %d", domainerrors.ErrUnknownPosition, uint8(position))
	}
	if year <= 0 {
		year = application.CurrentYear(d.Cycle, d.Clock)
	}

	matches, err := d.Candidatures.FindCandidatures(ctx, code, position, year, 2)
	if err != nil {
		logger.Error("candidature lookup failed",
			"event", "ballot_candidature_lookup_failed",
			"module", application.ModuleName,
			"layer", "application",
			"candidature_code", code,
			"position", position.String(),
			"year", year,
			"error", err.Error(),
		)
		return entities.Candidature{}, asPersistence(err)
	}
	if len(matches) != 1 {
		logger.Warn("candidature not resolved",
			"event", "ballot_candidature_not_resolved",
			"module", application.ModuleName,
			"layer", "application",
			"candidature_code", code,
			"position", position.String(),
			"year", year,
			"matches", len(matches),
		)
		return entities.Candidature{}, domainerrors.ErrCandidatureNotFound
	}
	return matches[0], nil
}

// List returns the candidatures running for position in year (current cycle
// when year <= 0), joined with party and candidate details.
func (d CandidatureDirectory) List(
	ctx context.Context,
	position entities.Position,
	year int,
) ([]entities.CandidatureListing, error) {
	if !position.IsValid() {
		return nil, fmt.Errorf("%w: %d", domainerrors.ErrUnknownPosition, uint8(position))
	}
	if year <= 0 {
		year = application.CurrentYear(d.Cycle, d.Clock)
	}
	items, err := d.Candidatures.ListCandidatures(ctx, position, year)
	if err != nil {
		application.ResolveLogger(d.Logger).Error("candidature listing failed",
			"event", "ballot_candidature_list_failed",
			"module", application.ModuleName,
			"layer", "application",
			"position", position.String(),
			"year", year,
			"error", err.Error(),
		)
		return nil, asPersistence(err)
	}
	return items, nil
}

func asPersistence(err error) error {
	if errors.Is(err, domainerrors.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", domainerrors.ErrPersistence, err)
}
