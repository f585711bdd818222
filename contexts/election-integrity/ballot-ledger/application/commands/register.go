package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	application "ballotbox/contexts/election-integrity/ballot-ledger/application"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	domainerrors "ballotbox/contexts/election-integrity/ballot-ledger/domain/errors"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/services"
	"ballotbox/contexts/election-integrity/ballot-ledger/ports"
)

const defaultCodeAttempts = 5

type RegisterPartyCommand struct {
	Name        string
	Description string
	Acronym     string
}

type RegisterCandidateCommand struct {
	FirstName string
	LastName  string
}

type RegisterVoterCommand struct {
	FirstName  string
	LastName   string
	MotherName string
	FatherName string
	BirthDate  string
}

type RegisterCandidatureCommand struct {
	PartyID     string
	CandidateID string
	Position    entities.Position
	ImageURL    string
}

// Registry writes the reference data votes point at.
type Registry struct {
	Registrations ports.RegistrationRepository
	Cycle         ports.ElectionCycle
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	// CodeSource feeds ballot code generation; nil means crypto/rand.
	CodeSource io.Reader
	Logger     *slog.Logger
}

func (r Registry) RegisterParty(ctx context.Context, cmd RegisterPartyCommand) (entities.Party, error) {
	party := entities.Party{
		Name:        strings.TrimSpace(cmd.Name),
		Description: strings.TrimSpace(cmd.Description),
		Acronym:     strings.TrimSpace(cmd.Acronym),
	}
	if party.Name == "" || party.Acronym == "" {
		return entities.Party{}, fmt.Errorf("%w: party name and acronym are required", domainerrors.ErrInvalidRegistration)
	}
	id, err := r.IDGen.NewID(ctx)
	if err != nil {
		return entities.Party{}, err
	}
	party.PartyID = id
	if err := r.Registrations.CreateParty(ctx, party); err != nil {
		r.logFailure("party", err)
		return entities.Party{}, err
	}
	r.logRegistered("party", party.PartyID)
	return party, nil
}

func (r Registry) RegisterCandidate(ctx context.Context, cmd RegisterCandidateCommand) (entities.Candidate, error) {
	candidate := entities.Candidate{
		FirstName: strings.TrimSpace(cmd.FirstName),
		LastName:  strings.TrimSpace(cmd.LastName),
	}
	if candidate.FirstName == "" || candidate.LastName == "" {
		return entities.Candidate{}, fmt.Errorf("%w: candidate first and last name are required", domainerrors.ErrInvalidRegistration)
	}
	id, err := r.IDGen.NewID(ctx)
	if err != nil {
		return entities.Candidate{}, err
	}
	candidate.CandidateID = id
	if err := r.Registrations.CreateCandidate(ctx, candidate); err != nil {
		r.logFailure("candidate", err)
		return entities.Candidate{}, err
	}
	r.logRegistered("candidate", candidate.CandidateID)
	return candidate, nil
}

func (r Registry) RegisterVoter(ctx context.Context, cmd RegisterVoterCommand) (entities.Voter, error) {
	voter := entities.Voter{
		FirstName:  strings.TrimSpace(cmd.FirstName),
		LastName:   strings.TrimSpace(cmd.LastName),
		MotherName: strings.TrimSpace(cmd.MotherName),
		FatherName: strings.TrimSpace(cmd.FatherName),
		BirthDate:  strings.TrimSpace(cmd.BirthDate),
	}
	if voter.FirstName == "" || voter.LastName == "" || voter.BirthDate == "" {
		return entities.Voter{}, fmt.Errorf("%w: voter name and birth date are required", domainerrors.ErrInvalidRegistration)
	}
	id, err := r.IDGen.NewID(ctx)
	if err != nil {
		return entities.Voter{}, err
	}
	voter.VoterID = id
	if err := r.Registrations.CreateVoter(ctx, voter); err != nil {
		r.logFailure("voter", err)
		return entities.Voter{}, err
	}
	r.logRegistered("voter", voter.VoterID)
	return voter, nil
}

// RegisterCandidature enrolls a candidate of a party for an office in the
// current election year under a fresh random ballot code.
func (r Registry) RegisterCandidature(ctx context.Context, cmd RegisterCandidatureCommand) (entities.Candidature, error) {
	candidature := entities.Candidature{
		PartyID:     strings.TrimSpace(cmd.PartyID),
		CandidateID: strings.TrimSpace(cmd.CandidateID),
		Position:    cmd.Position,
		Year:        application.CurrentYear(r.Cycle, r.Clock),
		ImageURL:    strings.TrimSpace(cmd.ImageURL),
	}
	if candidature.PartyID == "" || candidature.CandidateID == "" {
		return entities.Candidature{}, fmt.Errorf("%w: party and candidate are required", domainerrors.ErrInvalidRegistration)
	}
	if !candidature.Position.IsValid() {
		return entities.Candidature{}, fmt.Errorf("%w: %d", domainerrors.ErrUnknownPosition, uint8(candidature.Position))
	}
	id, err := r.IDGen.NewID(ctx)
	if err != nil {
		return entities.Candidature{}, err
	}
	candidature.CandidatureID = id

	for attempt := 1; ; attempt++ {
		code, err := services.GenerateBallotCode(r.CodeSource)
		if err != nil {
			return entities.Candidature{}, err
		}
		candidature.Code = code
		err = r.Registrations.CreateCandidature(ctx, candidature)
		if err == nil {
			break
		}
		if !errors.Is(err, domainerrors.ErrDuplicateCandidature) || attempt >= defaultCodeAttempts {
			r.logFailure("candidature", err)
			return entities.Candidature{}, err
		}
	}
	r.logRegistered("candidature", candidature.CandidatureID)
	return candidature, nil
}

func (r Registry) logRegistered(kind string, id string) {
	application.ResolveLogger(r.Logger).Info("registration stored",
		"event", "ballot_"+kind+"_registered",
		"module", application.ModuleName,
		"layer", "application",
		kind+"_id", id,
	)
}

func (r Registry) logFailure(kind string, err error) {
	application.ResolveLogger(r.Logger).Error("registration failed",
		"event", "ballot_"+kind+"_registration_failed",
		"module", application.ModuleName,
		"layer", "application",
		"error", err.Error(),
	)
}
