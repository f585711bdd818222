package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ballotbox/contexts/election-integrity/ballot-ledger/application"
	"ballotbox/contexts/election-integrity/ballot-ledger/application/commands"
	"ballotbox/contexts/election-integrity/ballot-ledger/application/queries"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	domainerrors "ballotbox/contexts/election-integrity/ballot-ledger/domain/errors"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/services"
	httptransport "ballotbox/contexts/election-integrity/ballot-ledger/transport/http"

	"github.com/google/uuid"
)

type Handler struct {
	Ledger    commands.VoteLedger
	Registry  commands.Registry
	Directory queries.CandidatureDirectory
	Tallies   queries.TallyAggregator
	Auditor   queries.ChainAuditor
	Logger    *slog.Logger
}

// SubmitVoteHandler godoc
// @Summary Cast a vote
// @Description Appends a vote for the candidature registered under the code to the hash chained ledger.
// @Tags votes
// @Accept json
// @Produce json
// @Param request body httptransport.SubmitVoteRequest true "request body"
// @Success 201 {object} httptransport.VoteResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /api/v1/votes [post]
func (h Handler) SubmitVoteHandler(ctx context.Context, req httptransport.SubmitVoteRequest) (httptransport.VoteResponse, error) {
	voterID := strings.TrimSpace(req.VoterID)
	if _, err := uuid.Parse(voterID); err != nil {
		h.logRejectedVote("voter_id is not a UUID", req)
		return httptransport.VoteResponse{}, fmt.Errorf("%w: voter_id must be a UUID", domainerrors.ErrInvalidVoteInput)
	}
	position, err := entities.ParsePosition(req.CandidaturePosition)
	if err != nil {
		h.logRejectedVote("unknown candidature_position", req)
		return httptransport.VoteResponse{}, err
	}
	vote, err := h.Ledger.Submit(ctx, commands.SubmitVoteCommand{
		VoterID:  voterID,
		Code:     req.CandidatureCode,
		Position: position,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		VoteID:              vote.VoteID,
		VoterID:             vote.VoterID,
		CandidatureID:       vote.CandidatureID,
		CandidaturePosition: vote.Position.String(),
		Hash:                vote.Hash,
		PreviousHash:        vote.PreviousHash,
		Year:                vote.Year,
		CreatedAt:           services.FormatChainTime(vote.CreatedAt),
	}, nil
}

// TallyHandler godoc
// @Summary Tally votes for an office in the current election year
// @Tags votes
// @Produce json
// @Param candidature_position query string true "office label, e.g. Presidente"
// @Success 200 {object} httptransport.TallyResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/v1/votes [get]
func (h Handler) TallyHandler(ctx context.Context, rawPosition string) (httptransport.TallyResponse, error) {
	position, err := entities.ParsePosition(rawPosition)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	rows, err := h.Tallies.Tally(ctx, position)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	items := make([]httptransport.TallyItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, httptransport.TallyItem{
			CandidatureID:   row.CandidatureID,
			CandidatureCode: row.CandidatureCode,
			CandidateName:   row.CandidateName,
			PartyName:       row.PartyName,
			PartyAcronym:    row.PartyAcronym,
			Votes:           row.Votes,
		})
	}
	return httptransport.TallyResponse{
		CandidaturePosition: position.String(),
		Items:               items,
	}, nil
}

// ListCandidaturesHandler godoc
// @Summary List candidatures running for an office in the current election year
// @Tags candidatures
// @Produce json
// @Param position query string true "office label, e.g. Presidente"
// @Success 200 {object} httptransport.CandidatureListResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/v1/candidatures [get]
func (h Handler) ListCandidaturesHandler(ctx context.Context, rawPosition string) (httptransport.CandidatureListResponse, error) {
	position, err := entities.ParsePosition(rawPosition)
	if err != nil {
		return httptransport.CandidatureListResponse{}, err
	}
	listings, err := h.Directory.List(ctx, position, 0)
	if err != nil {
		return httptransport.CandidatureListResponse{}, err
	}
	items := make([]httptransport.CandidatureResponse, 0, len(listings))
	for _, listing := range listings {
		items = append(items, mapListing(listing))
	}
	return httptransport.CandidatureListResponse{Items: items}, nil
}

// VerifyLedgerHandler returns the report for both intact and broken chains;
// only storage and configuration failures are errors.
//
// @Summary Verify the hash chain of the whole ledger
// @Tags ledger
// @Produce json
// @Success 200 {object} httptransport.ChainReportResponse
// @Failure 409 {object} httptransport.ChainReportResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/v1/ledger/verify [get]
func (h Handler) VerifyLedgerHandler(ctx context.Context) (httptransport.ChainReportResponse, error) {
	report, err := h.Auditor.Verify(ctx)
	if err != nil && !errors.Is(err, domainerrors.ErrChainBroken) {
		return httptransport.ChainReportResponse{}, err
	}
	resp := httptransport.ChainReportResponse{
		Length:   report.Length,
		HeadHash: report.HeadHash,
		Valid:    report.Valid,
	}
	if !report.Valid {
		brokenAt := report.BrokenAt
		resp.BrokenAt = &brokenAt
		resp.BrokenVoteID = report.BrokenVoteID
		resp.Reason = report.Reason
	}
	return resp, nil
}

// RegisterPartyHandler godoc
// @Summary Register a party
// @Tags registration
// @Accept json
// @Produce json
// @Param request body httptransport.RegisterPartyRequest true "request body"
// @Success 201 {object} httptransport.PartyResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/v1/parties [post]
func (h Handler) RegisterPartyHandler(ctx context.Context, req httptransport.RegisterPartyRequest) (httptransport.PartyResponse, error) {
	party, err := h.Registry.RegisterParty(ctx, commands.RegisterPartyCommand{
		Name:        req.Name,
		Description: req.Description,
		Acronym:     req.Acronym,
	})
	if err != nil {
		return httptransport.PartyResponse{}, err
	}
	return mapParty(party), nil
}

// RegisterCandidateHandler godoc
// @Summary Register a candidate
// @Tags registration
// @Accept json
// @Produce json
// @Param request body httptransport.RegisterCandidateRequest true "request body"
// @Success 201 {object} httptransport.CandidateResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/v1/candidates [post]
func (h Handler) RegisterCandidateHandler(ctx context.Context, req httptransport.RegisterCandidateRequest) (httptransport.CandidateResponse, error) {
	candidate, err := h.Registry.RegisterCandidate(ctx, commands.RegisterCandidateCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return httptransport.CandidateResponse{}, err
	}
	return mapCandidate(candidate), nil
}

// RegisterVoterHandler godoc
// @Summary Register a voter
// @Tags registration
// @Accept json
// @Produce json
// @Param request body httptransport.RegisterVoterRequest true "request body"
// @Success 201 {object} httptransport.VoterResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/v1/voters [post]
func (h Handler) RegisterVoterHandler(ctx context.Context, req httptransport.RegisterVoterRequest) (httptransport.VoterResponse, error) {
	voter, err := h.Registry.RegisterVoter(ctx, commands.RegisterVoterCommand{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MotherName: req.MotherName,
		FatherName: req.FatherName,
		BirthDate:  req.BirthDate,
	})
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return httptransport.VoterResponse{
		VoterID:    voter.VoterID,
		FirstName:  voter.FirstName,
		LastName:   voter.LastName,
		MotherName: voter.MotherName,
		FatherName: voter.FatherName,
		BirthDate:  voter.BirthDate,
	}, nil
}

// RegisterCandidatureHandler godoc
// @Summary Register a candidature
// @Tags candidatures
// @Accept json
// @Produce json
// @Param request body httptransport.RegisterCandidatureRequest true "request body"
// @Success 201 {object} httptransport.CandidatureResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/v1/candidatures [post]
func (h Handler) RegisterCandidatureHandler(
	ctx context.Context,
	req httptransport.RegisterCandidatureRequest,
) (httptransport.CandidatureResponse, error) {
	position, err := entities.ParsePosition(req.Position)
	if err != nil {
		return httptransport.CandidatureResponse{}, err
	}
	candidature, err := h.Registry.RegisterCandidature(ctx, commands.RegisterCandidatureCommand{
		PartyID:     req.PartyID,
		CandidateID: req.CandidateID,
		Position:    position,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return httptransport.CandidatureResponse{}, err
	}
	return mapListing(entities.CandidatureListing{
		Candidature: candidature,
		Party:       entities.Party{PartyID: candidature.PartyID},
		Candidate:   entities.Candidate{CandidateID: candidature.CandidateID},
	}), nil
}

func (h Handler) logRejectedVote(reason string, req httptransport.SubmitVoteRequest) {
	application.ResolveLogger(h.Logger).Warn("vote rejected",
		"event", "ballot_http_vote_rejected",
		"module", application.ModuleName,
		"layer", "adapter",
		"reason", reason,
		"candidature_position", req.CandidaturePosition,
	)
}

func mapListing(listing entities.CandidatureListing) httptransport.CandidatureResponse {
	return httptransport.CandidatureResponse{
		CandidatureID: listing.Candidature.CandidatureID,
		Code:          listing.Candidature.Code,
		Position:      listing.Candidature.Position.String(),
		Year:          listing.Candidature.Year,
		ImageURL:      listing.Candidature.ImageURL,
		Party:         mapParty(listing.Party),
		Candidate:     mapCandidate(listing.Candidate),
	}
}

func mapParty(party entities.Party) httptransport.PartyResponse {
	return httptransport.PartyResponse{
		PartyID:     party.PartyID,
		Name:        party.Name,
		Description: party.Description,
		Acronym:     party.Acronym,
	}
}

func mapCandidate(candidate entities.Candidate) httptransport.CandidateResponse {
	return httptransport.CandidateResponse{
		CandidateID: candidate.CandidateID,
		FirstName:   candidate.FirstName,
		LastName:    candidate.LastName,
	}
}
