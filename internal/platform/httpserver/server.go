package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	ballotledger "ballotbox/contexts/election-integrity/ballot-ledger"
	ballotdomainerrors "ballotbox/contexts/election-integrity/ballot-ledger/domain/errors"
	ballothttp "ballotbox/contexts/election-integrity/ballot-ledger/transport/http"
	_ "ballotbox/internal/platform/httpserver/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	srv     *http.Server
	ballots ballotledger.Module
}

func New(ballots ballotledger.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		ballots: ballots,
	}
	s.registerRoutes()
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /api/v1/candidatures", s.handleListCandidatures)
	s.mux.HandleFunc("POST /api/v1/candidatures", s.handleRegisterCandidature)
	s.mux.HandleFunc("GET /api/v1/votes", s.handleTally)
	s.mux.HandleFunc("POST /api/v1/votes", s.handleSubmitVote)
	s.mux.HandleFunc("GET /api/v1/ledger/verify", s.handleVerifyLedger)
	s.mux.HandleFunc("POST /api/v1/parties", s.handleRegisterParty)
	s.mux.HandleFunc("POST /api/v1/candidates", s.handleRegisterCandidate)
	s.mux.HandleFunc("POST /api/v1/voters", s.handleRegisterVoter)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCandidatures(w http.ResponseWriter, r *http.Request) {
	position := r.URL.Query().Get("position")
	if position == "" {
		writeBallotError(w, http.StatusBadRequest, "missing_position", "position query parameter is required")
		return
	}
	resp, err := s.ballots.Handler.ListCandidaturesHandler(r.Context(), position)
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	position := r.URL.Query().Get("candidature_position")
	if position == "" {
		writeBallotError(w, http.StatusBadRequest, "missing_position", "candidature_position query parameter is required")
		return
	}
	resp, err := s.ballots.Handler.TallyHandler(r.Context(), position)
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	var req ballothttp.SubmitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ballots.Handler.SubmitVoteHandler(r.Context(), req)
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.VerifyLedgerHandler(r.Context())
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if !resp.Valid {
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleRegisterParty(w http.ResponseWriter, r *http.Request) {
	var req ballothttp.RegisterPartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ballots.Handler.RegisterPartyHandler(r.Context(), req)
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRegisterCandidate(w http.ResponseWriter, r *http.Request) {
	var req ballothttp.RegisterCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ballots.Handler.RegisterCandidateHandler(r.Context(), req)
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	var req ballothttp.RegisterVoterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ballots.Handler.RegisterVoterHandler(r.Context(), req)
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRegisterCandidature(w http.ResponseWriter, r *http.Request) {
	var req ballothttp.RegisterCandidatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ballots.Handler.RegisterCandidatureHandler(r.Context(), req)
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) writeBallotDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ballotdomainerrors.ErrUnknownPosition):
		writeBallotError(w, http.StatusBadRequest, "unknown_position", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidVoteInput):
		writeBallotError(w, http.StatusBadRequest, "invalid_vote", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidRegistration):
		writeBallotError(w, http.StatusBadRequest, "invalid_registration", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrUnknownReference):
		writeBallotError(w, http.StatusUnprocessableEntity, "unknown_reference", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrCandidatureNotFound):
		writeBallotError(w, http.StatusNotFound, "candidature_not_found", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrDuplicateVote):
		writeBallotError(w, http.StatusConflict, "duplicate_vote", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrDuplicateCandidature):
		writeBallotError(w, http.StatusConflict, "duplicate_candidature", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrChainConflict):
		writeBallotError(w, http.StatusServiceUnavailable, "ledger_busy", err.Error())
	default:
		s.logger.Error("ballot request failed",
			"event", "http_ballot_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeBallotError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeBallotError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ballothttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
