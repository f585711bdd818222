package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	ballotledger "ballotbox/contexts/election-integrity/ballot-ledger"
	"ballotbox/contexts/election-integrity/ballot-ledger/adapters/memory"
	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	ballothttp "ballotbox/contexts/election-integrity/ballot-ledger/transport/http"
)

const (
	testElectionYear = 2026
	testVoterID      = "0190f5a4-7b8e-7c4d-9a1e-3f2b1c0d9e8f"
)

func newBallotTestServer(t *testing.T) *Server {
	t.Helper()
	module, err := ballotledger.NewInMemoryModule(memory.Seed{
		Parties:    []entities.Party{{PartyID: "party-1", Name: "Partido Social Democrático", Acronym: "PSD"}},
		Candidates: []entities.Candidate{{CandidateID: "cand-1", FirstName: "João", LastName: "Silva"}},
		Candidatures: []entities.Candidature{{
			CandidatureID: "cu-1",
			PartyID:       "party-1",
			CandidateID:   "cand-1",
			Code:          "ABC12345",
			Position:      entities.PositionPresident,
			Year:          testElectionYear,
		}},
	}, []byte("test-secret"), ballotledger.BusPorts{}, nil)
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	module.Store.SetElectionYear(testElectionYear)
	return New(module, nil, ":0")
}

func doJSON(t *testing.T, server *Server, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func TestSubmitVoteThenDuplicate(t *testing.T) {
	server := newBallotTestServer(t)
	req := ballothttp.SubmitVoteRequest{
		VoterID:             testVoterID,
		CandidatureCode:     "ABC12345",
		CandidaturePosition: "Presidente",
	}

	rr := doJSON(t, server, http.MethodPost, "/api/v1/votes", req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var vote ballothttp.VoteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &vote); err != nil {
		t.Fatalf("decode vote: %v", err)
	}
	if vote.CandidatureID != "cu-1" || len(vote.Hash) != 64 || vote.Year != testElectionYear {
		t.Fatalf("unexpected vote response: %+v", vote)
	}

	rr = doJSON(t, server, http.MethodPost, "/api/v1/votes", req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second vote, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSubmitVoteValidation(t *testing.T) {
	server := newBallotTestServer(t)
	cases := []struct {
		name   string
		req    ballothttp.SubmitVoteRequest
		status int
	}{
		{
			name:   "voter id is not a uuid",
			req:    ballothttp.SubmitVoteRequest{VoterID: "voter-1", CandidatureCode: "ABC12345", CandidaturePosition: "Presidente"},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown position",
			req:    ballothttp.SubmitVoteRequest{VoterID: testVoterID, CandidatureCode: "ABC12345", CandidaturePosition: "Imperador"},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown ballot code",
			req:    ballothttp.SubmitVoteRequest{VoterID: testVoterID, CandidatureCode: "ZZZ99999", CandidaturePosition: "Presidente"},
			status: http.StatusNotFound,
		},
		{
			name:   "code registered for another office",
			req:    ballothttp.SubmitVoteRequest{VoterID: testVoterID, CandidatureCode: "ABC12345", CandidaturePosition: "Governador"},
			status: http.StatusNotFound,
		},
	}
	for _, tc := range cases {
		rr := doJSON(t, server, http.MethodPost, "/api/v1/votes", tc.req)
		if rr.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d body=%s", tc.name, tc.status, rr.Code, rr.Body.String())
		}
	}
}

func TestSubmitVoteRejectsMalformedJSON(t *testing.T) {
	server := newBallotTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/votes", bytes.NewReader([]byte("{")))
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestTallyAfterVote(t *testing.T) {
	server := newBallotTestServer(t)
	rr := doJSON(t, server, http.MethodPost, "/api/v1/votes", ballothttp.SubmitVoteRequest{
		VoterID:             testVoterID,
		CandidatureCode:     "ABC12345",
		CandidaturePosition: "President",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, "/api/v1/votes?candidature_position=Presidente", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var tally ballothttp.TallyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &tally); err != nil {
		t.Fatalf("decode tally: %v", err)
	}
	if len(tally.Items) != 1 || tally.Items[0].Votes != 1 || tally.Items[0].CandidateName != "João Silva" {
		t.Fatalf("unexpected tally: %+v", tally)
	}

	rr = doJSON(t, server, http.MethodGet, "/api/v1/votes", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without position, got %d", rr.Code)
	}
}

func TestListCandidatures(t *testing.T) {
	server := newBallotTestServer(t)
	rr := doJSON(t, server, http.MethodGet, "/api/v1/candidatures?position=Presidente", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var list ballothttp.CandidatureListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Party.Acronym != "PSD" || list.Items[0].Code != "ABC12345" {
		t.Fatalf("unexpected listing: %+v", list)
	}

	rr = doJSON(t, server, http.MethodGet, "/api/v1/candidatures?position=Rei", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown position, got %d", rr.Code)
	}
}

func TestVerifyLedger(t *testing.T) {
	server := newBallotTestServer(t)
	rr := doJSON(t, server, http.MethodGet, "/api/v1/ledger/verify", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var report ballothttp.ChainReportResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.Valid || report.Length != 0 {
		t.Fatalf("unexpected report for empty ledger: %+v", report)
	}
}

func TestRegistrationFlow(t *testing.T) {
	server := newBallotTestServer(t)

	rr := doJSON(t, server, http.MethodPost, "/api/v1/parties", ballothttp.RegisterPartyRequest{
		Name:    "Partido Comunista Brasileiro",
		Acronym: "PCB",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for party, got %d body=%s", rr.Code, rr.Body.String())
	}
	var party ballothttp.PartyResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &party)

	rr = doJSON(t, server, http.MethodPost, "/api/v1/candidates", ballothttp.RegisterCandidateRequest{
		FirstName: "Maria",
		LastName:  "Silva",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for candidate, got %d body=%s", rr.Code, rr.Body.String())
	}
	var candidate ballothttp.CandidateResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &candidate)

	rr = doJSON(t, server, http.MethodPost, "/api/v1/candidatures", ballothttp.RegisterCandidatureRequest{
		PartyID:     party.PartyID,
		CandidateID: candidate.CandidateID,
		Position:    "Presidente",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for candidature, got %d body=%s", rr.Code, rr.Body.String())
	}
	var candidature ballothttp.CandidatureResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &candidature)
	if len(candidature.Code) != 8 || candidature.Year != testElectionYear {
		t.Fatalf("unexpected candidature: %+v", candidature)
	}

	rr = doJSON(t, server, http.MethodPost, "/api/v1/candidatures", ballothttp.RegisterCandidatureRequest{
		PartyID:     "missing",
		CandidateID: candidate.CandidateID,
		Position:    "Presidente",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown party, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/v1/voters", ballothttp.RegisterVoterRequest{FirstName: "Maria"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete voter, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSwaggerDocumentListsBallotRoutes(t *testing.T) {
	server := newBallotTestServer(t)
	rr := doJSON(t, server, http.MethodGet, "/swagger/doc.json", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode swagger document: %v", err)
	}
	if doc.Info.Title != "ballotbox API" {
		t.Fatalf("unexpected title %q", doc.Info.Title)
	}
	routes := map[string][]string{
		"/api/v1/votes":         {"get", "post"},
		"/api/v1/candidatures":  {"get", "post"},
		"/api/v1/ledger/verify": {"get"},
		"/api/v1/parties":       {"post"},
		"/api/v1/candidates":    {"post"},
		"/api/v1/voters":        {"post"},
	}
	for path, methods := range routes {
		for _, method := range methods {
			if _, ok := doc.Paths[path][method]; !ok {
				t.Fatalf("swagger document is missing %s %s", method, path)
			}
		}
	}
}
