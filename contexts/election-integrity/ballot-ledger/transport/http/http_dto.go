package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SubmitVoteRequest struct {
	VoterID             string `json:"voter_id"`
	CandidatureCode     string `json:"candidature_code"`
	CandidaturePosition string `json:"candidature_position"`
}

type VoteResponse struct {
	VoteID              string `json:"id"`
	VoterID             string `json:"voter_id"`
	CandidatureID       string `json:"candidature_id"`
	CandidaturePosition string `json:"candidature_position"`
	Hash                string `json:"hash"`
	PreviousHash        string `json:"previous_hash"`
	Year                int    `json:"year"`
	CreatedAt           string `json:"created_at"`
}

type PartyResponse struct {
	PartyID     string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Acronym     string `json:"acronym"`
}

type CandidateResponse struct {
	CandidateID string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
}

type CandidatureResponse struct {
	CandidatureID string            `json:"id"`
	Code          string            `json:"code"`
	Position      string            `json:"position"`
	Year          int               `json:"year"`
	ImageURL      string            `json:"image_url"`
	Party         PartyResponse     `json:"party"`
	Candidate     CandidateResponse `json:"candidate"`
}

type CandidatureListResponse struct {
	Items []CandidatureResponse `json:"items"`
}

type TallyItem struct {
	CandidatureID   string `json:"candidature_id"`
	CandidatureCode string `json:"candidature_code"`
	CandidateName   string `json:"candidate_name"`
	PartyName       string `json:"party_name"`
	PartyAcronym    string `json:"party_acronym"`
	Votes           int    `json:"votes"`
}

type TallyResponse struct {
	CandidaturePosition string      `json:"candidature_position"`
	Items               []TallyItem `json:"items"`
}

type ChainReportResponse struct {
	Length       int    `json:"length"`
	HeadHash     string `json:"head_hash"`
	Valid        bool   `json:"valid"`
	BrokenAt     *int   `json:"broken_at,omitempty"`
	BrokenVoteID string `json:"broken_vote_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type RegisterPartyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Acronym     string `json:"acronym"`
}

type RegisterCandidateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type RegisterVoterRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MotherName string `json:"mother_name"`
	FatherName string `json:"father_name"`
	BirthDate  string `json:"birth_date"`
}

type VoterResponse struct {
	VoterID    string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MotherName string `json:"mother_name"`
	FatherName string `json:"father_name"`
	BirthDate  string `json:"birth_date"`
}

type RegisterCandidatureRequest struct {
	PartyID     string `json:"party_id"`
	CandidateID string `json:"candidate_id"`
	Position    string `json:"position"`
	ImageURL    string `json:"image_url"`
}
