package postgresadapter

import (
	"time"

	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
)

type partyModel struct {
	ID          string `gorm:"column:id;primaryKey"`
	Name        string `gorm:"column:name"`
	Description string `gorm:"column:description"`
	Acronym     string `gorm:"column:acronym"`
}

func (partyModel) TableName() string {
	return "parties"
}

type candidateModel struct {
	ID        string `gorm:"column:id;primaryKey"`
	FirstName string `gorm:"column:first_name"`
	LastName  string `gorm:"column:last_name"`
}

func (candidateModel) TableName() string {
	return "candidates"
}

type voterModel struct {
	ID         string `gorm:"column:id;primaryKey"`
	FirstName  string `gorm:"column:first_name"`
	LastName   string `gorm:"column:last_name"`
	MotherName string `gorm:"column:mother_name"`
	FatherName string `gorm:"column:father_name"`
	BirthDate  string `gorm:"column:birth_date"`
}

func (voterModel) TableName() string {
	return "voters"
}

type candidatureModel struct {
	ID          string `gorm:"column:id;primaryKey"`
	PartyID     string `gorm:"column:party_id"`
	CandidateID string `gorm:"column:candidate_id"`
	Code        string `gorm:"column:code"`
	Position    string `gorm:"column:position"`
	Year        int    `gorm:"column:year"`
	ImageURL    string `gorm:"column:image_url"`
}

func (candidatureModel) TableName() string {
	return "candidatures"
}

func candidatureModelFromEntity(item entities.Candidature) candidatureModel {
	return candidatureModel{
		ID:          item.CandidatureID,
		PartyID:     item.PartyID,
		CandidateID: item.CandidateID,
		Code:        item.Code,
		Position:    item.Position.String(),
		Year:        item.Year,
		ImageURL:    item.ImageURL,
	}
}

func (m candidatureModel) toEntity() (entities.Candidature, error) {
	position, err := entities.ParsePosition(m.Position)
	if err != nil {
		return entities.Candidature{}, err
	}
	return entities.Candidature{
		CandidatureID: m.ID,
		PartyID:       m.PartyID,
		CandidateID:   m.CandidateID,
		Code:          m.Code,
		Position:      position,
		Year:          m.Year,
		ImageURL:      m.ImageURL,
	}, nil
}

type candidatureListingRow struct {
	candidatureModel
	PartyName          string `gorm:"column:party_name"`
	PartyDescription   string `gorm:"column:party_description"`
	PartyAcronym       string `gorm:"column:party_acronym"`
	CandidateFirstName string `gorm:"column:candidate_first_name"`
	CandidateLastName  string `gorm:"column:candidate_last_name"`
}

func (m candidatureListingRow) toEntity() (entities.CandidatureListing, error) {
	candidature, err := m.candidatureModel.toEntity()
	if err != nil {
		return entities.CandidatureListing{}, err
	}
	return entities.CandidatureListing{
		Candidature: candidature,
		Party: entities.Party{
			PartyID:     m.PartyID,
			Name:        m.PartyName,
			Description: m.PartyDescription,
			Acronym:     m.PartyAcronym,
		},
		Candidate: entities.Candidate{
			CandidateID: m.CandidateID,
			FirstName:   m.CandidateFirstName,
			LastName:    m.CandidateLastName,
		},
	}, nil
}

type tallyRow struct {
	CandidatureID   string `gorm:"column:candidature_id"`
	CandidatureCode string `gorm:"column:candidature_code"`
	FirstName       string `gorm:"column:first_name"`
	LastName        string `gorm:"column:last_name"`
	PartyName       string `gorm:"column:party_name"`
	PartyAcronym    string `gorm:"column:party_acronym"`
	Votes           int    `gorm:"column:votes"`
}

type voteModel struct {
	ID                  string    `gorm:"column:id;primaryKey"`
	VoterID             string    `gorm:"column:voter_id"`
	CandidatureID       string    `gorm:"column:candidature_id"`
	CandidaturePosition string    `gorm:"column:candidature_position"`
	Hash                string    `gorm:"column:hash"`
	PreviousHash        string    `gorm:"column:previous_hash"`
	Year                int       `gorm:"column:year"`
	CreatedAt           time.Time `gorm:"column:created_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	return voteModel{
		ID:                  vote.VoteID,
		VoterID:             vote.VoterID,
		CandidatureID:       vote.CandidatureID,
		CandidaturePosition: vote.Position.String(),
		Hash:                vote.Hash,
		PreviousHash:        vote.PreviousHash,
		Year:                vote.Year,
		CreatedAt:           vote.CreatedAt.UTC(),
	}
}

func (m voteModel) toEntity() (entities.Vote, error) {
	position, err := entities.ParsePosition(m.CandidaturePosition)
	if err != nil {
		return entities.Vote{}, err
	}
	return entities.Vote{
		VoteID:        m.ID,
		VoterID:       m.VoterID,
		CandidatureID: m.CandidatureID,
		Position:      position,
		Hash:          m.Hash,
		PreviousHash:  m.PreviousHash,
		Year:          m.Year,
		CreatedAt:     m.CreatedAt.UTC(),
	}, nil
}

func toVoteEntities(r *Repository, rows []voteModel) ([]entities.Vote, error) {
	items := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		vote, err := row.toEntity()
		if err != nil {
			return nil, r.logError("ballot_repo_decode_vote_failed", err, "vote_id", row.ID)
		}
		items = append(items, vote)
	}
	return items, nil
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "ballot_outbox"
}
