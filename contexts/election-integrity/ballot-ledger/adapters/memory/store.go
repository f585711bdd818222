package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	domainerrors "ballotbox/contexts/election-integrity/ballot-ledger/domain/errors"
	"ballotbox/contexts/election-integrity/ballot-ledger/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	seq       int
	message   ports.OutboxMessage
	published bool
}

type voterKey struct {
	voterID  string
	position entities.Position
	year     int
}

type candidatureKey struct {
	code     string
	position entities.Position
	year     int
}

// Seed preloads a store. Votes are taken as given, in chain order.
type Seed struct {
	Parties      []entities.Party
	Candidates   []entities.Candidate
	Voters       []entities.Voter
	Candidatures []entities.Candidature
	Votes        []entities.Vote
}

// Store keeps every port in process memory. appendMu serializes ledger units
// of work; mu guards the data itself.
type Store struct {
	appendMu sync.Mutex
	mu       sync.RWMutex

	parties      map[string]entities.Party
	candidates   map[string]entities.Candidate
	voters       map[string]entities.Voter
	candidatures map[string]entities.Candidature
	codes        map[candidatureKey]string

	votes        []entities.Vote
	votersVoted  map[voterKey]string
	previousUsed map[string]string

	outbox    map[string]outboxRecord
	outboxSeq int

	electionYear int
	now          func() time.Time
}

func NewStore(seed Seed) *Store {
	s := &Store{
		parties:      make(map[string]entities.Party),
		candidates:   make(map[string]entities.Candidate),
		voters:       make(map[string]entities.Voter),
		candidatures: make(map[string]entities.Candidature),
		codes:        make(map[candidatureKey]string),
		votersVoted:  make(map[voterKey]string),
		previousUsed: make(map[string]string),
		outbox:       make(map[string]outboxRecord),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, party := range seed.Parties {
		s.parties[party.PartyID] = party
	}
	for _, candidate := range seed.Candidates {
		s.candidates[candidate.CandidateID] = candidate
	}
	for _, voter := range seed.Voters {
		s.voters[voter.VoterID] = voter
	}
	for _, candidature := range seed.Candidatures {
		s.candidatures[candidature.CandidatureID] = candidature
		s.codes[keyOfCandidature(candidature)] = candidature.CandidatureID
	}
	for _, vote := range seed.Votes {
		s.commitVote(vote)
	}
	return s
}

// SetElectionYear pins the election cycle. Zero follows the clock.
func (s *Store) SetElectionYear(year int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.electionYear = year
}

// SetClock replaces the wall clock used by Now.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	now := s.now
	s.mu.RUnlock()
	return now().UTC()
}

func (s *Store) CurrentYear() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.electionYear
}

func (s *Store) NewID(_ context.Context) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *Store) CreateParty(_ context.Context, party entities.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties[party.PartyID] = party
	return nil
}

func (s *Store) CreateCandidate(_ context.Context, candidate entities.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[candidate.CandidateID] = candidate
	return nil
}

func (s *Store) CreateVoter(_ context.Context, voter entities.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voters[voter.VoterID] = voter
	return nil
}

func (s *Store) CreateCandidature(_ context.Context, candidature entities.Candidature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parties[candidature.PartyID]; !ok {
		return domainerrors.ErrUnknownReference
	}
	if _, ok := s.candidates[candidature.CandidateID]; !ok {
		return domainerrors.ErrUnknownReference
	}
	key := keyOfCandidature(candidature)
	if _, taken := s.codes[key]; taken {
		return domainerrors.ErrDuplicateCandidature
	}
	s.candidatures[candidature.CandidatureID] = candidature
	s.codes[key] = candidature.CandidatureID
	return nil
}

func (s *Store) FindCandidatures(
	_ context.Context,
	code string,
	position entities.Position,
	year int,
	limit int,
) ([]entities.Candidature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code = strings.TrimSpace(code)
	items := make([]entities.Candidature, 0, 1)
	for _, candidature := range s.candidatures {
		if candidature.Code == code && candidature.Position == position && candidature.Year == year {
			items = append(items, candidature)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CandidatureID < items[j].CandidatureID })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListCandidatures(
	_ context.Context,
	position entities.Position,
	year int,
) ([]entities.CandidatureListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.CandidatureListing, 0)
	for _, candidature := range s.candidatures {
		if candidature.Position != position || candidature.Year != year {
			continue
		}
		items = append(items, entities.CandidatureListing{
			Candidature: candidature,
			Party:       s.parties[candidature.PartyID],
			Candidate:   s.candidates[candidature.CandidateID],
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Candidature.Code < items[j].Candidature.Code })
	return items, nil
}

func (s *Store) CountVotesByCandidature(
	_ context.Context,
	position entities.Position,
	year int,
) ([]entities.TallyRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, vote := range s.votes {
		if vote.Position == position && vote.Year == year {
			counts[vote.CandidatureID]++
		}
	}
	rows := make([]entities.TallyRow, 0, len(counts))
	for candidatureID, votes := range counts {
		candidature := s.candidatures[candidatureID]
		party := s.parties[candidature.PartyID]
		rows = append(rows, entities.TallyRow{
			CandidatureID:   candidatureID,
			CandidatureCode: candidature.Code,
			CandidateName:   s.candidates[candidature.CandidateID].FullName(),
			PartyName:       party.Name,
			PartyAcronym:    party.Acronym,
			Votes:           votes,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Votes == rows[j].Votes {
			return rows[i].CandidatureCode < rows[j].CandidatureCode
		}
		return rows[i].Votes > rows[j].Votes
	})
	return rows, nil
}

func (s *Store) ListVotesInChainOrder(_ context.Context) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Vote(nil), s.votes...), nil
}

// RunInAppendTx buffers writes and applies them only when fn succeeds. The
// unique voter and predecessor rules are checked again at commit.
func (s *Store) RunInAppendTx(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	tx := &ledgerTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, vote := range tx.votes {
		if _, ok := s.votersVoted[keyOfVote(vote)]; ok {
			return domainerrors.ErrDuplicateVote
		}
		if _, ok := s.previousUsed[vote.PreviousHash]; ok {
			return domainerrors.ErrChainConflict
		}
	}
	for _, vote := range tx.votes {
		s.commitVote(vote)
	}
	for _, message := range tx.outbox {
		s.outboxSeq++
		s.outbox[message.OutboxID] = outboxRecord{seq: s.outboxSeq, message: message}
	}
	return nil
}

func (s *Store) commitVote(vote entities.Vote) {
	s.votes = append(s.votes, vote)
	s.votersVoted[keyOfVote(vote)] = vote.VoteID
	s.previousUsed[vote.PreviousHash] = vote.VoteID
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if !row.published {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrPersistence
	}
	row.published = true
	s.outbox[row.message.OutboxID] = row
	return nil
}

type ledgerTx struct {
	store  *Store
	votes  []entities.Vote
	outbox []ports.OutboxMessage
}

func (t *ledgerTx) GetVoteByVoter(
	_ context.Context,
	voterID string,
	position entities.Position,
	year int,
) (entities.Vote, bool, error) {
	key := voterKey{voterID: strings.TrimSpace(voterID), position: position, year: year}
	for _, vote := range t.votes {
		if keyOfVote(vote) == key {
			return vote, true, nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	voteID, ok := t.store.votersVoted[key]
	if !ok {
		return entities.Vote{}, false, nil
	}
	for _, vote := range t.store.votes {
		if vote.VoteID == voteID {
			return vote, true, nil
		}
	}
	return entities.Vote{}, false, nil
}

func (t *ledgerTx) LatestVote(_ context.Context) (entities.Vote, bool, error) {
	if len(t.votes) > 0 {
		return t.votes[len(t.votes)-1], true, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if len(t.store.votes) == 0 {
		return entities.Vote{}, false, nil
	}
	return t.store.votes[len(t.store.votes)-1], true, nil
}

func (t *ledgerTx) InsertVote(_ context.Context, vote entities.Vote) error {
	t.votes = append(t.votes, vote)
	return nil
}

func (t *ledgerTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	t.outbox = append(t.outbox, ports.OutboxMessage{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	})
	return nil
}

func keyOfVote(vote entities.Vote) voterKey {
	return voterKey{voterID: vote.VoterID, position: vote.Position, year: vote.Year}
}

func keyOfCandidature(candidature entities.Candidature) candidatureKey {
	return candidatureKey{code: candidature.Code, position: candidature.Position, year: candidature.Year}
}
