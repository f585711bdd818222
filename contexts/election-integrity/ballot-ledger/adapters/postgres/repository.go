package postgresadapter

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	domainerrors "ballotbox/contexts/election-integrity/ballot-ledger/domain/errors"
	"ballotbox/contexts/election-integrity/ballot-ledger/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	// ledgerAppendLockKey names the transaction scoped advisory lock taken
	// by every append unit of work.
	ledgerAppendLockKey int64 = 0x62616c6c6f74

	constraintVoterPositionYear = "votes_unique_voter_position_year"
	constraintPreviousHash      = "votes_unique_previous_hash"
	constraintCandidatureCode   = "candidatures_unique_code_position_year"
)

//go:embed schema.sql
var schemaSQL string

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, statement := range strings.Split(schemaSQL, ";") {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}
		if err := r.db.WithContext(ctx).Exec(statement).Error; err != nil {
			return r.logError("ballot_repo_migrate_failed", err)
		}
	}
	return nil
}

func (r *Repository) CreateParty(ctx context.Context, party entities.Party) error {
	row := partyModel{
		ID:          party.PartyID,
		Name:        party.Name,
		Description: party.Description,
		Acronym:     party.Acronym,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("ballot_repo_create_party_failed", err, "party_id", party.PartyID)
	}
	return nil
}

func (r *Repository) CreateCandidate(ctx context.Context, candidate entities.Candidate) error {
	row := candidateModel{
		ID:        candidate.CandidateID,
		FirstName: candidate.FirstName,
		LastName:  candidate.LastName,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("ballot_repo_create_candidate_failed", err, "candidate_id", candidate.CandidateID)
	}
	return nil
}

func (r *Repository) CreateVoter(ctx context.Context, voter entities.Voter) error {
	row := voterModel{
		ID:         voter.VoterID,
		FirstName:  voter.FirstName,
		LastName:   voter.LastName,
		MotherName: voter.MotherName,
		FatherName: voter.FatherName,
		BirthDate:  voter.BirthDate,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("ballot_repo_create_voter_failed", err, "voter_id", voter.VoterID)
	}
	return nil
}

func (r *Repository) CreateCandidature(ctx context.Context, candidature entities.Candidature) error {
	row := candidatureModelFromEntity(candidature)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if mapped := mapCandidatureError(err); mapped != nil {
			return mapped
		}
		return r.logError("ballot_repo_create_candidature_failed", err,
			"candidature_id", candidature.CandidatureID,
			"party_id", candidature.PartyID,
			"candidate_id", candidature.CandidateID,
		)
	}
	return nil
}

func (r *Repository) FindCandidatures(
	ctx context.Context,
	code string,
	position entities.Position,
	year int,
	limit int,
) ([]entities.Candidature, error) {
	query := r.db.WithContext(ctx).
		Where("code = ? AND position = ? AND year = ?", strings.TrimSpace(code), position.String(), year).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []candidatureModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_find_candidatures_failed", err,
			"candidature_code", strings.TrimSpace(code),
			"position", position.String(),
			"year", year,
		)
	}
	items := make([]entities.Candidature, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, r.logError("ballot_repo_decode_candidature_failed", err, "candidature_id", row.ID)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) ListCandidatures(
	ctx context.Context,
	position entities.Position,
	year int,
) ([]entities.CandidatureListing, error) {
	var rows []candidatureListingRow
	err := r.db.WithContext(ctx).
		Table("candidatures cu").
		Select(`cu.id, cu.party_id, cu.candidate_id, cu.code, cu.position, cu.year, cu.image_url,
			p.name AS party_name, p.description AS party_description, p.acronym AS party_acronym,
			ca.first_name AS candidate_first_name, ca.last_name AS candidate_last_name`).
		Joins("JOIN parties p ON p.id = cu.party_id").
		Joins("JOIN candidates ca ON ca.id = cu.candidate_id").
		Where("cu.position = ? AND cu.year = ?", position.String(), year).
		Order("cu.code ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, r.logError("ballot_repo_list_candidatures_failed", err,
			"position", position.String(),
			"year", year,
		)
	}
	items := make([]entities.CandidatureListing, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, r.logError("ballot_repo_decode_candidature_failed", err, "candidature_id", row.ID)
		}
		items = append(items, item)
	}
	return items, nil
}

// CountVotesByCandidature is a single grouped read, so the counts reflect one
// committed snapshot.
func (r *Repository) CountVotesByCandidature(
	ctx context.Context,
	position entities.Position,
	year int,
) ([]entities.TallyRow, error) {
	var rows []tallyRow
	err := r.db.WithContext(ctx).
		Table("votes v").
		Select(`cu.id AS candidature_id, cu.code AS candidature_code,
			ca.first_name, ca.last_name, p.name AS party_name, p.acronym AS party_acronym,
			COUNT(v.id) AS votes`).
		Joins("JOIN candidatures cu ON cu.id = v.candidature_id").
		Joins("JOIN candidates ca ON ca.id = cu.candidate_id").
		Joins("JOIN parties p ON p.id = cu.party_id").
		Where("v.candidature_position = ? AND v.year = ?", position.String(), year).
		Group("cu.id, cu.code, ca.first_name, ca.last_name, p.name, p.acronym").
		Order("votes DESC, cu.code ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, r.logError("ballot_repo_tally_failed", err,
			"position", position.String(),
			"year", year,
		)
	}
	items := make([]entities.TallyRow, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.TallyRow{
			CandidatureID:   row.CandidatureID,
			CandidatureCode: row.CandidatureCode,
			CandidateName:   entities.Candidate{FirstName: row.FirstName, LastName: row.LastName}.FullName(),
			PartyName:       row.PartyName,
			PartyAcronym:    row.PartyAcronym,
			Votes:           row.Votes,
		})
	}
	return items, nil
}

func (r *Repository) ListVotesInChainOrder(ctx context.Context) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_votes_failed", err)
	}
	return toVoteEntities(r, rows)
}

// RunInAppendTx serializes appends across processes with an advisory lock
// held until the transaction ends. The unique indexes on votes reject what
// slips past it.
func (r *Repository) RunInAppendTx(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	var fnErr error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", ledgerAppendLockKey).Error; err != nil {
			return r.logError("ballot_repo_append_lock_failed", err)
		}
		fnErr = fn(ctx, &ledgerTx{db: tx, repo: r})
		return fnErr
	})
	if err == nil || fnErr != nil {
		return err
	}
	if mapped := mapVoteError(err); mapped != nil {
		return mapped
	}
	return r.logError("ballot_repo_append_commit_failed", err)
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC, outbox_id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ballot_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: outbox row %s not found", domainerrors.ErrPersistence, strings.TrimSpace(outboxID))
	}
	return nil
}

type ledgerTx struct {
	db   *gorm.DB
	repo *Repository
}

func (t *ledgerTx) GetVoteByVoter(
	ctx context.Context,
	voterID string,
	position entities.Position,
	year int,
) (entities.Vote, bool, error) {
	var rows []voteModel
	err := t.db.WithContext(ctx).
		Where("voter_id = ? AND candidature_position = ? AND year = ?", strings.TrimSpace(voterID), position.String(), year).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return entities.Vote{}, false, t.repo.logError("ballot_repo_get_vote_by_voter_failed", err,
			"voter_id", strings.TrimSpace(voterID),
			"position", position.String(),
			"year", year,
		)
	}
	if len(rows) == 0 {
		return entities.Vote{}, false, nil
	}
	vote, err := rows[0].toEntity()
	if err != nil {
		return entities.Vote{}, false, t.repo.logError("ballot_repo_decode_vote_failed", err, "vote_id", rows[0].ID)
	}
	return vote, true, nil
}

func (t *ledgerTx) LatestVote(ctx context.Context) (entities.Vote, bool, error) {
	var rows []voteModel
	if err := t.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(1).Find(&rows).Error; err != nil {
		return entities.Vote{}, false, t.repo.logError("ballot_repo_latest_vote_failed", err)
	}
	if len(rows) == 0 {
		return entities.Vote{}, false, nil
	}
	vote, err := rows[0].toEntity()
	if err != nil {
		return entities.Vote{}, false, t.repo.logError("ballot_repo_decode_vote_failed", err, "vote_id", rows[0].ID)
	}
	return vote, true, nil
}

func (t *ledgerTx) InsertVote(ctx context.Context, vote entities.Vote) error {
	row := voteModelFromEntity(vote)
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		if mapped := mapVoteError(err); mapped != nil {
			return mapped
		}
		return t.repo.logError("ballot_repo_insert_vote_failed", err,
			"vote_id", vote.VoteID,
			"candidature_id", vote.CandidatureID,
		)
	}
	return nil
}

func (t *ledgerTx) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return t.repo.logError("ballot_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return t.repo.logError("ballot_repo_append_outbox_insert_failed", err, "outbox_id", row.OutboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "election-integrity/ballot-ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ballot repository operation failed", fields...)
	if errors.Is(err, domainerrors.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", domainerrors.ErrPersistence, err)
}

// mapVoteError translates constraint violations on votes into ledger errors.
// Anything else returns nil.
func mapVoteError(err error) error {
	if !isUniqueViolation(err) {
		return nil
	}
	switch constraintName(err) {
	case constraintVoterPositionYear:
		return domainerrors.ErrDuplicateVote
	case constraintPreviousHash:
		return domainerrors.ErrChainConflict
	}
	return nil
}

func mapCandidatureError(err error) error {
	switch {
	case isUniqueViolation(err) && constraintName(err) == constraintCandidatureCode:
		return domainerrors.ErrDuplicateCandidature
	case isForeignKeyViolation(err):
		return domainerrors.ErrUnknownReference
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
