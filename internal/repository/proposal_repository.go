package repository

import (
	"context"
	"time"

	"voteticker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateProposal inserts a proposal row
func (r *Repository) CreateProposal(ctx context.Context, proposal *models.Proposal) error {
	return r.db.WithContext(ctx).Omit("Candidates").Create(proposal).Error
}

// CreateCandidates inserts the full candidate set of a proposal in one batch.
// A partial failure fails the whole insert.
func (r *Repository) CreateCandidates(ctx context.Context, candidates []models.Candidate) error {
	return r.db.WithContext(ctx).Create(&candidates).Error
}

// SetProposalStatus updates a proposal's status unconditionally
func (r *Repository) SetProposalStatus(ctx context.Context, proposalID uuid.UUID, status models.ProposalStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ?", proposalID).
		Update("status", status).Error
}

// MarkPublished transitions a proposal from voting to published, recording the
// finalize/publish timestamps. The status check and the transition are a
// single guarded UPDATE: it reports false when the proposal was not in voting,
// which is what makes concurrent publishes on one proposal mutually exclusive.
func (r *Repository) MarkPublished(ctx context.Context, proposalID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ? AND status = ?", proposalID, models.ProposalStatusVoting).
		Updates(map[string]interface{}{
			"status":       models.ProposalStatusPublished,
			"finalized_at": at,
			"published_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetProposalByID retrieves a proposal with its candidates in sort order
func (r *Repository) GetProposalByID(ctx context.Context, proposalID uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.WithContext(ctx).
		Preload("Candidates", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", proposalID).
		First(&proposal).Error
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// ListProposalsByClub retrieves a club's proposals, newest first, joined with
// the requester's pseudonym. Pass status = "" for all statuses.
func (r *Repository) ListProposalsByClub(ctx context.Context, clubID uint, status models.ProposalStatus) ([]models.ProposalSummary, error) {
	var proposals []models.ProposalSummary
	q := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Select("proposals.*, users.pseudonym AS requested_by_pseudonym").
		Joins("JOIN users ON users.id = proposals.requested_by_user_id").
		Where("proposals.club_id = ?", clubID)
	if status != "" {
		q = q.Where("proposals.status = ?", status)
	}
	err := q.Order("proposals.created_at DESC").Scan(&proposals).Error
	if err != nil {
		return nil, err
	}
	return proposals, nil
}

// GetCandidateByID retrieves a candidate by ID
func (r *Repository) GetCandidateByID(ctx context.Context, candidateID uuid.UUID) (*models.Candidate, error) {
	var candidate models.Candidate
	err := r.db.WithContext(ctx).Where("id = ?", candidateID).First(&candidate).Error
	if err != nil {
		return nil, err
	}
	return &candidate, nil
}

// UpsertVote inserts the vote or, when a row for (candidate, voter) already
// exists, overwrites its vote and rationale in place. The conflict target is
// the unique index, so racing votes serialize at the storage layer and the
// last committed write survives.
func (r *Repository) UpsertVote(ctx context.Context, vote *models.Vote) (*models.Vote, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "candidate_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"vote":       vote.Vote,
			"rationale":  vote.Rationale,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(vote).Error
	if err != nil {
		return nil, err
	}

	var stored models.Vote
	err = r.db.WithContext(ctx).
		Where("candidate_id = ? AND user_id = ?", vote.CandidateID, vote.UserID).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetVotesForProposal retrieves all votes across a proposal's candidates,
// joined with the voter pseudonym and candidate ticker. Only consulted at
// publish time to build the receipt snapshot; no running tallies are kept.
func (r *Repository) GetVotesForProposal(ctx context.Context, proposalID uuid.UUID) ([]models.VoteWithContext, error) {
	var votes []models.VoteWithContext
	err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("votes.*, users.pseudonym AS pseudonym, proposal_candidates.ticker AS ticker").
		Joins("JOIN users ON users.id = votes.user_id").
		Joins("JOIN proposal_candidates ON proposal_candidates.id = votes.candidate_id").
		Where("proposal_candidates.proposal_id = ?", proposalID).
		Order("proposal_candidates.sort_order ASC, users.id ASC").
		Scan(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

// GetChainTail retrieves the globally most recent receipt, or nil when the
// ledger is empty
func (r *Repository) GetChainTail(ctx context.Context) (*models.DecisionReceipt, error) {
	var receipt models.DecisionReceipt
	err := r.db.WithContext(ctx).Order("chain_seq DESC").First(&receipt).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// CreateReceipt appends a receipt. The unique indexes on chain_seq and
// proposal_id reject forked chains and double publishes at the storage layer.
func (r *Repository) CreateReceipt(ctx context.Context, receipt *models.DecisionReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

// GetReceiptByProposal retrieves the receipt for a published proposal
func (r *Repository) GetReceiptByProposal(ctx context.Context, proposalID uuid.UUID) (*models.DecisionReceipt, error) {
	var receipt models.DecisionReceipt
	err := r.db.WithContext(ctx).Where("proposal_id = ?", proposalID).First(&receipt).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ListReceiptsBySeq retrieves the whole chain in append order
func (r *Repository) ListReceiptsBySeq(ctx context.Context) ([]models.DecisionReceipt, error) {
	var receipts []models.DecisionReceipt
	err := r.db.WithContext(ctx).Order("chain_seq ASC").Find(&receipts).Error
	if err != nil {
		return nil, err
	}
	return receipts, nil
}
