package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"voteticker/internal/models"
	"voteticker/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// publishRetries bounds the compare-and-append retry loop. A retry only
// happens when two publishes race for the same chain_seq; one of them wins,
// so contention drains fast.
const publishRetries = 3

// CandidateDraft is the candidate generator's output before persistence
type CandidateDraft struct {
	Ticker        string
	ThesisBullets []string
	RiskBullets   []string
	Unknowns      []string
	Confidence    string
	Reasoning     string
	RefPrice      decimal.Decimal
}

// ProposalService owns the proposal lifecycle (draft -> voting -> published),
// the per-candidate vote store and the decision-receipt ledger.
type ProposalService struct {
	db   *gorm.DB
	repo *repository.Repository
}

func NewProposalService(db *gorm.DB) *ProposalService {
	return &ProposalService{
		db:   db,
		repo: repository.NewRepository(db),
	}
}

// CreateProposal persists a proposal with its full candidate set and
// transitions it to voting, all in one transaction: no proposal may exist
// with fewer than its declared candidates. DataAsOf is server-assigned.
func (s *ProposalService) CreateProposal(
	ctx context.Context,
	clubID uint,
	requestedByUserID uint,
	drafts []CandidateDraft,
	thesisSummary string,
) (*models.Proposal, error) {
	if len(drafts) == 0 {
		return nil, validationErr("proposal requires at least one candidate")
	}
	for _, d := range drafts {
		if strings.TrimSpace(d.Ticker) == "" {
			return nil, validationErr("candidate ticker is required")
		}
	}

	now := time.Now().UTC()
	proposal := &models.Proposal{
		ID:                uuid.New(),
		ClubID:            clubID,
		RequestedByUserID: requestedByUserID,
		Version:           1,
		Status:            models.ProposalStatusDraft,
		ThesisSummary:     thesisSummary,
		DataAsOf:          now,
	}

	candidates := make([]models.Candidate, len(drafts))
	for i, d := range drafts {
		candidates[i] = models.Candidate{
			ID:            uuid.New(),
			ProposalID:    proposal.ID,
			Ticker:        strings.ToUpper(strings.TrimSpace(d.Ticker)),
			ThesisBullets: d.ThesisBullets,
			RiskBullets:   d.RiskBullets,
			Unknowns:      d.Unknowns,
			Confidence:    d.Confidence,
			Reasoning:     d.Reasoning,
			RefPrice:      d.RefPrice,
			SortOrder:     i,
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateProposal(ctx, proposal); err != nil {
			return fmt.Errorf("failed to create proposal: %w", err)
		}
		if err := repo.CreateCandidates(ctx, candidates); err != nil {
			return fmt.Errorf("failed to create candidates: %w", err)
		}
		// No human gate between creation and voting in the current flow
		return repo.SetProposalStatus(ctx, proposal.ID, models.ProposalStatusVoting)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Proposal %s created for club %d with %d candidates", proposal.ID, clubID, len(candidates))
	return s.GetProposal(ctx, proposal.ID)
}

// GetProposal retrieves a proposal with candidates in sort order
func (s *ProposalService) GetProposal(ctx context.Context, proposalID uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.repo.GetProposalByID(ctx, proposalID)
	if err == gorm.ErrRecordNotFound {
		return nil, notFoundErr("proposal")
	}
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// ListProposals lists a club's proposals, newest first
func (s *ProposalService) ListProposals(ctx context.Context, clubID uint, status models.ProposalStatus) ([]models.ProposalSummary, error) {
	return s.repo.ListProposalsByClub(ctx, clubID, status)
}

// CastVote upserts the caller's vote on a candidate. Preconditions: the
// candidate exists, the vote value is one of buy/watch/pass, and the parent
// proposal is currently voting. Each rejection reason is caller-visible.
func (s *ProposalService) CastVote(
	ctx context.Context,
	candidateID uuid.UUID,
	userID uint,
	value string,
	rationale *string,
) (*models.Vote, error) {
	vote := models.VoteValue(value)
	if !vote.IsValid() {
		return nil, validationErr("vote must be one of buy, watch, pass")
	}

	candidate, err := s.repo.GetCandidateByID(ctx, candidateID)
	if err == gorm.ErrRecordNotFound {
		return nil, notFoundErr("candidate")
	}
	if err != nil {
		return nil, err
	}

	proposal, err := s.repo.GetProposalByID(ctx, candidate.ProposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != models.ProposalStatusVoting {
		return nil, conflictErr("proposal is %s, not voting", proposal.Status)
	}

	return s.repo.UpsertVote(ctx, &models.Vote{
		ID:          uuid.New(),
		CandidateID: candidateID,
		UserID:      userID,
		Vote:        vote,
		Rationale:   rationale,
	})
}

// PublishReceipt freezes the proposal and its votes into a hash-chained
// decision receipt and transitions the proposal to published. The guarded
// status transition, the chain-tail read and the receipt insert share one
// transaction, so either the receipt exists and the proposal is published, or
// neither happened. A lost race on the global chain tail rolls the whole
// transaction back and retries.
func (s *ProposalService) PublishReceipt(
	ctx context.Context,
	proposalID uuid.UUID,
	signedByUserID uint,
) (*models.ReceiptResponse, error) {
	var receipt *models.DecisionReceipt
	var payload *models.ReceiptPayload

	for attempt := 0; attempt < publishRetries; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			now := time.Now().UTC()
			ok, err := repo.MarkPublished(ctx, proposalID, now)
			if err != nil {
				return fmt.Errorf("failed to transition proposal: %w", err)
			}
			if !ok {
				proposal, err := repo.GetProposalByID(ctx, proposalID)
				if err == gorm.ErrRecordNotFound {
					return notFoundErr("proposal")
				}
				if err != nil {
					return err
				}
				return conflictErr("cannot publish proposal in status %s", proposal.Status)
			}

			proposal, err := repo.GetProposalByID(ctx, proposalID)
			if err != nil {
				return err
			}
			votes, err := repo.GetVotesForProposal(ctx, proposalID)
			if err != nil {
				return err
			}

			payload = buildReceiptPayload(proposal, votes, signedByUserID, now)
			content, err := CanonicalPayload(payload)
			if err != nil {
				return fmt.Errorf("failed to serialize receipt payload: %w", err)
			}
			contentHash := HashContent(content)

			tail, err := repo.GetChainTail(ctx)
			if err != nil {
				return fmt.Errorf("failed to read chain tail: %w", err)
			}
			var prevHash *string
			seq := int64(1)
			if tail != nil {
				prevHash = &tail.ContentHash
				seq = tail.ChainSeq + 1
			}

			receipt = &models.DecisionReceipt{
				ID:              uuid.New(),
				ProposalID:      proposalID,
				ChainSeq:        seq,
				ContentHash:     contentHash,
				PrevReceiptHash: prevHash,
				Payload:         string(content),
				SignedByUserID:  signedByUserID,
			}
			return repo.CreateReceipt(ctx, receipt)
		})

		if err == nil {
			log.Printf("Receipt %s published for proposal %s at chain seq %d", receipt.ID, proposalID, receipt.ChainSeq)
			return receiptResponse(receipt, payload), nil
		}
		if repository.IsUniqueViolation(err) {
			log.Printf("Chain append lost a race for proposal %s, retrying (attempt %d)", proposalID, attempt+1)
			continue
		}
		return nil, err
	}

	return nil, conflictErr("chain append kept losing races, giving up")
}

// GetReceipt retrieves a published proposal's receipt with decoded payload.
// A missing receipt is a not-found outcome; a stored payload that no longer
// parses is surfaced as a distinct failure.
func (s *ProposalService) GetReceipt(ctx context.Context, proposalID uuid.UUID) (*models.ReceiptResponse, error) {
	receipt, err := s.repo.GetReceiptByProposal(ctx, proposalID)
	if err == gorm.ErrRecordNotFound {
		return nil, notFoundErr("receipt")
	}
	if err != nil {
		return nil, err
	}

	var payload models.ReceiptPayload
	if err := json.Unmarshal([]byte(receipt.Payload), &payload); err != nil {
		return nil, fmt.Errorf("receipt %s payload is malformed: %w", receipt.ID, err)
	}
	return receiptResponse(receipt, &payload), nil
}

// VerifyChain re-checks the whole receipt chain
func (s *ProposalService) VerifyChain(ctx context.Context) (*models.ChainVerification, error) {
	return VerifyChain(ctx, s.repo)
}

func buildReceiptPayload(
	proposal *models.Proposal,
	votes []models.VoteWithContext,
	signedByUserID uint,
	publishedAt time.Time,
) *models.ReceiptPayload {
	candidates := make([]models.ReceiptCandidate, len(proposal.Candidates))
	for i, c := range proposal.Candidates {
		candidates[i] = models.ReceiptCandidate{
			Ticker:        c.Ticker,
			ThesisBullets: c.ThesisBullets,
			RiskBullets:   c.RiskBullets,
			Unknowns:      c.Unknowns,
			RefPrice:      c.RefPrice.String(),
		}
	}

	voteEntries := make([]models.ReceiptVote, len(votes))
	for i, v := range votes {
		voteEntries[i] = models.ReceiptVote{
			Ticker:    v.Ticker,
			Pseudonym: v.Pseudonym,
			Vote:      string(v.Vote.Vote),
		}
	}

	return &models.ReceiptPayload{
		ProposalID:    proposal.ID.String(),
		ThesisSummary: proposal.ThesisSummary,
		DataAsOf:      proposal.DataAsOf.Format(time.RFC3339),
		Candidates:    candidates,
		Votes:         voteEntries,
		SignedBy:      signedByUserID,
		PublishedAt:   publishedAt.Format(time.RFC3339),
	}
}

func receiptResponse(receipt *models.DecisionReceipt, payload *models.ReceiptPayload) *models.ReceiptResponse {
	return &models.ReceiptResponse{
		ID:              receipt.ID,
		ProposalID:      receipt.ProposalID,
		ChainSeq:        receipt.ChainSeq,
		ContentHash:     receipt.ContentHash,
		PrevReceiptHash: receipt.PrevReceiptHash,
		Payload:         *payload,
		SignedByUserID:  receipt.SignedByUserID,
		CreatedAt:       receipt.CreatedAt,
	}
}
