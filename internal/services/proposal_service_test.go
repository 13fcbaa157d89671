package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"voteticker/internal/database"
	"voteticker/internal/models"
	"voteticker/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Named in-memory DB with shared cache so every pooled connection sees
	// the same database, unique per test for isolation.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, subject, pseudonym string) *models.User {
	t.Helper()
	user := &models.User{SubjectID: subject, Pseudonym: pseudonym}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createTestClub(t *testing.T, db *gorm.DB, slug string, owner *models.User) *models.Club {
	t.Helper()
	club, err := NewClubService(db).CreateClub(context.Background(), &models.CreateClubRequest{
		Slug: slug,
		Name: "Test Club",
	}, owner.ID)
	if err != nil {
		t.Fatalf("failed to create club: %v", err)
	}
	return club
}

func testDrafts(tickers ...string) []CandidateDraft {
	drafts := make([]CandidateDraft, len(tickers))
	for i, ticker := range tickers {
		a := sampleAnalysis[ticker]
		drafts[i] = CandidateDraft{
			Ticker:        ticker,
			ThesisBullets: a.thesis,
			RiskBullets:   a.risks,
			Unknowns:      a.unknowns,
			Confidence:    a.confidence,
			Reasoning:     a.reasoning,
		}
	}
	return drafts
}

func mustCreateProposal(t *testing.T, svc *ProposalService, clubID, userID uint, tickers ...string) *models.Proposal {
	t.Helper()
	proposal, err := svc.CreateProposal(context.Background(), clubID, userID, testDrafts(tickers...), "test thesis")
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}
	return proposal
}

func TestCreateProposalAssignsSortOrderAndOpensVoting(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)
	svc := NewProposalService(db)

	proposal := mustCreateProposal(t, svc, club.ID, owner.ID, "AAPL", "GOOGL", "MSFT")

	if proposal.Status != models.ProposalStatusVoting {
		t.Errorf("expected status voting, got %s", proposal.Status)
	}
	if proposal.DataAsOf.IsZero() {
		t.Error("expected server-assigned data_as_of")
	}
	if len(proposal.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(proposal.Candidates))
	}

	wantTickers := []string{"AAPL", "GOOGL", "MSFT"}
	for i, c := range proposal.Candidates {
		if c.SortOrder != i {
			t.Errorf("candidate %d: expected sort_order %d, got %d", i, i, c.SortOrder)
		}
		if c.Ticker != wantTickers[i] {
			t.Errorf("candidate %d: expected ticker %s, got %s", i, wantTickers[i], c.Ticker)
		}
	}
}

func TestCreateProposalRequiresCandidates(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)
	svc := NewProposalService(db)

	_, err := svc.CreateProposal(context.Background(), club.ID, owner.ID, nil, "empty")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var count int64
	db.Model(&models.Proposal{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no proposal rows, got %d", count)
	}
}

func TestCastVoteUpsertsSingleRow(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)
	svc := NewProposalService(db)

	proposal := mustCreateProposal(t, svc, club.ID, owner.ID, "AAPL", "GOOGL", "MSFT")
	candidate := proposal.Candidates[0]

	first, err := svc.CastVote(context.Background(), candidate.ID, owner.ID, "buy", nil)
	if err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if first.Vote != models.VoteValueBuy {
		t.Errorf("expected buy, got %s", first.Vote)
	}

	rationale := "cooled on it"
	second, err := svc.CastVote(context.Background(), candidate.ID, owner.ID, "watch", &rationale)
	if err != nil {
		t.Fatalf("second vote failed: %v", err)
	}
	if second.Vote != models.VoteValueWatch {
		t.Errorf("expected watch after re-vote, got %s", second.Vote)
	}
	if second.Rationale == nil || *second.Rationale != rationale {
		t.Error("expected rationale to be overwritten")
	}

	var count int64
	db.Model(&models.Vote{}).
		Where("candidate_id = ? AND user_id = ?", candidate.ID, owner.ID).
		Count(&count)
	if count != 1 {
		t.Errorf("expected exactly one vote row, got %d", count)
	}
}

func TestCastVoteInvalidValueRejected(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)
	svc := NewProposalService(db)

	proposal := mustCreateProposal(t, svc, club.ID, owner.ID, "AAPL", "GOOGL", "MSFT")

	_, err := svc.CastVote(context.Background(), proposal.Candidates[0].ID, owner.ID, "maybe", nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var count int64
	db.Model(&models.Vote{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no vote rows, got %d", count)
	}
}

func TestCastVoteOutsideVotingRejected(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)
	svc := NewProposalService(db)

	proposal := mustCreateProposal(t, svc, club.ID, owner.ID, "AAPL", "GOOGL", "MSFT")
	if _, err := svc.PublishReceipt(context.Background(), proposal.ID, owner.ID); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	_, err := svc.CastVote(context.Background(), proposal.Candidates[0].ID, owner.ID, "buy", nil)
	if !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var count int64
	db.Model(&models.Vote{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no vote rows, got %d", count)
	}
}

func TestPublishOnlyOnce(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)
	svc := NewProposalService(db)

	proposal := mustCreateProposal(t, svc, club.ID, owner.ID, "AAPL", "GOOGL", "MSFT")

	receipt, err := svc.PublishReceipt(context.Background(), proposal.ID, owner.ID)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if receipt.ChainSeq != 1 {
		t.Errorf("expected chain seq 1, got %d", receipt.ChainSeq)
	}
	if receipt.PrevReceiptHash != nil {
		t.Errorf("first receipt should have no predecessor, got %v", *receipt.PrevReceiptHash)
	}

	_, err = svc.PublishReceipt(context.Background(), proposal.ID, owner.ID)
	if !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected state conflict on second publish, got %v", err)
	}

	var receiptCount int64
	db.Model(&models.DecisionReceipt{}).Count(&receiptCount)
	if receiptCount != 1 {
		t.Errorf("expected exactly one receipt, got %d", receiptCount)
	}

	updated, err := svc.GetProposal(context.Background(), proposal.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if updated.Status != models.ProposalStatusPublished {
		t.Errorf("expected published, got %s", updated.Status)
	}
	if updated.PublishedAt == nil || updated.FinalizedAt == nil {
		t.Error("expected finalize/publish timestamps to be recorded")
	}
}

func TestPublishDraftFails(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)
	svc := NewProposalService(db)

	proposal := mustCreateProposal(t, svc, club.ID, owner.ID, "AAPL", "GOOGL", "MSFT")
	if err := db.Model(&models.Proposal{}).
		Where("id = ?", proposal.ID).
		Update("status", models.ProposalStatusDraft).Error; err != nil {
		t.Fatalf("failed to reset status: %v", err)
	}

	_, err := svc.PublishReceipt(context.Background(), proposal.ID, owner.ID)
	if !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var receiptCount int64
	db.Model(&models.DecisionReceipt{}).Count(&receiptCount)
	if receiptCount != 0 {
		t.Errorf("failed publish must not leave a receipt, got %d", receiptCount)
	}

	reloaded, _ := svc.GetProposal(context.Background(), proposal.ID)
	if reloaded.Status != models.ProposalStatusDraft {
		t.Errorf("failed publish must leave status unchanged, got %s", reloaded.Status)
	}
}

func TestPublishSnapshotKeepsLatestVote(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	voter := createTestUser(t, db, "sub-a", "UserA")
	club := createTestClub(t, db, "alpha", owner)
	svc := NewProposalService(db)

	proposal := mustCreateProposal(t, svc, club.ID, owner.ID, "AAPL", "GOOGL", "MSFT")
	aapl := proposal.Candidates[0]

	if _, err := svc.CastVote(context.Background(), aapl.ID, voter.ID, "buy", nil); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if _, err := svc.CastVote(context.Background(), aapl.ID, voter.ID, "watch", nil); err != nil {
		t.Fatalf("re-vote failed: %v", err)
	}

	receipt, err := svc.PublishReceipt(context.Background(), proposal.ID, owner.ID)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if len(receipt.Payload.Votes) != 1 {
		t.Fatalf("expected one vote entry, got %d", len(receipt.Payload.Votes))
	}
	entry := receipt.Payload.Votes[0]
	if entry.Ticker != "AAPL" || entry.Pseudonym != "UserA" || entry.Vote != "watch" {
		t.Errorf("unexpected vote entry: %+v", entry)
	}
	if len(receipt.Payload.Candidates) != 3 {
		t.Errorf("expected 3 candidates in payload, got %d", len(receipt.Payload.Candidates))
	}
}

func TestReceiptChainLinks(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)
	svc := NewProposalService(db)

	p1 := mustCreateProposal(t, svc, club.ID, owner.ID, "AAPL", "GOOGL", "MSFT")
	p2 := mustCreateProposal(t, svc, club.ID, owner.ID, "NVDA", "META", "AAPL")

	r1, err := svc.PublishReceipt(context.Background(), p1.ID, owner.ID)
	if err != nil {
		t.Fatalf("publish p1 failed: %v", err)
	}
	r2, err := svc.PublishReceipt(context.Background(), p2.ID, owner.ID)
	if err != nil {
		t.Fatalf("publish p2 failed: %v", err)
	}

	if r1.PrevReceiptHash != nil {
		t.Error("first receipt must have no predecessor hash")
	}
	if r2.PrevReceiptHash == nil || *r2.PrevReceiptHash != r1.ContentHash {
		t.Error("second receipt must link to the first receipt's content hash")
	}
	if r2.ChainSeq != r1.ChainSeq+1 {
		t.Errorf("expected consecutive chain seqs, got %d then %d", r1.ChainSeq, r2.ChainSeq)
	}

	// Recomputing the stored payload's digest must reproduce the content hash
	stored, err := svc.GetReceipt(context.Background(), p1.ID)
	if err != nil {
		t.Fatalf("get receipt failed: %v", err)
	}
	content, err := CanonicalPayload(&stored.Payload)
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	if HashContent(content) != r1.ContentHash {
		t.Error("recomputed hash does not match stored content hash")
	}

	result, err := svc.VerifyChain(context.Background())
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !result.Valid || result.ReceiptsSeen != 2 {
		t.Errorf("expected valid chain of 2, got %+v", result)
	}
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)
	svc := NewProposalService(db)

	p1 := mustCreateProposal(t, svc, club.ID, owner.ID, "AAPL", "GOOGL", "MSFT")
	p2 := mustCreateProposal(t, svc, club.ID, owner.ID, "NVDA", "META", "AAPL")
	if _, err := svc.PublishReceipt(context.Background(), p1.ID, owner.ID); err != nil {
		t.Fatalf("publish p1 failed: %v", err)
	}
	if _, err := svc.PublishReceipt(context.Background(), p2.ID, owner.ID); err != nil {
		t.Fatalf("publish p2 failed: %v", err)
	}

	// Retroactively edit the first receipt's payload behind the ledger's back
	if err := db.Model(&models.DecisionReceipt{}).
		Where("chain_seq = ?", 1).
		Update("payload", `{"proposal_id":"forged"}`).Error; err != nil {
		t.Fatalf("tamper failed: %v", err)
	}

	result, err := svc.VerifyChain(context.Background())
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if result.Valid {
		t.Fatal("expected chain verification to fail after tampering")
	}
	if result.BrokenAtSeq == nil || *result.BrokenAtSeq != 1 {
		t.Errorf("expected break at seq 1, got %+v", result.BrokenAtSeq)
	}
}

func TestChainSeqCollisionIsUniqueViolation(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)
	svc := NewProposalService(db)

	p1 := mustCreateProposal(t, svc, club.ID, owner.ID, "AAPL", "GOOGL", "MSFT")
	if _, err := svc.PublishReceipt(context.Background(), p1.ID, owner.ID); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	// Appending at an occupied chain position must be rejected by storage and
	// classified as a unique violation, which is what the publish retry keys on
	forged := &models.DecisionReceipt{
		ID:             uuid.New(),
		ProposalID:     uuid.New(),
		ChainSeq:       1,
		ContentHash:    HashContent([]byte("{}")),
		Payload:        "{}",
		SignedByUserID: owner.ID,
	}
	err := db.Create(forged).Error
	if err == nil {
		t.Fatal("expected duplicate chain_seq insert to fail")
	}
	if !repository.IsUniqueViolation(err) {
		t.Fatalf("expected a unique violation classification, got %v", err)
	}

	var count int64
	db.Model(&models.DecisionReceipt{}).Count(&count)
	if count != 1 {
		t.Errorf("expected the chain to stay at one receipt, got %d", count)
	}
}

func TestConcurrentPublishesKeepChainIntact(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)
	svc := NewProposalService(db)

	p1 := mustCreateProposal(t, svc, club.ID, owner.ID, "AAPL", "GOOGL", "MSFT")
	p2 := mustCreateProposal(t, svc, club.ID, owner.ID, "NVDA", "META", "AAPL")

	proposals := []*models.Proposal{p1, p2}
	errs := make([]error, len(proposals))
	var wg sync.WaitGroup
	for i := range proposals {
		wg.Add(1)
		go func(i int, proposalID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.PublishReceipt(context.Background(), proposalID, owner.ID)
		}(i, proposals[i].ID)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent publish %d failed: %v", i, err)
		}
	}

	r1, err := svc.GetReceipt(context.Background(), p1.ID)
	if err != nil {
		t.Fatalf("get receipt p1 failed: %v", err)
	}
	r2, err := svc.GetReceipt(context.Background(), p2.ID)
	if err != nil {
		t.Fatalf("get receipt p2 failed: %v", err)
	}

	seqs := map[int64]bool{r1.ChainSeq: true, r2.ChainSeq: true}
	if !seqs[1] || !seqs[2] {
		t.Errorf("expected chain seqs 1 and 2, got %d and %d", r1.ChainSeq, r2.ChainSeq)
	}

	result, err := svc.VerifyChain(context.Background())
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !result.Valid || result.ReceiptsSeen != 2 {
		t.Errorf("expected a valid unforked chain of 2, got %+v", result)
	}
}

func TestGetReceiptMissing(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)
	svc := NewProposalService(db)

	proposal := mustCreateProposal(t, svc, club.ID, owner.ID, "AAPL", "GOOGL", "MSFT")

	_, err := svc.GetReceipt(context.Background(), proposal.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unpublished proposal, got %v", err)
	}
}
