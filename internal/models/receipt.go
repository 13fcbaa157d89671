package models

import (
	"time"

	"github.com/google/uuid"
)

// DecisionReceipt is the immutable, hash-chained record produced when a
// proposal is published. Rows are append-only: never updated, never deleted.
// ChainSeq is the receipt's position in the global chain; its unique index is
// what makes concurrent appends a compare-and-append rather than a race.
type DecisionReceipt struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProposalID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"proposal_id"`
	ChainSeq        int64     `gorm:"not null;uniqueIndex" json:"chain_seq"`
	ContentHash     string    `gorm:"size:64;not null" json:"content_hash"`
	PrevReceiptHash *string   `gorm:"size:64" json:"prev_receipt_hash"`
	Payload         string    `gorm:"type:text;not null" json:"-"`
	SignedByUserID  uint      `gorm:"not null" json:"signed_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

func (DecisionReceipt) TableName() string {
	return "decision_receipts"
}

// ReceiptPayload is the frozen snapshot a receipt carries. It owns its data
// by value: the receipt must survive mutation or deletion of the source rows.
// Field order is fixed; the canonical serialization of this struct is what
// the content hash is computed over.
type ReceiptPayload struct {
	ProposalID    string             `json:"proposal_id"`
	ThesisSummary string             `json:"thesis_summary"`
	DataAsOf      string             `json:"data_as_of"`
	Candidates    []ReceiptCandidate `json:"candidates"`
	Votes         []ReceiptVote      `json:"votes"`
	SignedBy      uint               `json:"signed_by"`
	PublishedAt   string             `json:"published_at"`
}

type ReceiptCandidate struct {
	Ticker        string   `json:"ticker"`
	ThesisBullets []string `json:"thesis_bullets"`
	RiskBullets   []string `json:"risk_bullets"`
	Unknowns      []string `json:"unknowns"`
	RefPrice      string   `json:"ref_price"`
}

type ReceiptVote struct {
	Ticker    string `json:"ticker"`
	Pseudonym string `json:"pseudonym"`
	Vote      string `json:"vote"`
}

// ReceiptResponse is a receipt in API responses, with the payload decoded
type ReceiptResponse struct {
	ID              uuid.UUID      `json:"id"`
	ProposalID      uuid.UUID      `json:"proposal_id"`
	ChainSeq        int64          `json:"chain_seq"`
	ContentHash     string         `json:"content_hash"`
	PrevReceiptHash *string        `json:"prev_receipt_hash"`
	Payload         ReceiptPayload `json:"payload"`
	SignedByUserID  uint           `json:"signed_by_user_id"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ChainVerification is the result of walking the receipt chain
type ChainVerification struct {
	Valid         bool       `json:"valid"`
	ReceiptsSeen  int        `json:"receipts_seen"`
	BrokenAtSeq   *int64     `json:"broken_at_seq,omitempty"`
	BrokenReceipt *uuid.UUID `json:"broken_receipt,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}
