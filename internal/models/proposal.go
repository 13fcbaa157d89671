package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProposalStatus string

const (
	ProposalStatusDraft     ProposalStatus = "draft"
	ProposalStatusVoting    ProposalStatus = "voting"
	ProposalStatusFinalized ProposalStatus = "finalized" // reserved for a future two-step publish
	ProposalStatusPublished ProposalStatus = "published"
)

type VoteValue string

const (
	VoteValueBuy   VoteValue = "buy"
	VoteValueWatch VoteValue = "watch"
	VoteValuePass  VoteValue = "pass"
)

// IsValid reports whether v is one of the accepted vote values.
func (v VoteValue) IsValid() bool {
	switch v {
	case VoteValueBuy, VoteValueWatch, VoteValuePass:
		return true
	}
	return false
}

// StringList is an ordered list of short strings stored as JSON text.
// Serialization happens only at the persistence boundary.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringList: %T", value)
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, (*[]string)(l))
}

// Proposal is a batch of trade-idea candidates generated together and voted
// on as a set. Lifecycle: draft -> voting -> published (terminal).
type Proposal struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ClubID            uint           `gorm:"not null;index" json:"club_id"`
	RequestedByUserID uint           `gorm:"not null;index" json:"requested_by_user_id"`
	Version           int            `gorm:"not null;default:1" json:"version"`
	Status            ProposalStatus `gorm:"size:50;not null;default:draft;index" json:"status"`
	ThesisSummary     string         `gorm:"type:text" json:"thesis_summary"`
	DataAsOf          time.Time      `gorm:"not null" json:"data_as_of"`
	CreatedAt         time.Time      `json:"created_at"`
	VotingEndsAt      *time.Time     `json:"voting_ends_at"`
	FinalizedAt       *time.Time     `json:"finalized_at"`
	PublishedAt       *time.Time     `json:"published_at"`
	Candidates        []Candidate    `gorm:"foreignKey:ProposalID" json:"candidates"`
}

func (Proposal) TableName() string {
	return "proposals"
}

// Candidate is one ticker-level idea within a proposal. Immutable after
// creation; SortOrder is the 0-based generation index.
type Candidate struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProposalID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"proposal_id"`
	Ticker        string          `gorm:"size:16;not null" json:"ticker"`
	ThesisBullets StringList      `gorm:"type:text" json:"thesis_bullets"`
	RiskBullets   StringList      `gorm:"type:text" json:"risk_bullets"`
	Unknowns      StringList      `gorm:"type:text" json:"unknowns"`
	Confidence    string          `gorm:"size:64" json:"confidence"`
	Reasoning     string          `gorm:"type:text" json:"reasoning"`
	RefPrice      decimal.Decimal `gorm:"type:decimal(20,2)" json:"ref_price"`
	SortOrder     int             `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (Candidate) TableName() string {
	return "proposal_candidates"
}

// Vote is one member's stance on one candidate. At most one row per
// (candidate, voter); re-voting overwrites vote and rationale in place.
type Vote struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CandidateID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_votes_candidate_user" json:"candidate_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_votes_candidate_user" json:"user_id"`
	Vote        VoteValue `gorm:"size:16;not null" json:"vote"`
	Rationale   *string   `gorm:"type:text" json:"rationale"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Vote) TableName() string {
	return "votes"
}

// VoteWithContext is a vote joined with the voter's pseudonym and the
// candidate's ticker, used to build the receipt snapshot at publish time.
type VoteWithContext struct {
	Vote
	Pseudonym string `json:"pseudonym"`
	Ticker    string `json:"ticker"`
}

// ProposalSummary is a proposal in list responses
type ProposalSummary struct {
	Proposal
	RequestedByPseudonym string `json:"requested_by_pseudonym"`
}

// CastVoteRequest is the body of POST /proposals/:id/vote
type CastVoteRequest struct {
	CandidateID string  `json:"candidate_id" binding:"required"`
	Vote        string  `json:"vote" binding:"required"`
	Rationale   *string `json:"rationale"`
}
