package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscussionMessage is a club board message, optionally scoped to a proposal
type DiscussionMessage struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ClubID         uint       `gorm:"not null;index" json:"club_id"`
	ProposalID     *uuid.UUID `gorm:"type:uuid;index" json:"proposal_id"`
	UserID         uint       `gorm:"not null" json:"user_id"`
	Body           string     `gorm:"type:text;not null" json:"body"`
	IsPinned       bool       `gorm:"not null;default:false" json:"is_pinned"`
	PinnedAt       *time.Time `json:"pinned_at"`
	PinnedByUserID *uint      `json:"pinned_by_user_id"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (DiscussionMessage) TableName() string {
	return "discussion_messages"
}

// MessageInfo is a message joined with the author's pseudonym
type MessageInfo struct {
	DiscussionMessage
	Pseudonym string `json:"pseudonym"`
}

// PostMessageRequest is the body of POST /clubs/:slug/discussion
type PostMessageRequest struct {
	Body       string  `json:"body" binding:"required"`
	ProposalID *string `json:"proposal_id"`
}
