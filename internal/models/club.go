package models

import (
	"time"
)

type MemberRole string

const (
	MemberRoleOwner       MemberRole = "owner"
	MemberRoleModerator   MemberRole = "moderator"
	MemberRoleRiskOfficer MemberRole = "risk_officer"
	MemberRoleMember      MemberRole = "member"
)

type MemberStatus string

const (
	MemberStatusPending  MemberStatus = "pending"
	MemberStatusApproved MemberStatus = "approved"
	MemberStatusRejected MemberStatus = "rejected"
)

// Club is a group whose approved members share a watchlist and vote on proposals
type Club struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	OwnerUserID uint      `gorm:"not null;index" json:"owner_user_id"`
	IsPublic    bool      `gorm:"not null;default:true" json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Club) TableName() string {
	return "clubs"
}

// ClubMember links a user to a club. A pending row is a join request.
type ClubMember struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	ClubID            uint         `gorm:"not null;index;uniqueIndex:idx_club_members_club_user" json:"club_id"`
	UserID            uint         `gorm:"not null;index;uniqueIndex:idx_club_members_club_user" json:"user_id"`
	Role              MemberRole   `gorm:"size:50;not null" json:"role"`
	Status            MemberStatus `gorm:"size:50;not null;default:pending;index" json:"status"`
	ReasonForInterest *string      `gorm:"type:text" json:"reason_for_interest"`
	CreatedAt         time.Time    `json:"created_at"`
	ReviewedAt        *time.Time   `json:"reviewed_at"`
}

func (ClubMember) TableName() string {
	return "club_members"
}

// CreateClubRequest is the body of POST /clubs
type CreateClubRequest struct {
	Slug        string  `json:"slug" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// JoinClubRequest is the body of POST /clubs/:slug/join
type JoinClubRequest struct {
	ReasonForInterest *string `json:"reason_for_interest"`
}

// ClubSummary is a club in list responses, with owner pseudonym and member count
type ClubSummary struct {
	Club
	OwnerPseudonym string `json:"owner_pseudonym"`
	MemberCount    int64  `json:"member_count"`
}

// MemberInfo is a membership row joined with the member's pseudonym
type MemberInfo struct {
	ClubMember
	Pseudonym string `json:"pseudonym"`
}
