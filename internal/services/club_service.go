package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"voteticker/internal/models"
	"voteticker/internal/repository"

	"gorm.io/gorm"
)

// Capability actions checked against the role matrix
const (
	ActionApproveMembers  = "approve_members"
	ActionPinPosts        = "pin_posts"
	ActionPublishReceipts = "publish_receipts"
	ActionModerate        = "moderate"
	ActionManageClub      = "manage_club"
	ActionAddRiskOfficer  = "add_risk_officer"
	ActionCoSign          = "co_sign"
	ActionVote            = "vote"
	ActionPost            = "post"
	ActionView            = "view"
)

// roleMatrix maps a member role to the actions it may perform. A flat lookup
// table, no inheritance.
var roleMatrix = map[models.MemberRole][]string{
	models.MemberRoleOwner:       {ActionApproveMembers, ActionPinPosts, ActionPublishReceipts, ActionModerate, ActionManageClub, ActionAddRiskOfficer},
	models.MemberRoleModerator:   {ActionApproveMembers, ActionPinPosts, ActionModerate},
	models.MemberRoleRiskOfficer: {ActionPublishReceipts, ActionCoSign},
	models.MemberRoleMember:      {ActionVote, ActionPost, ActionView},
}

// IsRoleAllowed reports whether a role may perform an action
func IsRoleAllowed(role models.MemberRole, action string) bool {
	for _, a := range roleMatrix[role] {
		if a == action {
			return true
		}
	}
	return false
}

var slugSpaces = regexp.MustCompile(`\s+`)

// NormalizeSlug lower-cases a slug and collapses whitespace runs to dashes
func NormalizeSlug(slug string) string {
	return slugSpaces.ReplaceAllString(strings.ToLower(strings.TrimSpace(slug)), "-")
}

// ClubService handles club membership and the authorization checks the
// ledger facade runs before any mutating proposal operation.
type ClubService struct {
	db *gorm.DB
}

func NewClubService(db *gorm.DB) *ClubService {
	return &ClubService{db: db}
}

// CreateClub creates a club and its owner membership in one transaction.
// A duplicate slug racing past the unique index comes back as a state
// conflict, not a raw storage fault.
func (s *ClubService) CreateClub(ctx context.Context, req *models.CreateClubRequest, ownerUserID uint) (*models.Club, error) {
	slug := NormalizeSlug(req.Slug)
	if slug == "" {
		return nil, validationErr("slug is required")
	}

	club := &models.Club{
		Slug:        slug,
		Name:        req.Name,
		Description: req.Description,
		OwnerUserID: ownerUserID,
		IsPublic:    true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(club).Error; err != nil {
			return err
		}
		member := &models.ClubMember{
			ClubID: club.ID,
			UserID: ownerUserID,
			Role:   models.MemberRoleOwner,
			Status: models.MemberStatusApproved,
		}
		return tx.Create(member).Error
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, conflictErr("club slug %q already exists", slug)
		}
		return nil, fmt.Errorf("failed to create club: %w", err)
	}

	log.Printf("Club %q created by user %d (ID: %d)", slug, ownerUserID, club.ID)
	return club, nil
}

// ListPublicClubs lists public clubs with owner pseudonym and approved member
// count, newest first
func (s *ClubService) ListPublicClubs(ctx context.Context) ([]models.ClubSummary, error) {
	var clubs []models.ClubSummary
	err := s.db.WithContext(ctx).
		Model(&models.Club{}).
		Select(`clubs.*, users.pseudonym AS owner_pseudonym,
			(SELECT COUNT(*) FROM club_members cm WHERE cm.club_id = clubs.id AND cm.status = ?) AS member_count`,
			models.MemberStatusApproved).
		Joins("JOIN users ON users.id = clubs.owner_user_id").
		Where("clubs.is_public = ?", true).
		Order("clubs.created_at DESC").
		Scan(&clubs).Error
	if err != nil {
		return nil, err
	}
	return clubs, nil
}

// GetClubBySlug retrieves a club by its slug
func (s *ClubService) GetClubBySlug(ctx context.Context, slug string) (*models.Club, error) {
	var club models.Club
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&club).Error
	if err == gorm.ErrRecordNotFound {
		return nil, notFoundErr("club")
	}
	if err != nil {
		return nil, err
	}
	return &club, nil
}

// GetMember retrieves the membership row for (club, user); nil when absent
func (s *ClubService) GetMember(ctx context.Context, clubID, userID uint) (*models.ClubMember, error) {
	return repository.NewRepository(s.db).GetMember(ctx, clubID, userID)
}

// Authorize resolves the caller's membership and requires approved status.
// Pass action = "" to require membership only.
func (s *ClubService) Authorize(ctx context.Context, clubID, userID uint, action string) (*models.ClubMember, error) {
	member, err := s.GetMember(ctx, clubID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil || member.Status != models.MemberStatusApproved {
		return nil, fmt.Errorf("%w: approved membership required", ErrNotAuthorized)
	}
	if action != "" && !IsRoleAllowed(member.Role, action) {
		return nil, fmt.Errorf("%w: role %s may not %s", ErrNotAuthorized, member.Role, action)
	}
	return member, nil
}

// RequestJoin files a pending membership for a user. Applying twice is a
// conflict surfaced by the (club, user) unique index.
func (s *ClubService) RequestJoin(ctx context.Context, clubID, userID uint, reason *string) error {
	member := &models.ClubMember{
		ClubID:            clubID,
		UserID:            userID,
		Role:              models.MemberRoleMember,
		Status:            models.MemberStatusPending,
		ReasonForInterest: reason,
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		if repository.IsUniqueViolation(err) {
			return conflictErr("already applied or member")
		}
		return fmt.Errorf("failed to create join request: %w", err)
	}
	return nil
}

// ListApprovedMembers lists a club's approved members with pseudonyms
func (s *ClubService) ListApprovedMembers(ctx context.Context, clubID uint) ([]models.MemberInfo, error) {
	return s.listMembers(ctx, clubID, models.MemberStatusApproved, "club_members.created_at ASC")
}

// ListPendingRequests lists a club's pending join requests, oldest first
func (s *ClubService) ListPendingRequests(ctx context.Context, clubID uint) ([]models.MemberInfo, error) {
	return s.listMembers(ctx, clubID, models.MemberStatusPending, "club_members.created_at ASC")
}

func (s *ClubService) listMembers(ctx context.Context, clubID uint, status models.MemberStatus, order string) ([]models.MemberInfo, error) {
	var members []models.MemberInfo
	err := s.db.WithContext(ctx).
		Model(&models.ClubMember{}).
		Select("club_members.*, users.pseudonym AS pseudonym").
		Joins("JOIN users ON users.id = club_members.user_id").
		Where("club_members.club_id = ? AND club_members.status = ?", clubID, status).
		Order(order).
		Scan(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// ReviewJoinRequest approves or rejects a pending membership
func (s *ClubService) ReviewJoinRequest(ctx context.Context, clubID, memberID uint, approve bool) (*models.ClubMember, error) {
	var member models.ClubMember
	err := s.db.WithContext(ctx).
		Where("id = ? AND club_id = ?", memberID, clubID).
		First(&member).Error
	if err == gorm.ErrRecordNotFound {
		return nil, notFoundErr("member")
	}
	if err != nil {
		return nil, err
	}
	if member.Status != models.MemberStatusPending {
		return nil, conflictErr("membership is %s, not pending", member.Status)
	}

	now := time.Now().UTC()
	member.Status = models.MemberStatusApproved
	if !approve {
		member.Status = models.MemberStatusRejected
	}
	member.ReviewedAt = &now

	err = s.db.WithContext(ctx).
		Model(&models.ClubMember{}).
		Where("id = ?", member.ID).
		Updates(map[string]interface{}{
			"status":      member.Status,
			"reviewed_at": now,
		}).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}
