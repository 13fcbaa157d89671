package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voteticker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DiscussionService is the club message board, with moderator pinning
type DiscussionService struct {
	db *gorm.DB
}

func NewDiscussionService(db *gorm.DB) *DiscussionService {
	return &DiscussionService{db: db}
}

// ListMessages retrieves a club's messages, pinned first then oldest first.
// When proposalID is set, proposal-scoped and unscoped messages are returned.
func (s *DiscussionService) ListMessages(ctx context.Context, clubID uint, proposalID *uuid.UUID) ([]models.MessageInfo, error) {
	q := s.db.WithContext(ctx).
		Model(&models.DiscussionMessage{}).
		Select("discussion_messages.*, users.pseudonym AS pseudonym").
		Joins("JOIN users ON users.id = discussion_messages.user_id").
		Where("discussion_messages.club_id = ?", clubID)
	if proposalID != nil {
		q = q.Where("discussion_messages.proposal_id = ? OR discussion_messages.proposal_id IS NULL", *proposalID)
	}

	var messages []models.MessageInfo
	err := q.Order("discussion_messages.is_pinned DESC, discussion_messages.created_at ASC").
		Scan(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// PostMessage adds a message to a club board
func (s *DiscussionService) PostMessage(ctx context.Context, clubID, userID uint, body string, proposalID *uuid.UUID) (*models.MessageInfo, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, validationErr("body is required")
	}

	msg := &models.DiscussionMessage{
		ClubID:     clubID,
		ProposalID: proposalID,
		UserID:     userID,
		Body:       body,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}
	return s.getMessage(ctx, msg.ID)
}

// SetPinned pins or unpins a club message
func (s *DiscussionService) SetPinned(ctx context.Context, messageID, clubID, userID uint, pinned bool) (*models.MessageInfo, error) {
	var msg models.DiscussionMessage
	err := s.db.WithContext(ctx).
		Where("id = ? AND club_id = ?", messageID, clubID).
		First(&msg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, notFoundErr("message")
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"is_pinned":         pinned,
		"pinned_at":         nil,
		"pinned_by_user_id": nil,
	}
	if pinned {
		now := time.Now().UTC()
		updates["pinned_at"] = now
		updates["pinned_by_user_id"] = userID
	}
	if err := s.db.WithContext(ctx).Model(&msg).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.getMessage(ctx, messageID)
}

func (s *DiscussionService) getMessage(ctx context.Context, messageID uint) (*models.MessageInfo, error) {
	var info models.MessageInfo
	err := s.db.WithContext(ctx).
		Model(&models.DiscussionMessage{}).
		Select("discussion_messages.*, users.pseudonym AS pseudonym").
		Joins("JOIN users ON users.id = discussion_messages.user_id").
		Where("discussion_messages.id = ?", messageID).
		Scan(&info).Error
	if err != nil {
		return nil, err
	}
	return &info, nil
}
