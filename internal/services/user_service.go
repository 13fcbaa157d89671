package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"voteticker/internal/models"
	"voteticker/internal/utils"

	"gorm.io/gorm"
)

// UserService bridges the external token issuer's subjects to local users
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// FindOrCreateBySubject resolves the issuer's subject claim to a local user,
// creating one with a generated pseudonym on first sight
func (s *UserService) FindOrCreateBySubject(ctx context.Context, subjectID string) (*models.User, error) {
	var user models.User
	result := s.db.WithContext(ctx).Where("subject_id = ?", subjectID).First(&user)

	if result.Error == gorm.ErrRecordNotFound {
		pseudonym, err := utils.GeneratePseudonym()
		if err != nil {
			return nil, fmt.Errorf("failed to generate pseudonym: %w", err)
		}
		user = models.User{
			SubjectID: subjectID,
			Pseudonym: pseudonym,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		log.Printf("New user created for subject (ID: %d)", user.ID)
	} else if result.Error != nil {
		return nil, fmt.Errorf("database error: %w", result.Error)
	}

	return &user, nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePseudonym changes a user's display pseudonym
func (s *UserService) UpdatePseudonym(ctx context.Context, userID uint, pseudonym string) (*models.User, error) {
	pseudonym = strings.TrimSpace(pseudonym)
	if pseudonym == "" {
		return nil, validationErr("pseudonym is required")
	}

	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("pseudonym", pseudonym).Error
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, userID)
}
