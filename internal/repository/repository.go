package repository

import (
	"context"
	"errors"
	"strings"

	"voteticker/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a Repository bound to the given transaction handle, so a
// service can run several repository calls inside one transactional boundary.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// IsUniqueViolation reports whether err is a storage-level uniqueness
// violation. Works for Postgres (23505) and the sqlite driver used in tests.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetClubByID retrieves a club by ID
func (r *Repository) GetClubByID(ctx context.Context, clubID uint) (*models.Club, error) {
	var club models.Club
	err := r.db.WithContext(ctx).Where("id = ?", clubID).First(&club).Error
	if err != nil {
		return nil, err
	}
	return &club, nil
}

// GetMember retrieves the membership row for (club, user), if any
func (r *Repository) GetMember(ctx context.Context, clubID, userID uint) (*models.ClubMember, error) {
	var member models.ClubMember
	err := r.db.WithContext(ctx).
		Where("club_id = ? AND user_id = ?", clubID, userID).
		First(&member).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}
