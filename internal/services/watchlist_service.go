package services

import (
	"context"
	"fmt"
	"strings"

	"voteticker/internal/models"
	"voteticker/internal/repository"

	"gorm.io/gorm"
)

// WatchlistService maintains each club's shared ticker watchlist
type WatchlistService struct {
	db *gorm.DB
}

func NewWatchlistService(db *gorm.DB) *WatchlistService {
	return &WatchlistService{db: db}
}

// List retrieves a club's watchlist in insertion order
func (s *WatchlistService) List(ctx context.Context, clubID uint) ([]models.WatchlistEntryInfo, error) {
	var entries []models.WatchlistEntryInfo
	err := s.db.WithContext(ctx).
		Model(&models.WatchlistEntry{}).
		Select("watchlist.*, users.pseudonym AS added_by_pseudonym").
		Joins("LEFT JOIN users ON users.id = watchlist.added_by_user_id").
		Where("watchlist.club_id = ?", clubID).
		Order("watchlist.created_at ASC").
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Add puts a ticker on a club's watchlist. Tickers are upper-cased;
// duplicates are a conflict.
func (s *WatchlistService) Add(ctx context.Context, clubID uint, ticker string, addedBy uint) (*models.WatchlistEntry, error) {
	norm := strings.ToUpper(strings.TrimSpace(ticker))
	if norm == "" {
		return nil, validationErr("ticker is required")
	}

	entry := &models.WatchlistEntry{
		ClubID:        clubID,
		Ticker:        norm,
		AddedByUserID: &addedBy,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, conflictErr("%s is already on the watchlist", norm)
		}
		return nil, fmt.Errorf("failed to add ticker: %w", err)
	}
	return entry, nil
}

// Remove deletes a ticker from a club's watchlist
func (s *WatchlistService) Remove(ctx context.Context, clubID uint, ticker string) (bool, error) {
	norm := strings.ToUpper(strings.TrimSpace(ticker))
	res := s.db.WithContext(ctx).
		Where("club_id = ? AND ticker = ?", clubID, norm).
		Delete(&models.WatchlistEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
