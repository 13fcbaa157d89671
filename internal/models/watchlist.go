package models

import (
	"time"
)

// WatchlistEntry is one ticker on a club's shared watchlist
type WatchlistEntry struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ClubID        uint      `gorm:"not null;index;uniqueIndex:idx_watchlist_club_ticker" json:"club_id"`
	Ticker        string    `gorm:"size:16;not null;uniqueIndex:idx_watchlist_club_ticker" json:"ticker"`
	AddedByUserID *uint     `json:"added_by_user_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func (WatchlistEntry) TableName() string {
	return "watchlist"
}

// WatchlistEntryInfo is a watchlist row joined with the adder's pseudonym
type WatchlistEntryInfo struct {
	WatchlistEntry
	AddedByPseudonym *string `json:"added_by_pseudonym"`
}

// AddTickerRequest is the body of POST /clubs/:slug/watchlist
type AddTickerRequest struct {
	Ticker string `json:"ticker" binding:"required"`
}
