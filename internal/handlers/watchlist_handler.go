package handlers

import (
	"net/http"

	"voteticker/internal/models"
	"voteticker/internal/services"

	"github.com/gin-gonic/gin"
)

// WatchlistHandler serves a club's shared watchlist; all routes are
// members-only
type WatchlistHandler struct {
	clubs     *ClubHandler
	watchlist *services.WatchlistService
}

func NewWatchlistHandler(clubHandler *ClubHandler, watchlistService *services.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{clubs: clubHandler, watchlist: watchlistService}
}

// List returns the club watchlist
// GET /api/clubs/:slug/watchlist
func (h *WatchlistHandler) List(c *gin.Context) {
	club, _, ok := h.clubs.authorizeClub(c, "")
	if !ok {
		return
	}

	entries, err := h.watchlist.List(c.Request.Context(), club.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Add puts a ticker on the club watchlist
// POST /api/clubs/:slug/watchlist
func (h *WatchlistHandler) Add(c *gin.Context) {
	club, member, ok := h.clubs.authorizeClub(c, "")
	if !ok {
		return
	}

	var req models.AddTickerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.watchlist.Add(c.Request.Context(), club.ID, req.Ticker, member.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Remove deletes a ticker from the club watchlist
// DELETE /api/clubs/:slug/watchlist/:ticker
func (h *WatchlistHandler) Remove(c *gin.Context) {
	club, _, ok := h.clubs.authorizeClub(c, "")
	if !ok {
		return
	}

	if _, err := h.watchlist.Remove(c.Request.Context(), club.ID, c.Param("ticker")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
