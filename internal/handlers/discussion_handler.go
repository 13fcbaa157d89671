package handlers

import (
	"net/http"
	"strconv"

	"voteticker/internal/models"
	"voteticker/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DiscussionHandler serves the club message board
type DiscussionHandler struct {
	clubs      *ClubHandler
	discussion *services.DiscussionService
}

func NewDiscussionHandler(clubHandler *ClubHandler, discussionService *services.DiscussionService) *DiscussionHandler {
	return &DiscussionHandler{clubs: clubHandler, discussion: discussionService}
}

// List returns club messages, optionally scoped to a proposal
// GET /api/clubs/:slug/discussion?proposal_id=...
func (h *DiscussionHandler) List(c *gin.Context) {
	club, _, ok := h.clubs.authorizeClub(c, "")
	if !ok {
		return
	}

	var proposalID *uuid.UUID
	if raw := c.Query("proposal_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
			return
		}
		proposalID = &id
	}

	messages, err := h.discussion.ListMessages(c.Request.Context(), club.ID, proposalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// Post adds a message to the club board
// POST /api/clubs/:slug/discussion
func (h *DiscussionHandler) Post(c *gin.Context) {
	club, member, ok := h.clubs.authorizeClub(c, "")
	if !ok {
		return
	}

	var req models.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var proposalID *uuid.UUID
	if req.ProposalID != nil && *req.ProposalID != "" {
		id, err := uuid.Parse(*req.ProposalID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
			return
		}
		proposalID = &id
	}

	msg, err := h.discussion.PostMessage(c.Request.Context(), club.ID, member.UserID, req.Body, proposalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Pin pins a message; requires pin_posts
// POST /api/clubs/:slug/discussion/:messageId/pin
func (h *DiscussionHandler) Pin(c *gin.Context) {
	h.setPinned(c, true)
}

// Unpin unpins a message; requires pin_posts
// POST /api/clubs/:slug/discussion/:messageId/unpin
func (h *DiscussionHandler) Unpin(c *gin.Context) {
	h.setPinned(c, false)
}

func (h *DiscussionHandler) setPinned(c *gin.Context, pinned bool) {
	club, member, ok := h.clubs.authorizeClub(c, services.ActionPinPosts)
	if !ok {
		return
	}

	messageID, err := strconv.ParseUint(c.Param("messageId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	msg, err := h.discussion.SetPinned(c.Request.Context(), uint(messageID), club.ID, member.UserID, pinned)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}
