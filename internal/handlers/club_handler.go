package handlers

import (
	"net/http"
	"strconv"

	"voteticker/internal/models"
	"voteticker/internal/services"

	"github.com/gin-gonic/gin"
)

// ClubHandler serves club and membership endpoints
type ClubHandler struct {
	clubService *services.ClubService
}

func NewClubHandler(clubService *services.ClubService) *ClubHandler {
	return &ClubHandler{clubService: clubService}
}

// ListClubs lists public clubs
// GET /api/clubs
func (h *ClubHandler) ListClubs(c *gin.Context) {
	clubs, err := h.clubService.ListPublicClubs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, clubs)
}

// GetClub retrieves a club by slug
// GET /api/clubs/:slug
func (h *ClubHandler) GetClub(c *gin.Context) {
	club, err := h.clubService.GetClubBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, club)
}

// CreateClub creates a club owned by the caller
// POST /api/clubs
func (h *ClubHandler) CreateClub(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	club, err := h.clubService.CreateClub(c.Request.Context(), &req, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, club)
}

// GetMembership returns the club plus the caller's membership row, if any
// GET /api/clubs/:slug/member
func (h *ClubHandler) GetMembership(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	club, err := h.clubService.GetClubBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	member, err := h.clubService.GetMember(c.Request.Context(), club.ID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"club": club, "member": member})
}

// JoinClub files a pending join request
// POST /api/clubs/:slug/join
func (h *ClubHandler) JoinClub(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	club, err := h.clubService.GetClubBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req models.JoinClubRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.clubService.RequestJoin(c.Request.Context(), club.ID, user.ID, req.ReasonForInterest); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// ListMembers lists approved members; members only
// GET /api/clubs/:slug/members
func (h *ClubHandler) ListMembers(c *gin.Context) {
	club, _, ok := h.authorizeClub(c, "")
	if !ok {
		return
	}

	members, err := h.clubService.ListApprovedMembers(c.Request.Context(), club.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// ListPending lists pending join requests; requires approve_members
// GET /api/clubs/:slug/pending
func (h *ClubHandler) ListPending(c *gin.Context) {
	club, _, ok := h.authorizeClub(c, services.ActionApproveMembers)
	if !ok {
		return
	}

	pending, err := h.clubService.ListPendingRequests(c.Request.Context(), club.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

// ApproveMember approves a pending join request
// POST /api/clubs/:slug/approve/:memberId
func (h *ClubHandler) ApproveMember(c *gin.Context) {
	h.reviewMember(c, true)
}

// RejectMember rejects a pending join request
// POST /api/clubs/:slug/reject/:memberId
func (h *ClubHandler) RejectMember(c *gin.Context) {
	h.reviewMember(c, false)
}

func (h *ClubHandler) reviewMember(c *gin.Context, approve bool) {
	club, _, ok := h.authorizeClub(c, services.ActionApproveMembers)
	if !ok {
		return
	}

	memberID, err := strconv.ParseUint(c.Param("memberId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	member, err := h.clubService.ReviewJoinRequest(c.Request.Context(), club.ID, uint(memberID), approve)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// authorizeClub resolves the slug to a club and checks the caller's approved
// membership (and capability, when action is non-empty). On failure the
// response has already been written.
func (h *ClubHandler) authorizeClub(c *gin.Context, action string) (*models.Club, *models.ClubMember, bool) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, nil, false
	}

	club, err := h.clubService.GetClubBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}

	member, err := h.clubService.Authorize(c.Request.Context(), club.ID, user.ID, action)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	return club, member, true
}
