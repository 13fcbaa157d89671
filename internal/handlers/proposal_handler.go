package handlers

import (
	"net/http"

	"voteticker/internal/models"
	"voteticker/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProposalHandler is the API surface over the proposal/vote/receipt core. It
// is the only caller of the core's mutating operations, and it validates
// membership through the club service before every one of them.
type ProposalHandler struct {
	clubs     *ClubHandler
	clubSvc   *services.ClubService
	agent     *services.AgentService
	proposals *services.ProposalService
}

func NewProposalHandler(
	clubHandler *ClubHandler,
	clubService *services.ClubService,
	agentService *services.AgentService,
	proposalService *services.ProposalService,
) *ProposalHandler {
	return &ProposalHandler{
		clubs:     clubHandler,
		clubSvc:   clubService,
		agent:     agentService,
		proposals: proposalService,
	}
}

// Generate produces candidates from the club watchlist and creates a proposal
// that immediately opens for voting
// POST /api/clubs/:slug/proposals/generate
func (h *ProposalHandler) Generate(c *gin.Context) {
	club, member, ok := h.clubs.authorizeClub(c, "")
	if !ok {
		return
	}

	drafts, summary, err := h.agent.GenerateCandidates(c.Request.Context(), club.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	proposal, err := h.proposals.CreateProposal(c.Request.Context(), club.ID, member.UserID, drafts, summary)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, proposal)
}

// List lists a club's proposals; members only
// GET /api/clubs/:slug/proposals
func (h *ProposalHandler) List(c *gin.Context) {
	club, _, ok := h.clubs.authorizeClub(c, "")
	if !ok {
		return
	}

	proposals, err := h.proposals.ListProposals(c.Request.Context(), club.ID, models.ProposalStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposals)
}

// Get retrieves a proposal with its candidates; members of its club only
// GET /api/proposals/:id
func (h *ProposalHandler) Get(c *gin.Context) {
	proposal, _, ok := h.authorizeProposal(c, "")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, proposal)
}

// Vote casts or changes the caller's vote on one candidate
// POST /api/proposals/:id/vote
func (h *ProposalHandler) Vote(c *gin.Context) {
	_, member, ok := h.authorizeProposal(c, "")
	if !ok {
		return
	}

	var req models.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	candidateID, err := uuid.Parse(req.CandidateID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid candidate id"})
		return
	}

	vote, err := h.proposals.CastVote(c.Request.Context(), candidateID, member.UserID, req.Vote, req.Rationale)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vote)
}

// Publish freezes the proposal into a decision receipt; requires the
// publish_receipts capability
// POST /api/proposals/:id/publish
func (h *ProposalHandler) Publish(c *gin.Context) {
	proposal, member, ok := h.authorizeProposal(c, services.ActionPublishReceipts)
	if !ok {
		return
	}

	receipt, err := h.proposals.PublishReceipt(c.Request.Context(), proposal.ID, member.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// GetReceipt retrieves the published decision receipt for a proposal
// GET /api/proposals/:id/receipt
func (h *ProposalHandler) GetReceipt(c *gin.Context) {
	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}

	receipt, err := h.proposals.GetReceipt(c.Request.Context(), proposalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// VerifyChain re-verifies the whole receipt chain
// GET /api/receipts/verify
func (h *ProposalHandler) VerifyChain(c *gin.Context) {
	result, err := h.proposals.VerifyChain(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// authorizeProposal loads the proposal from :id and checks the caller's
// approved membership in its club (plus a capability when action is set)
func (h *ProposalHandler) authorizeProposal(c *gin.Context, action string) (*models.Proposal, *models.ClubMember, bool) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, nil, false
	}

	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return nil, nil, false
	}

	proposal, err := h.proposals.GetProposal(c.Request.Context(), proposalID)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}

	member, err := h.clubSvc.Authorize(c.Request.Context(), proposal.ClubID, user.ID, action)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	return proposal, member, true
}
