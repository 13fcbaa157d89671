package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// candidatesPerProposal is the candidate batch size in this domain
const candidatesPerProposal = 3

type tickerAnalysis struct {
	thesis     []string
	risks      []string
	unknowns   []string
	confidence string
	reasoning  string
	refPrice   string
}

// Canned per-ticker analysis. Advisory text only; the core never validates it
// for factual content.
var sampleAnalysis = map[string]tickerAnalysis{
	"AAPL": {
		thesis:     []string{"Strong ecosystem lock-in", "Services revenue growing", "Cash-rich balance sheet"},
		risks:      []string{"China exposure", "Regulatory scrutiny", "Valuation premium"},
		unknowns:   []string{"Apple Intelligence monetization", "India manufacturing scale"},
		confidence: "Medium-High",
		reasoning:  "Stable core business with optionality.",
		refPrice:   "232.50",
	},
	"GOOGL": {
		thesis:     []string{"Search dominance", "Cloud growth", "AI investments"},
		risks:      []string{"Antitrust", "Cloud margin pressure", "AI capex"},
		unknowns:   []string{"Gemini adoption", "YouTube profitability"},
		confidence: "Medium",
		reasoning:  "AI race participant with diversified revenue.",
		refPrice:   "186.20",
	},
	"MSFT": {
		thesis:     []string{"Azure leader", "Copilot integration", "OpenAI partnership"},
		risks:      []string{"AI ROI uncertain", "Antitrust", "Cloud competition"},
		unknowns:   []string{"Copilot adoption", "OpenAI economics"},
		confidence: "Medium-High",
		reasoning:  "Best positioned for enterprise AI.",
		refPrice:   "428.90",
	},
	"NVDA": {
		thesis:     []string{"AI chip dominance", "Data center demand", "Software moat"},
		risks:      []string{"Cyclical", "Competition", "Geopolitical"},
		unknowns:   []string{"Next-gen Blackwell ramp", "China restrictions"},
		confidence: "High (short-term)",
		reasoning:  "Key AI beneficiary but volatile.",
		refPrice:   "134.75",
	},
	"META": {
		thesis:     []string{"Advertising scale", "Reality Labs optionality", "Efficiency focus"},
		risks:      []string{"Regulation", "TikTok competition", "Metaverse burn"},
		unknowns:   []string{"AR/VR adoption", "AI agent monetization"},
		confidence: "Medium",
		reasoning:  "Cheap vs growth potential.",
		refPrice:   "595.40",
	},
}

var genericAnalysis = tickerAnalysis{
	thesis:     []string{"Strong fundamentals", "Sector leader", "Growth potential"},
	risks:      []string{"Market risk", "Competition", "Valuation"},
	unknowns:   []string{"Future catalysts", "Management execution"},
	confidence: "Medium",
	reasoning:  "General analysis. Not financial advice.",
	refPrice:   "100.00",
}

// AgentService generates trade-idea candidates from a ticker universe. The
// selection is pseudo-random over the club's watchlist, falling back to the
// fixed sample universe when the watchlist is too small.
type AgentService struct {
	watchlist *WatchlistService
}

func NewAgentService(db *gorm.DB) *AgentService {
	return &AgentService{watchlist: NewWatchlistService(db)}
}

// GenerateCandidates produces exactly three candidate drafts plus a thesis
// summary for the proposal they will form.
func (s *AgentService) GenerateCandidates(ctx context.Context, clubID uint) ([]CandidateDraft, string, error) {
	entries, err := s.watchlist.List(ctx, clubID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load watchlist: %w", err)
	}

	universe := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Ticker != "" {
			universe = append(universe, e.Ticker)
		}
	}
	if len(universe) < candidatesPerProposal {
		universe = universe[:0]
		for ticker := range sampleAnalysis {
			universe = append(universe, ticker)
		}
	}

	selected, err := pickRandom(universe, candidatesPerProposal)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sample tickers: %w", err)
	}

	drafts := make([]CandidateDraft, len(selected))
	for i, ticker := range selected {
		a, ok := sampleAnalysis[ticker]
		if !ok {
			a = genericAnalysis
		}
		drafts[i] = CandidateDraft{
			Ticker:        ticker,
			ThesisBullets: a.thesis,
			RiskBullets:   a.risks,
			Unknowns:      a.unknowns,
			Confidence:    a.confidence,
			Reasoning:     a.reasoning,
			RefPrice:      decimal.RequireFromString(a.refPrice),
		}
	}

	summary := fmt.Sprintf(
		"Educational proposal: %s. Not financial advice. Risk/unknowns included. Data illustrative only.",
		strings.Join(selected, ", "),
	)
	return drafts, summary, nil
}

// pickRandom returns n distinct elements of items in random order
func pickRandom(items []string, n int) ([]string, error) {
	shuffled := make([]string, len(items))
	copy(shuffled, items)
	for i := len(shuffled) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, err
		}
		shuffled[i], shuffled[j.Int64()] = shuffled[j.Int64()], shuffled[i]
	}
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n], nil
}
