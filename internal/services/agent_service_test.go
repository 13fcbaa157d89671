package services

import (
	"context"
	"strings"
	"testing"
)

func TestGenerateCandidatesFromWatchlist(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)

	watchlist := NewWatchlistService(db)
	seeded := []string{"AAPL", "GOOGL", "MSFT", "NVDA"}
	for _, ticker := range seeded {
		if _, err := watchlist.Add(context.Background(), club.ID, ticker, owner.ID); err != nil {
			t.Fatalf("failed to seed watchlist: %v", err)
		}
	}

	drafts, summary, err := NewAgentService(db).GenerateCandidates(context.Background(), club.ID)
	if err != nil {
		t.Fatalf("GenerateCandidates failed: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(drafts))
	}

	seen := make(map[string]bool)
	for _, d := range drafts {
		if seen[d.Ticker] {
			t.Errorf("duplicate ticker %s in selection", d.Ticker)
		}
		seen[d.Ticker] = true

		found := false
		for _, s := range seeded {
			if d.Ticker == s {
				found = true
			}
		}
		if !found {
			t.Errorf("ticker %s not drawn from watchlist", d.Ticker)
		}
		if len(d.ThesisBullets) == 0 || len(d.RiskBullets) == 0 {
			t.Errorf("candidate %s missing analysis bullets", d.Ticker)
		}
		if d.RefPrice.IsZero() {
			t.Errorf("candidate %s missing reference price", d.Ticker)
		}
		if !strings.Contains(summary, d.Ticker) {
			t.Errorf("summary does not mention %s", d.Ticker)
		}
	}
}

func TestGenerateCandidatesFallbackUniverse(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "sub-owner", "Owner")
	club := createTestClub(t, db, "alpha", owner)

	// Watchlist below the batch size falls back to the sample universe
	drafts, _, err := NewAgentService(db).GenerateCandidates(context.Background(), club.ID)
	if err != nil {
		t.Fatalf("GenerateCandidates failed: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(drafts))
	}
	for _, d := range drafts {
		if _, ok := sampleAnalysis[d.Ticker]; !ok {
			t.Errorf("fallback ticker %s not in sample universe", d.Ticker)
		}
	}
}
