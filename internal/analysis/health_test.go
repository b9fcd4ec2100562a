package analysis

import (
	"testing"
	"time"

	"subtrack/internal/core"
)

func TestHealthScores(t *testing.T) {
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	netflixLast := "2025-06-20"
	huluLast := "2025-06-10"
	disneyLast := "2025-05-15"
	gymLast := "2025-01-15"

	report := core.EmptyReport(now)
	report.Merchants = []core.MerchantSummary{
		{Merchant: "Netflix", Category: "Streaming", ChargeCount: 6, MonthlyCost: 15.49, LastCharge: &netflixLast},
		{Merchant: "Hulu", Category: "Streaming", ChargeCount: 3, MonthlyCost: 12.99, LastCharge: &huluLast},
		{Merchant: "Disney+", Category: "Streaming", ChargeCount: 3, MonthlyCost: 13.99, LastCharge: &disneyLast},
		{Merchant: "Dusty Gym", Category: "Fitness", ChargeCount: 2, MonthlyCost: 40, LastCharge: &gymLast, IsForgotten: true},
		{Merchant: "Penny App", Category: "Software", ChargeCount: 1, MonthlyCost: 3.99},
	}
	report.Overlaps = []core.OverlapWarning{
		{Category: "Streaming", MerchantA: "Hulu", MerchantB: "Disney+", MonthlyCostA: 12.99, MonthlyCostB: 13.99, PotentialSavings: 12.99},
	}

	scores := HealthScores(report, now)
	if len(scores) != 5 {
		t.Fatalf("got %d scores, want 5", len(scores))
	}

	// Worst first.
	if scores[0].Merchant != "Dusty Gym" {
		t.Errorf("worst merchant = %q, want Dusty Gym", scores[0].Merchant)
	}
	if scores[len(scores)-1].Merchant != "Netflix" {
		t.Errorf("best merchant = %q, want Netflix", scores[len(scores)-1].Merchant)
	}
	for i := 1; i < len(scores); i++ {
		if scores[i].Score < scores[i-1].Score {
			t.Fatalf("scores not ascending: %v", scores)
		}
	}

	byMerchant := map[string]HealthScore{}
	for _, s := range scores {
		byMerchant[s.Merchant] = s
	}

	// 50 base, +20 six charges, +20 charged 10 days ago.
	if got := byMerchant["Netflix"]; got.Score != 90 || got.Label != "Healthy" {
		t.Errorf("Netflix = %d %q, want 90 Healthy", got.Score, got.Label)
	}
	if len(byMerchant["Netflix"].Tips) != 0 {
		t.Errorf("Netflix tips = %v, want none", byMerchant["Netflix"].Tips)
	}

	// 50 base, +10 three charges, +20 recent, -15 overlap.
	if got := byMerchant["Hulu"]; got.Score != 65 || got.Label != "Fair" {
		t.Errorf("Hulu = %d %q, want 65 Fair", got.Score, got.Label)
	}
	if tips := byMerchant["Hulu"].Tips; len(tips) != 1 {
		t.Errorf("Hulu tips = %v, want one overlap tip", tips)
	}

	// 50 base, -15 stale, -20 forgotten.
	gym := byMerchant["Dusty Gym"]
	if gym.Score != 15 || gym.Label != "Cancel?" {
		t.Errorf("Dusty Gym = %d %q, want 15 Cancel?", gym.Score, gym.Label)
	}
	if len(gym.Tips) != 2 {
		t.Errorf("Dusty Gym tips = %v, want stale + forgotten", gym.Tips)
	}

	// 50 base, +5 cheap, no dates known.
	if got := byMerchant["Penny App"]; got.Score != 55 || got.LastCharge != "" {
		t.Errorf("Penny App = %d last=%q, want 55 with empty last charge", got.Score, got.LastCharge)
	}
}

func TestHealthScoreClampedAtZero(t *testing.T) {
	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	stale := "2024-01-01"

	report := core.EmptyReport(now)
	report.Merchants = []core.MerchantSummary{
		{Merchant: "Ghost Box", Category: "Software", ChargeCount: 1, MonthlyCost: 60, LastCharge: &stale, IsForgotten: true},
		{Merchant: "Ghost Pad", Category: "Software", ChargeCount: 1, MonthlyCost: 58, LastCharge: &stale, IsForgotten: true},
	}
	report.Overlaps = []core.OverlapWarning{
		{Category: "Software", MerchantA: "Ghost Box", MerchantB: "Ghost Pad"},
	}

	for _, s := range HealthScores(report, now) {
		if s.Score != 0 {
			t.Errorf("%s score = %d, want 0", s.Merchant, s.Score)
		}
		if s.Label != "Cancel?" {
			t.Errorf("%s label = %q, want Cancel?", s.Merchant, s.Label)
		}
	}
}

func TestHealthLabelBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "Healthy"},
		{75, "Healthy"},
		{74, "Fair"},
		{50, "Fair"},
		{49, "Review"},
		{25, "Review"},
		{24, "Cancel?"},
		{0, "Cancel?"},
	}
	for _, tt := range tests {
		if got := healthLabel(tt.score); got != tt.want {
			t.Errorf("healthLabel(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
