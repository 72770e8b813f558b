package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistaceo/insight-engine/internal/core/domain"
)

func TestFingerprintNormalization(t *testing.T) {
	base := Fingerprint("Expand Delivery Radius", "More orders from nearby areas")

	tests := []struct {
		name    string
		title   string
		summary string
		same    bool
	}{
		{"identical", "Expand Delivery Radius", "More orders from nearby areas", true},
		{"case folded", "EXPAND DELIVERY RADIUS", "more orders FROM nearby areas", true},
		{"whitespace collapsed", "  Expand   Delivery\tRadius ", "More orders  from nearby areas", true},
		{"different title", "Shrink delivery radius", "More orders from nearby areas", false},
		{"different summary", "Expand Delivery Radius", "Fewer orders", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(tt.title, tt.summary)
			if tt.same {
				assert.Equal(t, base, got)
			} else {
				assert.NotEqual(t, base, got)
			}
		})
	}
}

func TestDeduplicateKeepsFirstSeen(t *testing.T) {
	dup := Fingerprint("expand catering", "offices nearby")

	artifacts := []domain.Artifact{
		{ID: "a", Fingerprint: Fingerprint("loyalty card", "repeat visits")},
		{ID: "b", Fingerprint: dup},
		{ID: "c", Fingerprint: dup},
		{ID: "d", Fingerprint: Fingerprint("menu refresh", "seasonal items")},
	}

	out := Deduplicate(artifacts)

	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
	assert.Equal(t, "d", out[2].ID)
}

func TestScoreCompositeWeights(t *testing.T) {
	a := New(Config{MinScore: 0, MinConfidence: 0}, nil, nil)

	score, penalized := a.Score(domain.Artifact{Confidence: 0.5, Probability: 0.5, Evidence: 0.5})

	assert.False(t, penalized)
	assert.InDelta(t, 0.5, score, 0.0001)

	score, _ = a.Score(domain.Artifact{Confidence: 1, Probability: 0, Evidence: 0})
	assert.InDelta(t, 0.4, score, 0.0001)
}

func TestScoreBlockListPenaltyIsSoft(t *testing.T) {
	a := New(Config{BlockList: []string{"guaranteed returns"}}, nil, nil)

	clean, penalized := a.Score(domain.Artifact{Title: "Steady growth", Confidence: 0.8, Probability: 0.8, Evidence: 0.8})
	assert.False(t, penalized)

	hit, penalized := a.Score(domain.Artifact{Title: "GUARANTEED Returns for everyone", Confidence: 0.8, Probability: 0.8, Evidence: 0.8})
	assert.True(t, penalized)
	assert.InDelta(t, clean-0.15, hit, 0.0001)

	// Penalty clamps at zero instead of going negative.
	floor, penalized := a.Score(domain.Artifact{Summary: "guaranteed returns", Confidence: 0.1, Probability: 0, Evidence: 0})
	assert.True(t, penalized)
	assert.Equal(t, float32(0), floor)
}

func TestBuildViewFiltersDuplicatesAndScores(t *testing.T) {
	dup := Fingerprint("open a second location", "expansion")

	artifacts := []domain.Artifact{
		{ID: "1", Category: "restaurant", Horizon: domain.HorizonShort, Confidence: 0.9, Probability: 0.8, Evidence: 0.7, Fingerprint: Fingerprint("t1", "s1")},
		{ID: "2", Category: "restaurant", Horizon: domain.HorizonMedium, Confidence: 0.8, Probability: 0.8, Evidence: 0.8, Fingerprint: dup},
		{ID: "3", Category: "finance", Horizon: domain.HorizonLong, Confidence: 0.7, Probability: 0.7, Evidence: 0.7, Fingerprint: Fingerprint("t3", "s3")},
		{ID: "4", Title: "A guaranteed win", Category: "finance", Horizon: domain.HorizonShort, Confidence: 0.9, Probability: 0.9, Evidence: 0.9, Fingerprint: dup},
		{ID: "5", Category: "restaurant", Horizon: domain.HorizonShort, Confidence: 0.6, Probability: 0.6, Evidence: 0.6, Fingerprint: Fingerprint("t5", "s5")},
	}

	a := New(Config{MinScore: 0.45, MinConfidence: 0.35, BlockList: []string{"guaranteed"}, TopN: 12}, nil, nil)

	view := a.BuildView("subject-1", artifacts)

	// Artifact 4 duplicates 2 and is removed before its block-list phrase can
	// matter; 1, 2, 3 and 5 survive.
	require.Len(t, view.Items, 4)
	ids := []string{view.Items[0].ID, view.Items[1].ID, view.Items[2].ID, view.Items[3].ID}
	assert.Equal(t, []string{"1", "2", "3", "5"}, ids)

	for _, item := range view.Items {
		assert.GreaterOrEqual(t, item.AuditScore, float32(0.45))
	}
}

func TestBuildViewThresholds(t *testing.T) {
	artifacts := []domain.Artifact{
		{ID: "keep", Horizon: domain.HorizonShort, Category: "a", Confidence: 0.8, Probability: 0.8, Evidence: 0.8, Fingerprint: "f1"},
		{ID: "low-score", Horizon: domain.HorizonShort, Category: "a", Confidence: 0.4, Probability: 0.1, Evidence: 0.1, Fingerprint: "f2"},
		{ID: "low-confidence", Horizon: domain.HorizonShort, Category: "a", Confidence: 0.2, Probability: 0.9, Evidence: 0.9, Fingerprint: "f3"},
	}

	a := New(Config{MinScore: 0.45, MinConfidence: 0.35, TopN: 12}, nil, nil)

	view := a.BuildView("s", artifacts)

	require.Len(t, view.Items, 1)
	assert.Equal(t, "keep", view.Items[0].ID)
}

func TestBuildViewTopNCap(t *testing.T) {
	artifacts := make([]domain.Artifact, 6)
	for i := range artifacts {
		artifacts[i] = domain.Artifact{
			ID:          string(rune('a' + i)),
			Horizon:     domain.HorizonShort,
			Category:    "x",
			Confidence:  0.9,
			Probability: 0.9,
			Evidence:    0.9,
			Fingerprint: Fingerprint("title", string(rune('a'+i))),
		}
	}

	a := New(Config{TopN: 3}, nil, nil)

	view := a.BuildView("s", artifacts)

	assert.Len(t, view.Items, 3)
}

func TestBuildViewRanksByScoreBeforeCap(t *testing.T) {
	// A recent but penalized weak item must not hold a TopN slot against a
	// stronger older one.
	artifacts := []domain.Artifact{
		{ID: "penalized-weak", Title: "guaranteed win", Horizon: domain.HorizonShort, Category: "x", Confidence: 0.5, Probability: 0.5, Evidence: 0.5, Fingerprint: "f1"},
		{ID: "strong", Horizon: domain.HorizonShort, Category: "x", Confidence: 0.95, Probability: 0.95, Evidence: 0.95, Fingerprint: "f2"},
	}

	a := New(Config{BlockList: []string{"guaranteed"}, TopN: 1}, nil, nil)

	view := a.BuildView("s", artifacts)

	require.Len(t, view.Items, 1)
	assert.Equal(t, "strong", view.Items[0].ID)
	assert.False(t, view.Items[0].Penalized)
}

func TestBuildViewStableOrderOnEqualScores(t *testing.T) {
	artifacts := []domain.Artifact{
		{ID: "first", Horizon: domain.HorizonShort, Category: "x", Confidence: 0.8, Probability: 0.8, Evidence: 0.8, Fingerprint: "f1"},
		{ID: "second", Horizon: domain.HorizonShort, Category: "x", Confidence: 0.8, Probability: 0.8, Evidence: 0.8, Fingerprint: "f2"},
	}

	a := New(Config{TopN: 12}, nil, nil)

	view := a.BuildView("s", artifacts)

	require.Len(t, view.Items, 2)
	assert.Equal(t, "first", view.Items[0].ID)
	assert.Equal(t, "second", view.Items[1].ID)
}

func TestBuildViewGrouping(t *testing.T) {
	artifacts := []domain.Artifact{
		{ID: "1", Horizon: domain.HorizonShort, Category: "ops", Confidence: 0.8, Probability: 0.6, Evidence: 0.9, Fingerprint: "f1"},
		{ID: "2", Horizon: domain.HorizonShort, Category: "growth", Confidence: 0.6, Probability: 0.8, Evidence: 0.9, Fingerprint: "f2"},
		{ID: "3", Horizon: domain.HorizonLong, Category: "ops", Confidence: 0.7, Probability: 0.7, Evidence: 0.9, Fingerprint: "f3"},
	}

	a := New(Config{TopN: 12}, nil, nil)

	view := a.BuildView("s", artifacts)

	require.Len(t, view.ByHorizon, 2)
	assert.Equal(t, "short", view.ByHorizon[0].Key)
	assert.Equal(t, 2, view.ByHorizon[0].Count)
	assert.InDelta(t, 0.7, view.ByHorizon[0].AvgConfidence, 0.0001)

	require.Len(t, view.ByCategory, 2)
	assert.Equal(t, "ops", view.ByCategory[0].Key)
}
