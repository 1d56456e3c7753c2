package analyze_test

import (
	"testing"

	"github.com/haugom/procsight/internal/models"
	"github.com/haugom/procsight/pkg/analyze"
	"github.com/stretchr/testify/assert"
)

func TestMergeWeightedSentiment(t *testing.T) {
	chunks := []models.TextInsights{
		{Sentiment: "positive", Positive: 0.9, Neutral: 0.05, Negative: 0.05, Score: 0.9, ScoreKnown: true},
		{Sentiment: "negative", Positive: 0.1, Neutral: 0.1, Negative: 0.8, Score: 0.1, ScoreKnown: true},
	}

	// The second chunk carries three times the text
	merged := analyze.Merge(chunks, []int{100, 300})

	assert.True(t, merged.ScoreKnown)
	assert.InDelta(t, 0.3, merged.Positive, 1e-9)
	assert.InDelta(t, 0.6125, merged.Negative, 1e-9)
	assert.Equal(t, "negative", merged.Sentiment)
}

func TestMergePreservesPhraseOrder(t *testing.T) {
	chunks := []models.TextInsights{
		{KeyPhrases: []string{"contract award", "cybersecurity"}},
		{KeyPhrases: []string{"cybersecurity", "risk assessment"}},
	}

	merged := analyze.Merge(chunks, []int{10, 10})
	assert.Equal(t, []string{"contract award", "cybersecurity", "risk assessment"}, merged.KeyPhrases)
}

func TestMergeUnionsEntities(t *testing.T) {
	org := models.Entity{Text: "NATO", Category: "Organization"}
	chunks := []models.TextInsights{
		{Entities: []models.Entity{org}},
		{Entities: []models.Entity{org, {Text: "Brussels", Category: "Location"}}},
	}

	merged := analyze.Merge(chunks, nil)
	assert.Equal(t, []models.Entity{org, {Text: "Brussels", Category: "Location"}}, merged.Entities)
}

func TestMergeSkipsUnknownScores(t *testing.T) {
	chunks := []models.TextInsights{
		{KeyPhrases: []string{"logistics support"}},
		{Sentiment: "neutral", Positive: 0.2, Neutral: 0.7, Negative: 0.1, Score: 0.2, ScoreKnown: true},
	}

	merged := analyze.Merge(chunks, []int{50, 50})
	assert.True(t, merged.ScoreKnown)
	assert.InDelta(t, 0.2, merged.Score, 1e-9)
	assert.Equal(t, "neutral", merged.Sentiment)
}
