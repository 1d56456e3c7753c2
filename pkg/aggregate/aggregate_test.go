package aggregate_test

import (
	"testing"
	"time"

	"github.com/haugom/procsight/internal/models"
	"github.com/haugom/procsight/pkg/aggregate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDoc() models.RawDocument {
	return models.RawDocument{ID: "doc-1", Name: "contract.pdf"}
}

func fieldsWith(values map[string]string) models.ExtractedFields {
	fields := make(map[string]models.FieldValue, len(values))
	for name, raw := range values {
		fields[name] = models.FieldValue{Raw: raw, Confidence: 0.9}
	}
	return models.ExtractedFields{Fields: fields}
}

func TestAggregateContractValue(t *testing.T) {
	agg := aggregate.New(aggregate.Rules{})

	fields := fieldsWith(map[string]string{
		"ContractValue": "€2,500,000",
	})

	insight := agg.Aggregate(testDoc(), fields, models.TextInsights{})

	require.True(t, insight.ContractValue.Known)
	assert.Equal(t, 2500000.0, insight.ContractValue.Amount)
}

func TestAggregateValueFieldPrecedence(t *testing.T) {
	agg := aggregate.New(aggregate.Rules{})

	fields := fieldsWith(map[string]string{
		"ContractValue":  "€1,000,000",
		"EstimatedValue": "€9,999,999",
	})

	insight := agg.Aggregate(testDoc(), fields, models.TextInsights{})
	assert.Equal(t, 1000000.0, insight.ContractValue.Amount)
}

func TestAggregateTimeline(t *testing.T) {
	agg := aggregate.New(aggregate.Rules{})

	fields := fieldsWith(map[string]string{
		"StartDate": "2024-01-15",
		"Duration":  "24 months",
	})

	insight := agg.Aggregate(testDoc(), fields, models.TextInsights{})

	require.True(t, insight.Timeline.StartKnown)
	require.True(t, insight.Timeline.MonthsKnown)
	assert.Equal(t, 24, insight.Timeline.Months)

	// End is derived from start + duration when not stated
	require.True(t, insight.Timeline.EndKnown)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), insight.Timeline.End)
}

func TestAggregateStakeholders(t *testing.T) {
	agg := aggregate.New(aggregate.Rules{})

	fields := fieldsWith(map[string]string{
		"Contractor": "TechSecure Solutions Ltd.",
	})
	insights := models.TextInsights{
		Entities: []models.Entity{
			{Text: "NATO Defense College", Category: "Organization"},
			{Text: "techsecure solutions ltd.", Category: "Organization"}, // dup, different case
			{Text: "Brussels", Category: "Location"},
		},
	}

	insight := agg.Aggregate(testDoc(), fields, insights)

	assert.Equal(t, []string{"NATO Defense College", "TechSecure Solutions Ltd."}, insight.Stakeholders)
}

func TestAggregateComplianceFlags(t *testing.T) {
	agg := aggregate.New(aggregate.Rules{
		CompliancePhrases: []string{"GDPR", "ISO 27001"},
	})

	insights := models.TextInsights{
		KeyPhrases: []string{"GDPR adherence", "cloud migration"},
		ScoreKnown: true,
		Score:      0.8,
		Sentiment:  "positive",
	}
	fields := models.ExtractedFields{Text: "compliance audit per ISO 27001 required"}

	insight := agg.Aggregate(testDoc(), fields, insights)
	assert.Equal(t, []string{"GDPR", "ISO 27001"}, insight.ComplianceFlags)
}

func TestRiskRatingHigh(t *testing.T) {
	agg := aggregate.New(aggregate.Rules{})

	insights := models.TextInsights{
		Sentiment:  "negative",
		Score:      0.1,
		ScoreKnown: true,
		KeyPhrases: []string{"non-compliant delivery"},
	}

	insight := agg.Aggregate(testDoc(), models.ExtractedFields{}, insights)
	assert.Equal(t, models.RiskHigh, insight.RiskRating)
}

func TestRiskRatingBands(t *testing.T) {
	rules := aggregate.Rules{HighBelow: 0.25, LowAbove: 0.6}

	tests := []struct {
		name      string
		score     float64
		known     bool
		phraseHit bool
		want      models.RiskRating
	}{
		{"positive text, no phrases", 0.8, true, false, models.RiskLow},
		{"middling text", 0.4, true, false, models.RiskMedium},
		{"negative text", 0.1, true, false, models.RiskHigh},
		{"positive text with risk phrase", 0.8, true, true, models.RiskMedium},
		{"negative text with risk phrase", 0.1, true, true, models.RiskHigh},
		{"no signals", 0, false, false, models.RiskUnknown},
		{"phrase only", 0, false, true, models.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.Rate(tt.score, tt.known, tt.phraseHit))
		})
	}
}

func TestRiskRatingIsPure(t *testing.T) {
	agg := aggregate.New(aggregate.Rules{})

	a := models.TextInsights{
		Score:      0.3,
		ScoreKnown: true,
		KeyPhrases: []string{"penalty clause", "audit trail"},
	}
	b := models.TextInsights{
		Score:      0.3,
		ScoreKnown: true,
		KeyPhrases: []string{"audit trail", "penalty clause"}, // same set, reordered
	}

	first := agg.Aggregate(testDoc(), models.ExtractedFields{}, a)
	second := agg.Aggregate(testDoc(), models.ExtractedFields{}, b)
	third := agg.Aggregate(testDoc(), models.ExtractedFields{}, a)

	assert.Equal(t, first.RiskRating, second.RiskRating)
	assert.Equal(t, first.RiskRating, third.RiskRating)
}

func TestAggregateIsTotal(t *testing.T) {
	agg := aggregate.New(aggregate.Rules{})

	// Completely empty inputs still yield a fully populated record
	insight := agg.Aggregate(testDoc(), models.ExtractedFields{}, models.TextInsights{})

	assert.False(t, insight.ContractValue.Known)
	assert.False(t, insight.Timeline.StartKnown)
	assert.Equal(t, models.RiskUnknown, insight.RiskRating)
	assert.Equal(t, "unknown", insight.Sentiment)
	assert.Empty(t, insight.Stakeholders)
	assert.Empty(t, insight.ComplianceFlags)

	assert.Contains(t, insight.Degraded, "contract_value")
	assert.Contains(t, insight.Degraded, "timeline")
	assert.Contains(t, insight.Degraded, "sentiment")
}

func TestAggregateIgnoresUnrecognizedFields(t *testing.T) {
	agg := aggregate.New(aggregate.Rules{})

	fields := fieldsWith(map[string]string{
		"SomeObscureField": "whatever",
		"ContractValue":    "€890,000",
	})

	insight := agg.Aggregate(testDoc(), fields, models.TextInsights{})
	assert.Equal(t, 890000.0, insight.ContractValue.Amount)
}
