package aggregate

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/haugom/procsight/internal/models"
	"github.com/haugom/procsight/pkg/docintel"
)

// Field names the upstream services are known to emit, checked in order.
// Unrecognized fields are simply ignored.
var (
	valueFields = []string{
		"ContractValue", "Contract Value", "EstimatedValue", "Estimated Value",
		"TotalAmount", "Total Amount", "Value",
	}
	startFields = []string{
		"StartDate", "Start Date", "EffectiveDate", "Effective Date",
	}
	endFields = []string{
		"EndDate", "End Date", "ClosingDate", "Closing Date", "ExpiryDate", "Expiry Date",
	}
	durationFields = []string{
		"Duration", "Timeline", "Period",
	}
	stakeholderFields = []string{
		"Contractor", "Supplier", "Vendor", "ContractingAuthority", "Contracting Authority",
	}
	stakeholderCategories = map[string]bool{
		"Organization": true,
		"Person":       true,
	}
)

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

var monthsPattern = regexp.MustCompile(`(\d+)\s*month`)

// Aggregator merges extracted fields and text insights into a single
// procurement insight. Aggregation is pure and total: it never calls out
// and never fails, missing inputs degrade to unknown/empty values.
type Aggregator struct {
	rules Rules
}

func New(rules Rules) Aggregator {
	return Aggregator{rules: rules.withDefaults()}
}

func (a Aggregator) Aggregate(doc models.RawDocument, fields models.ExtractedFields, insights models.TextInsights) models.ProcurementInsight {
	insight := models.ProcurementInsight{
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		RiskRating:   models.RiskUnknown,
		KeyPhrases:   insights.KeyPhrases,
		ProcessedAt:  time.Now(),
	}

	insight.ContractValue = contractValue(fields)
	if !insight.ContractValue.Known {
		insight.Degraded = append(insight.Degraded, "contract_value")
	}

	insight.Timeline = timeline(fields)
	if !insight.Timeline.StartKnown && !insight.Timeline.EndKnown && !insight.Timeline.MonthsKnown {
		insight.Degraded = append(insight.Degraded, "timeline")
	}

	insight.Stakeholders = stakeholders(fields, insights)
	insight.ComplianceFlags = a.complianceFlags(fields, insights)

	if insights.ScoreKnown {
		insight.Sentiment = insights.Sentiment
		insight.SentimentScore = insights.Score
		insight.SentimentKnown = true
	} else {
		insight.Sentiment = "unknown"
		insight.Degraded = append(insight.Degraded, "sentiment")
	}

	insight.RiskRating = a.rules.Rate(insights.Score, insights.ScoreKnown,
		a.riskPhrasePresent(fields, insights))

	return insight
}

func contractValue(fields models.ExtractedFields) models.Money {
	for _, name := range valueFields {
		f, ok := fields.Field(name)
		if !ok {
			continue
		}
		if f.NumberValid {
			return models.Money{Amount: f.Number, Known: true}
		}
		if n, ok := docintel.ParseNumber(f.Raw); ok {
			return models.Money{Amount: n, Known: true}
		}
	}
	return models.Money{}
}

func timeline(fields models.ExtractedFields) models.Timeline {
	var t models.Timeline

	for _, name := range startFields {
		if f, ok := fields.Field(name); ok {
			if d, ok := parseDate(f.Raw); ok {
				t.Start = d
				t.StartKnown = true
				break
			}
		}
	}

	for _, name := range endFields {
		if f, ok := fields.Field(name); ok {
			if d, ok := parseDate(f.Raw); ok {
				t.End = d
				t.EndKnown = true
				break
			}
		}
	}

	for _, name := range durationFields {
		if f, ok := fields.Field(name); ok {
			if m := monthsPattern.FindStringSubmatch(strings.ToLower(f.Raw)); m != nil {
				if n, ok := docintel.ParseNumber(m[1]); ok && n > 0 {
					t.Months = int(n)
					t.MonthsKnown = true
					break
				}
			}
		}
	}

	// Fill in the end date from start + duration when the document only
	// states the two of them
	if t.StartKnown && t.MonthsKnown && !t.EndKnown {
		t.End = t.Start.AddDate(0, t.Months, 0)
		t.EndKnown = true
	}

	return t
}

func parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func stakeholders(fields models.ExtractedFields, insights models.TextInsights) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if !seen[key] {
			seen[key] = true
			out = append(out, name)
		}
	}

	for _, name := range stakeholderFields {
		if f, ok := fields.Field(name); ok {
			add(f.Raw)
		}
	}
	for _, e := range insights.Entities {
		if stakeholderCategories[e.Category] {
			add(e.Text)
		}
	}

	sort.Strings(out)
	return out
}

func (a Aggregator) complianceFlags(fields models.ExtractedFields, insights models.TextInsights) []string {
	var flags []string
	for _, phrase := range a.rules.CompliancePhrases {
		if phrasePresent(phrase, fields, insights) {
			flags = append(flags, phrase)
		}
	}
	sort.Strings(flags)
	return flags
}

func (a Aggregator) riskPhrasePresent(fields models.ExtractedFields, insights models.TextInsights) bool {
	for _, phrase := range a.rules.RiskPhrases {
		if phrasePresent(phrase, fields, insights) {
			return true
		}
	}
	return false
}

func phrasePresent(phrase string, fields models.ExtractedFields, insights models.TextInsights) bool {
	needle := strings.ToLower(phrase)
	for _, p := range insights.KeyPhrases {
		if strings.Contains(strings.ToLower(p), needle) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(fields.Text), needle)
}
