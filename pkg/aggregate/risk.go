package aggregate

import "github.com/haugom/procsight/internal/models"

// Rules holds the externally adjustable inputs of the risk decision:
// sentiment thresholds and the phrase lists. The decision function itself
// is fixed, total, and order-independent over its inputs.
type Rules struct {
	// HighBelow and LowAbove bound the sentiment score bands:
	// score <= HighBelow reads as negative, score >= LowAbove as positive.
	HighBelow float64
	LowAbove  float64
	// CompliancePhrases are recorded as compliance flags when present.
	CompliancePhrases []string
	// RiskPhrases raise the rating one band when any of them is present.
	RiskPhrases []string
}

func (r Rules) withDefaults() Rules {
	if r.HighBelow == 0 {
		r.HighBelow = 0.25
	}
	if r.LowAbove == 0 {
		r.LowAbove = 0.6
	}
	if len(r.RiskPhrases) == 0 {
		r.RiskPhrases = []string{"non-compliant", "penalty", "breach", "litigation", "termination"}
	}
	return r
}

// Rate derives the risk rating from the sentiment score and the presence of
// risk phrases. With neither signal available the rating is unknown.
func (r Rules) Rate(score float64, scoreKnown bool, riskPhraseHit bool) models.RiskRating {
	if !scoreKnown && !riskPhraseHit {
		return models.RiskUnknown
	}

	severity := 1
	if scoreKnown {
		switch {
		case score <= r.HighBelow:
			severity = 2
		case score >= r.LowAbove:
			severity = 0
		}
	}
	if riskPhraseHit {
		severity++
	}

	switch {
	case severity >= 2:
		return models.RiskHigh
	case severity == 1:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
