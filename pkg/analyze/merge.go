package analyze

import "github.com/haugom/procsight/internal/models"

// Merge combines per-chunk insights into one record. Sentiment confidences
// are averaged weighted by chunk length and the label recomputed from the
// averaged scores; key phrases keep first-seen order; entities are unioned
// on (text, category). The merge is order-preserving over the chunk
// sequence, so identical input always yields identical output.
func Merge(chunks []models.TextInsights, weights []int) models.TextInsights {
	if len(chunks) == 0 {
		return models.TextInsights{}
	}
	if len(chunks) == 1 {
		return chunks[0]
	}

	var merged models.TextInsights
	var totalWeight float64

	phraseSeen := make(map[string]bool)
	entitySeen := make(map[models.Entity]bool)

	for i, chunk := range chunks {
		w := 1.0
		if i < len(weights) && weights[i] > 0 {
			w = float64(weights[i])
		}

		if chunk.ScoreKnown {
			merged.Positive += chunk.Positive * w
			merged.Neutral += chunk.Neutral * w
			merged.Negative += chunk.Negative * w
			totalWeight += w
		}

		for _, p := range chunk.KeyPhrases {
			if !phraseSeen[p] {
				phraseSeen[p] = true
				merged.KeyPhrases = append(merged.KeyPhrases, p)
			}
		}

		for _, e := range chunk.Entities {
			if !entitySeen[e] {
				entitySeen[e] = true
				merged.Entities = append(merged.Entities, e)
			}
		}
	}

	if totalWeight > 0 {
		merged.Positive /= totalWeight
		merged.Neutral /= totalWeight
		merged.Negative /= totalWeight
		merged.Score = merged.Positive
		merged.ScoreKnown = true
		merged.Sentiment = labelFromScores(merged.Positive, merged.Neutral, merged.Negative)
	}

	return merged
}

func labelFromScores(positive, neutral, negative float64) string {
	switch {
	case positive >= neutral && positive >= negative:
		return "positive"
	case negative >= neutral && negative >= positive:
		return "negative"
	default:
		return "neutral"
	}
}
