package analyze_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/haugom/procsight/pkg/analyze"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStubService fakes a text analytics service deterministically: fixed
// sentiment scores and key phrases derived from the submitted text, so the
// chunked and unchunked paths can be compared.
func newStubService() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Documents []struct {
				ID   string `json:"id"`
				Text string `json:"text"`
			} `json:"documents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Documents) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		text := req.Documents[0].Text

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/sentiment"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"documents": []map[string]interface{}{{
					"id":        "1",
					"sentiment": "positive",
					"confidenceScores": map[string]float64{
						"positive": 0.7, "neutral": 0.2, "negative": 0.1,
					},
				}},
			})
		case strings.HasSuffix(r.URL.Path, "/keyPhrases"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"documents": []map[string]interface{}{{
					"id":         "1",
					"keyPhrases": phrasesFor(text),
				}},
			})
		case strings.HasSuffix(r.URL.Path, "/entities/recognition/general"):
			var entities []map[string]interface{}
			if strings.Contains(text, "TechSecure") {
				entities = append(entities, map[string]interface{}{
					"text": "TechSecure Solutions", "category": "Organization", "confidenceScore": 0.9,
				})
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"documents": []map[string]interface{}{{
					"id": "1", "entities": entities,
				}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// phrasesFor extracts "phrases": unique words longer than six characters,
// in order of first appearance.
func phrasesFor(text string) []string {
	seen := make(map[string]bool)
	phrases := []string{}
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?")
		if len(word) > 6 && !seen[word] {
			seen[word] = true
			phrases = append(phrases, word)
		}
	}
	return phrases
}

func newTestClient(t *testing.T, endpoint string, maxChunk int) *analyze.Client {
	client, err := analyze.NewWithConfig(analyze.ClientConfig{
		Endpoint:     endpoint,
		Key:          "test-key",
		MaxChunkSize: maxChunk,
		RateLimit:    1000,
	})
	require.NoError(t, err)
	return client
}

func TestAnalyze(t *testing.T) {
	server := newStubService()
	defer server.Close()

	client := newTestClient(t, server.URL, 5120)

	insights, err := client.Analyze(context.Background(),
		"Contract awarded to TechSecure Solutions for cybersecurity infrastructure.")
	require.NoError(t, err)

	assert.Equal(t, "positive", insights.Sentiment)
	assert.True(t, insights.ScoreKnown)
	assert.InDelta(t, 0.7, insights.Score, 1e-9)
	assert.Contains(t, insights.KeyPhrases, "cybersecurity")
	require.Len(t, insights.Entities, 1)
	assert.Equal(t, "Organization", insights.Entities[0].Category)
}

func TestAnalyzeEmptyText(t *testing.T) {
	client := newTestClient(t, "https://example.com", 5120)

	insights, err := client.Analyze(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, insights.ScoreKnown)
	assert.Empty(t, insights.KeyPhrases)
}

func TestChunkedAnalysisMatchesSingleCall(t *testing.T) {
	server := newStubService()
	defer server.Close()

	text := "Cybersecurity infrastructure modernization for allied operations. " +
		"Contractor TechSecure delivers monitoring capabilities and compliance auditing. " +
		"Deliverables include architecture documents and training materials. " +
		"Strategic priority remains urgent throughout the procurement lifecycle."

	single := newTestClient(t, server.URL, 5120)
	chunked := newTestClient(t, server.URL, 80)

	singleResult, err := single.Analyze(context.Background(), text)
	require.NoError(t, err)

	chunkedResult, err := chunked.Analyze(context.Background(), text)
	require.NoError(t, err)

	// Key phrases merged across chunks equal the single-call phrases, in
	// the same order; entities union the same way
	assert.Equal(t, singleResult.KeyPhrases, chunkedResult.KeyPhrases)
	assert.Equal(t, singleResult.Entities, chunkedResult.Entities)

	// Constant per-chunk scores average back to themselves
	assert.Equal(t, singleResult.Sentiment, chunkedResult.Sentiment)
	assert.InDelta(t, singleResult.Score, chunkedResult.Score, 1e-9)
}

func TestAnalyzeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"code": "429", "message": "quota exceeded"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5120)

	_, err := client.Analyze(context.Background(), "some procurement text")
	require.Error(t, err)

	var analysisErr *analyze.AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, http.StatusTooManyRequests, analysisErr.Status)
	assert.Contains(t, analysisErr.Message, "quota exceeded")
}
