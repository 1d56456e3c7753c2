package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/haugom/procsight/internal/models"
	"golang.org/x/time/rate"
)

// ClientConfig represents the configuration for the text analytics client.
type ClientConfig struct {
	Endpoint     string
	Key          string
	APIVersion   string
	Language     string
	MaxChunkSize int
	Timeout      time.Duration
	RateLimit    float64 // requests per second
}

// Client talks to a Text Analytics style service. Texts longer than the
// service limit are chunked on sentence boundaries and the per-chunk
// results merged deterministically.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// AnalysisError reports a failed text analytics call.
type AnalysisError struct {
	Status  int
	Message string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed (status %d): %s", e.Status, e.Message)
}

func NewWithConfig(config ClientConfig) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("text analytics endpoint is required")
	}
	if config.APIVersion == "" {
		config.APIVersion = "v3.1"
	}
	if config.Language == "" {
		config.Language = "en"
	}
	if config.MaxChunkSize == 0 {
		config.MaxChunkSize = 5120
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// Analyze runs sentiment, key phrase, and entity analysis over the text and
// returns the merged insights.
func (c *Client) Analyze(ctx context.Context, text string) (models.TextInsights, error) {
	var empty models.TextInsights

	chunks := SplitChunks(text, c.config.MaxChunkSize)
	if len(chunks) == 0 {
		return empty, nil
	}

	results := make([]models.TextInsights, 0, len(chunks))
	weights := make([]int, 0, len(chunks))

	for _, chunk := range chunks {
		insight, err := c.analyzeChunk(ctx, chunk)
		if err != nil {
			return empty, err
		}
		results = append(results, insight)
		weights = append(weights, len(chunk))
	}

	return Merge(results, weights), nil
}

// Ping verifies the endpoint and credential with a minimal request.
func (c *Client) Ping(ctx context.Context) error {
	var resp sentimentResponse
	if err := c.post(ctx, "sentiment", "ping", &resp); err != nil {
		return err
	}
	return nil
}

func (c *Client) analyzeChunk(ctx context.Context, text string) (models.TextInsights, error) {
	var empty models.TextInsights

	var sentiment sentimentResponse
	if err := c.post(ctx, "sentiment", text, &sentiment); err != nil {
		return empty, err
	}

	var phrases keyPhrasesResponse
	if err := c.post(ctx, "keyPhrases", text, &phrases); err != nil {
		return empty, err
	}

	var entities entitiesResponse
	if err := c.post(ctx, "entities/recognition/general", text, &entities); err != nil {
		return empty, err
	}

	insight := models.TextInsights{}

	if len(sentiment.Documents) > 0 {
		d := sentiment.Documents[0]
		insight.Sentiment = d.Sentiment
		insight.Positive = d.ConfidenceScores.Positive
		insight.Neutral = d.ConfidenceScores.Neutral
		insight.Negative = d.ConfidenceScores.Negative
		insight.Score = d.ConfidenceScores.Positive
		insight.ScoreKnown = true
	}

	if len(phrases.Documents) > 0 {
		seen := make(map[string]bool)
		for _, p := range phrases.Documents[0].KeyPhrases {
			if !seen[p] {
				seen[p] = true
				insight.KeyPhrases = append(insight.KeyPhrases, p)
			}
		}
	}

	if len(entities.Documents) > 0 {
		for _, e := range entities.Documents[0].Entities {
			insight.Entities = append(insight.Entities, models.Entity{
				Text:     e.Text,
				Category: e.Category,
			})
		}
	}

	return insight, nil
}

func (c *Client) post(ctx context.Context, operation, text string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqBody := analyzeRequest{
		Documents: []requestDocument{
			{ID: "1", Language: c.config.Language, Text: text},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text/analytics/%s/%s",
		strings.TrimRight(c.config.Endpoint, "/"), c.config.APIVersion, operation)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.config.Key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &AnalysisError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &AnalysisError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	return nil
}
