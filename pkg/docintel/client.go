package docintel

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

// ClientConfig represents the configuration for the document analysis client.
type ClientConfig struct {
	Endpoint     string
	Key          string
	Model        string
	APIVersion   string
	PollInterval time.Duration
	PollTimeout  time.Duration
	Timeout      time.Duration
	RateLimit    float64 // requests per second
}

// Client talks to a Form Recognizer style document analysis service:
// submit the document bytes, then poll the returned operation URL until
// the analysis finishes.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

var supportedFormats = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"tiff": "image/tiff",
	"bmp":  "image/bmp",
}

// UnsupportedFormatError reports a document the upstream service cannot read.
type UnsupportedFormatError struct {
	Name   string
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported document format %q for %s", e.Format, e.Name)
}

// ExtractionError reports a failed service call, carrying the underlying
// HTTP status for diagnostics.
type ExtractionError struct {
	Status  int
	Message string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (status %d): %s", e.Status, e.Message)
}

func NewWithConfig(config ClientConfig) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("document service endpoint is required")
	}
	if config.Model == "" {
		config.Model = "prebuilt-document"
	}
	if config.APIVersion == "" {
		config.APIVersion = "2023-07-31"
	}
	if config.PollInterval == 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.PollTimeout == 0 {
		config.PollTimeout = 2 * time.Minute
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// Analyze submits a document and returns the normalized field set.
func (c *Client) Analyze(ctx context.Context, doc models.RawDocument) (models.ExtractedFields, error) {
	var empty models.ExtractedFields

	mime, ok := supportedFormats[strings.ToLower(doc.Format)]
	if !ok {
		return empty, &UnsupportedFormatError{Name: doc.Name, Format: doc.Format}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return empty, err
	}

	operationURL, err := c.submit(ctx, doc.Content, mime)
	if err != nil {
		return empty, err
	}

	result, err := c.poll(ctx, operationURL)
	if err != nil {
		return empty, err
	}

	return normalize(result), nil
}

// Ping verifies the endpoint and credential without analyzing anything.
func (c *Client) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/formrecognizer/info?api-version=%s",
		strings.TrimRight(c.config.Endpoint, "/"), c.config.APIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.config.Key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("document service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return &ExtractionError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return nil
}

func (c *Client) submit(ctx context.Context, content []byte, mime string) (string, error) {
	url := fmt.Sprintf("%s/formrecognizer/documentModels/%s:analyze?api-version=%s",
		strings.TrimRight(c.config.Endpoint, "/"), c.config.Model, c.config.APIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.config.Key)
	req.Header.Set("Content-Type", mime)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", &ExtractionError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", &ExtractionError{Status: resp.StatusCode, Message: "missing Operation-Location header"}
	}
	return operationURL, nil
}

func (c *Client) poll(ctx context.Context, operationURL string) (*analyzeResult, error) {
	deadline := time.Now().Add(c.config.PollTimeout)

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.config.Key)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to poll operation: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return nil, &ExtractionError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}

		var status analyzeResponse
		if err := json.Unmarshal(body, &status); err != nil {
			return nil, &ExtractionError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
		}

		switch status.Status {
		case "succeeded":
			if status.AnalyzeResult == nil {
				return nil, &ExtractionError{Status: resp.StatusCode, Message: "succeeded without analyzeResult"}
			}
			return status.AnalyzeResult, nil
		case "failed":
			msg := "analysis failed"
			if status.Error != nil {
				msg = status.Error.Message
			}
			return nil, &ExtractionError{Status: resp.StatusCode, Message: msg}
		}

		if time.Now().After(deadline) {
			return nil, &ExtractionError{
				Status:  resp.StatusCode,
				Message: fmt.Sprintf("analysis did not finish within %s", c.config.PollTimeout),
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.config.PollInterval):
		}
	}
}
