package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigurationMissingError is returned when a required credential is absent.
// The pipeline must refuse to start before any network call is made.
type ConfigurationMissingError struct {
	Missing []string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("configuration missing: %s", strings.Join(e.Missing, ", "))
}

// CheckCredentials verifies that both service credentials are present.
func (c *Config) CheckCredentials() error {
	var missing []string

	if c.FormRecognizer.Key == "" {
		missing = append(missing, "FORM_RECOGNIZER_KEY")
	}
	if c.FormRecognizer.Endpoint == "" {
		missing = append(missing, "FORM_RECOGNIZER_ENDPOINT")
	}
	if c.TextAnalytics.Key == "" {
		missing = append(missing, "TEXT_ANALYTICS_KEY")
	}
	if c.TextAnalytics.Endpoint == "" {
		missing = append(missing, "TEXT_ANALYTICS_ENDPOINT")
	}

	if len(missing) > 0 {
		return &ConfigurationMissingError{Missing: missing}
	}
	return nil
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.FormRecognizer.Endpoint != "" {
		if _, err := url.Parse(c.FormRecognizer.Endpoint); err != nil {
			errors = append(errors, ValidationError{
				Field:   "form_recognizer.endpoint",
				Message: "invalid endpoint URL",
			})
		}
	}

	if c.FormRecognizer.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "form_recognizer.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.TextAnalytics.Endpoint != "" {
		if _, err := url.Parse(c.TextAnalytics.Endpoint); err != nil {
			errors = append(errors, ValidationError{
				Field:   "text_analytics.endpoint",
				Message: "invalid endpoint URL",
			})
		}
	}

	if c.TextAnalytics.MaxChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "text_analytics.max_chunk_size",
			Message: "max_chunk_size must be positive",
		})
	}

	if c.TextAnalytics.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "text_analytics.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Risk.HighBelow < 0 || c.Risk.HighBelow > 1 {
		errors = append(errors, ValidationError{
			Field:   "risk.high_below",
			Message: "high_below must be between 0 and 1",
		})
	}

	if c.Risk.LowAbove < 0 || c.Risk.LowAbove > 1 {
		errors = append(errors, ValidationError{
			Field:   "risk.low_above",
			Message: "low_above must be between 0 and 1",
		})
	}

	if c.Risk.HighBelow >= c.Risk.LowAbove {
		errors = append(errors, ValidationError{
			Field:   "risk.high_below",
			Message: "high_below must be less than low_above",
		})
	}

	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Fetcher.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Fetcher.MaxDocuments < 1 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.max_documents",
			Message: "max_documents must be positive",
		})
	}

	return errors
}
