package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	FormRecognizer struct {
		Endpoint           string  `yaml:"endpoint"`
		Key                string  `yaml:"key"`
		Model              string  `yaml:"model"`
		APIVersion         string  `yaml:"api_version"`
		PollSeconds        int     `yaml:"poll_seconds"`
		PollTimeoutSeconds int     `yaml:"poll_timeout_seconds"`
		RateLimit          float64 `yaml:"rate_limit"`
	} `yaml:"form_recognizer"`

	TextAnalytics struct {
		Endpoint     string  `yaml:"endpoint"`
		Key          string  `yaml:"key"`
		APIVersion   string  `yaml:"api_version"`
		MaxChunkSize int     `yaml:"max_chunk_size"`
		RateLimit    float64 `yaml:"rate_limit"`
	} `yaml:"text_analytics"`

	Risk struct {
		HighBelow         float64  `yaml:"high_below"`
		LowAbove          float64  `yaml:"low_above"`
		CompliancePhrases []string `yaml:"compliance_phrases"`
		RiskPhrases       []string `yaml:"risk_phrases"`
	} `yaml:"risk"`

	Fetcher struct {
		RateLimit    float64 `yaml:"rate_limit"`
		MaxDocuments int     `yaml:"max_documents"`
	} `yaml:"fetcher"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
	} `yaml:"database"`

	Report struct {
		Currency   string `yaml:"currency"`
		TopPhrases int    `yaml:"top_phrases"`
	} `yaml:"report"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/procsight/config.yaml"),
			"/etc/procsight/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.FormRecognizer.Model == "" {
		config.FormRecognizer.Model = "prebuilt-document"
	}
	if config.FormRecognizer.APIVersion == "" {
		config.FormRecognizer.APIVersion = "2023-07-31"
	}
	if config.FormRecognizer.PollSeconds == 0 {
		config.FormRecognizer.PollSeconds = 2
	}
	if config.FormRecognizer.PollTimeoutSeconds == 0 {
		config.FormRecognizer.PollTimeoutSeconds = 120
	}
	if config.FormRecognizer.RateLimit == 0 {
		config.FormRecognizer.RateLimit = 1.0
	}

	if config.TextAnalytics.APIVersion == "" {
		config.TextAnalytics.APIVersion = "v3.1"
	}
	if config.TextAnalytics.MaxChunkSize == 0 {
		config.TextAnalytics.MaxChunkSize = 5120
	}
	if config.TextAnalytics.RateLimit == 0 {
		config.TextAnalytics.RateLimit = 2.0
	}

	if config.Risk.HighBelow == 0 {
		config.Risk.HighBelow = 0.25
	}
	if config.Risk.LowAbove == 0 {
		config.Risk.LowAbove = 0.6
	}
	if len(config.Risk.CompliancePhrases) == 0 {
		config.Risk.CompliancePhrases = []string{
			"GDPR", "ISO 27001", "NIST", "STANAG", "security clearance", "audit",
		}
	}
	if len(config.Risk.RiskPhrases) == 0 {
		config.Risk.RiskPhrases = []string{
			"non-compliant", "penalty", "breach", "litigation", "termination",
		}
	}

	if config.Fetcher.RateLimit == 0 {
		config.Fetcher.RateLimit = 2.0
	}
	if config.Fetcher.MaxDocuments == 0 {
		config.Fetcher.MaxDocuments = 50
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "procurement_insights"
	}

	if config.Report.Currency == "" {
		config.Report.Currency = "EUR"
	}
	if config.Report.TopPhrases == 0 {
		config.Report.TopPhrases = 10
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("FORM_RECOGNIZER_KEY"); key != "" {
		config.FormRecognizer.Key = key
	}
	if endpoint := os.Getenv("FORM_RECOGNIZER_ENDPOINT"); endpoint != "" {
		config.FormRecognizer.Endpoint = endpoint
	}
	if key := os.Getenv("TEXT_ANALYTICS_KEY"); key != "" {
		config.TextAnalytics.Key = key
	}
	if endpoint := os.Getenv("TEXT_ANALYTICS_ENDPOINT"); endpoint != "" {
		config.TextAnalytics.Endpoint = endpoint
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
