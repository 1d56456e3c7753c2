package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haugom/procsight/internal/models"
	"github.com/haugom/procsight/internal/types"
)

// Config wires the pipeline stages together.
type Config struct {
	Documents  types.DocumentAnalyzer
	Text       types.TextAnalyzer
	Aggregator types.Aggregator
	OnProgress types.ProgressFunc
}

// Pipeline runs documents through extraction, text analysis, and
// aggregation, one document start-to-finish before the next. Per-document
// failures are recorded on the result and the batch continues.
type Pipeline struct {
	config Config
}

func New(config Config) (*Pipeline, error) {
	if config.Documents == nil {
		return nil, fmt.Errorf("document analyzer is required")
	}
	if config.Text == nil {
		return nil, fmt.Errorf("text analyzer is required")
	}
	if config.Aggregator == nil {
		return nil, fmt.Errorf("aggregator is required")
	}
	return &Pipeline{config: config}, nil
}

// Run processes the batch sequentially. Every document produces a result:
// a failed extraction or analysis still yields an insight full of unknown
// defaults alongside the recorded error.
func (p *Pipeline) Run(ctx context.Context, docs []models.RawDocument) []models.DocumentResult {
	results := make([]models.DocumentResult, 0, len(docs))

	for _, doc := range docs {
		result := p.processDocument(ctx, doc)
		results = append(results, result)

		if p.config.OnProgress != nil {
			p.config.OnProgress(doc.Name)
		}
	}

	return results
}

func (p *Pipeline) processDocument(ctx context.Context, doc models.RawDocument) models.DocumentResult {
	result := models.DocumentResult{
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
	}

	var fields models.ExtractedFields
	var insights models.TextInsights

	extracted, err := p.config.Documents.Analyze(ctx, doc)
	if err != nil {
		result.Err = fmt.Errorf("document %s: %w", doc.Name, err)
	} else {
		fields = extracted

		if strings.TrimSpace(fields.Text) != "" {
			analyzed, err := p.config.Text.Analyze(ctx, fields.Text)
			if err != nil {
				result.Err = fmt.Errorf("document %s: %w", doc.Name, err)
			} else {
				insights = analyzed
			}
		}
	}

	// Aggregation is total: it runs on whatever the stages produced,
	// degrading missing inputs to unknown defaults.
	result.Insight = p.config.Aggregator.Aggregate(doc, fields, insights)

	return result
}

// Preflight verifies both service credentials before any document is sent.
func (p *Pipeline) Preflight(ctx context.Context) error {
	if err := p.config.Documents.Ping(ctx); err != nil {
		return fmt.Errorf("document service: %w", err)
	}
	if err := p.config.Text.Ping(ctx); err != nil {
		return fmt.Errorf("text analytics service: %w", err)
	}
	return nil
}

// LoadDocuments reads a file, or every file in a directory, into raw
// documents. Unknown extensions are loaded anyway; the extraction stage
// decides what the upstream service accepts.
func LoadDocuments(path string) ([]models.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var paths []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
	} else {
		paths = []string{path}
	}

	var docs []models.RawDocument
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}

		name := filepath.Base(p)
		docs = append(docs, models.RawDocument{
			ID:      uuid.NewString(),
			Name:    name,
			Path:    p,
			Format:  strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
			Content: content,
			Loaded:  time.Now(),
		})
	}

	return docs, nil
}
