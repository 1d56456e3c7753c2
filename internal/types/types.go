package types

import (
	"context"

	"github.com/haugom/procsight/internal/models"
)

// Core interfaces
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, doc models.RawDocument) (models.ExtractedFields, error)
	Ping(ctx context.Context) error
}

type TextAnalyzer interface {
	Analyze(ctx context.Context, text string) (models.TextInsights, error)
	Ping(ctx context.Context) error
}

type InsightStore interface {
	Save(ctx context.Context, insights []models.ProcurementInsight) error
	Close()
}

type Aggregator interface {
	Aggregate(doc models.RawDocument, fields models.ExtractedFields, insights models.TextInsights) models.ProcurementInsight
}

// ProgressFunc is called once per document as the batch advances.
type ProgressFunc func(name string)
