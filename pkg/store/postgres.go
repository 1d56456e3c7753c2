package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haugom/procsight/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StoreConfig struct {
	ConnString string
	TableName  string
}

// InsightStore archives aggregated insights in Postgres so batch runs can
// be compared over time. The archive is optional; the pipeline never
// depends on it.
type InsightStore struct {
	config StoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config StoreConfig) (*InsightStore, error) {
	if config.TableName == "" {
		config.TableName = "procurement_insights"
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	s := &InsightStore{
		config: config,
		pool:   pool,
	}

	if err := s.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *InsightStore) initialize() error {
	ctx := context.Background()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_name TEXT NOT NULL,
			contract_value DOUBLE PRECISION,
			value_known BOOLEAN NOT NULL,
			timeline_start TIMESTAMPTZ,
			timeline_end TIMESTAMPTZ,
			duration_months INTEGER,
			risk_rating TEXT NOT NULL,
			sentiment TEXT,
			sentiment_score DOUBLE PRECISION,
			stakeholders JSONB,
			compliance_flags JSONB,
			key_phrases JSONB,
			processed_at TIMESTAMPTZ NOT NULL
		)`, s.config.TableName)

	_, err := s.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	return nil
}

func (s *InsightStore) Save(ctx context.Context, insights []models.ProcurementInsight) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_name, contract_value, value_known,
			timeline_start, timeline_end, duration_months, risk_rating,
			sentiment, sentiment_score, stakeholders, compliance_flags,
			key_phrases, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			contract_value = EXCLUDED.contract_value,
			value_known = EXCLUDED.value_known,
			risk_rating = EXCLUDED.risk_rating,
			sentiment = EXCLUDED.sentiment,
			sentiment_score = EXCLUDED.sentiment_score,
			stakeholders = EXCLUDED.stakeholders,
			compliance_flags = EXCLUDED.compliance_flags,
			key_phrases = EXCLUDED.key_phrases,
			processed_at = EXCLUDED.processed_at`,
		s.config.TableName)

	for _, in := range insights {
		stakeholders, err := json.Marshal(in.Stakeholders)
		if err != nil {
			return fmt.Errorf("failed to encode stakeholders: %v", err)
		}
		flags, err := json.Marshal(in.ComplianceFlags)
		if err != nil {
			return fmt.Errorf("failed to encode compliance flags: %v", err)
		}
		phrases, err := json.Marshal(in.KeyPhrases)
		if err != nil {
			return fmt.Errorf("failed to encode key phrases: %v", err)
		}

		var value *float64
		if in.ContractValue.Known {
			value = &in.ContractValue.Amount
		}
		var start, end interface{}
		if in.Timeline.StartKnown {
			start = in.Timeline.Start
		}
		if in.Timeline.EndKnown {
			end = in.Timeline.End
		}
		var months *int
		if in.Timeline.MonthsKnown {
			months = &in.Timeline.Months
		}
		var score *float64
		if in.SentimentKnown {
			score = &in.SentimentScore
		}

		_, err = tx.Exec(ctx, stmt,
			in.DocumentID,
			in.DocumentName,
			value,
			in.ContractValue.Known,
			start,
			end,
			months,
			string(in.RiskRating),
			in.Sentiment,
			score,
			stakeholders,
			flags,
			phrases,
			in.ProcessedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert insight: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (s *InsightStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
