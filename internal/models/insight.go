package models

import "time"

// Entity is a named entity recognized by the text analytics service.
type Entity struct {
	Text     string
	Category string
}

// TextInsights is the normalized output of the text insight stage.
// Score is the averaged positive-sentiment confidence in [0, 1].
type TextInsights struct {
	Sentiment  string
	Positive   float64
	Neutral    float64
	Negative   float64
	Score      float64
	ScoreKnown bool
	KeyPhrases []string
	Entities   []Entity
}

type RiskRating string

const (
	RiskLow     RiskRating = "low"
	RiskMedium  RiskRating = "medium"
	RiskHigh    RiskRating = "high"
	RiskUnknown RiskRating = "unknown"
)

// Money is an optional monetary amount.
type Money struct {
	Amount float64
	Known  bool
}

// Timeline is an optional date range. Months is the contract duration when
// the document states one.
type Timeline struct {
	Start       time.Time
	StartKnown  bool
	End         time.Time
	EndKnown    bool
	Months      int
	MonthsKnown bool
}

// ProcurementInsight is the aggregated per-document record. Every field is
// populated with either a real value or an explicit unknown/empty default.
type ProcurementInsight struct {
	DocumentID      string
	DocumentName    string
	ContractValue   Money
	Timeline        Timeline
	RiskRating      RiskRating
	Stakeholders    []string
	ComplianceFlags []string
	Sentiment       string
	SentimentScore  float64
	SentimentKnown  bool
	KeyPhrases      []string
	Degraded        []string // names of fields that fell back to unknown
	ProcessedAt     time.Time
}

// DocumentResult carries a document through the batch report whether or not
// its extraction or analysis succeeded.
type DocumentResult struct {
	DocumentID   string
	DocumentName string
	Insight      ProcurementInsight
	Err          error
}
