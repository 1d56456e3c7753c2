package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/haugom/procsight/internal/models"
	"github.com/haugom/procsight/pkg/aggregate"
	"github.com/haugom/procsight/pkg/docintel"
	"github.com/haugom/procsight/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDocAnalyzer struct {
	failFor map[string]error
}

func (s *stubDocAnalyzer) Analyze(ctx context.Context, doc models.RawDocument) (models.ExtractedFields, error) {
	if err, ok := s.failFor[doc.Name]; ok {
		return models.ExtractedFields{}, err
	}
	return models.ExtractedFields{
		Fields: map[string]models.FieldValue{
			"ContractValue": {Raw: "€1,200,000", Number: 1200000, NumberValid: true},
		},
		Text: "Service contract for security assessment.",
	}, nil
}

func (s *stubDocAnalyzer) Ping(ctx context.Context) error { return nil }

type stubTextAnalyzer struct {
	calls int
	err   error
}

func (s *stubTextAnalyzer) Analyze(ctx context.Context, text string) (models.TextInsights, error) {
	s.calls++
	if s.err != nil {
		return models.TextInsights{}, s.err
	}
	return models.TextInsights{
		Sentiment:  "neutral",
		Score:      0.4,
		ScoreKnown: true,
		KeyPhrases: []string{"security assessment"},
	}, nil
}

func (s *stubTextAnalyzer) Ping(ctx context.Context) error { return nil }

func newTestPipeline(t *testing.T, docs *stubDocAnalyzer, text *stubTextAnalyzer, progress func(string)) *pipeline.Pipeline {
	p, err := pipeline.New(pipeline.Config{
		Documents:  docs,
		Text:       text,
		Aggregator: aggregate.New(aggregate.Rules{}),
		OnProgress: progress,
	})
	require.NoError(t, err)
	return p
}

func rawDoc(name string) models.RawDocument {
	return models.RawDocument{ID: name, Name: name, Format: "pdf", Content: []byte("x")}
}

func TestRun(t *testing.T) {
	var processed []string
	p := newTestPipeline(t, &stubDocAnalyzer{}, &stubTextAnalyzer{}, func(name string) {
		processed = append(processed, name)
	})

	results := p.Run(context.Background(), []models.RawDocument{rawDoc("a.pdf"), rawDoc("b.pdf")})

	require.Len(t, results, 2)
	for _, res := range results {
		assert.NoError(t, res.Err)
		assert.True(t, res.Insight.ContractValue.Known)
		assert.Equal(t, models.RiskMedium, res.Insight.RiskRating)
	}
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, processed)
}

func TestRunContinuesPastExtractionFailure(t *testing.T) {
	docs := &stubDocAnalyzer{
		failFor: map[string]error{
			"bad.pdf": &docintel.ExtractionError{Status: 503, Message: "service unavailable"},
		},
	}
	text := &stubTextAnalyzer{}
	p := newTestPipeline(t, docs, text, nil)

	results := p.Run(context.Background(), []models.RawDocument{rawDoc("bad.pdf"), rawDoc("good.pdf")})

	require.Len(t, results, 2)

	// The failed document still yields a fully defaulted insight
	bad := results[0]
	require.Error(t, bad.Err)
	var extraction *docintel.ExtractionError
	assert.ErrorAs(t, bad.Err, &extraction)
	assert.False(t, bad.Insight.ContractValue.Known)
	assert.Equal(t, models.RiskUnknown, bad.Insight.RiskRating)
	assert.Equal(t, "unknown", bad.Insight.Sentiment)

	good := results[1]
	assert.NoError(t, good.Err)
	assert.True(t, good.Insight.ContractValue.Known)

	// The text stage never ran for the failed document
	assert.Equal(t, 1, text.calls)
}

func TestRunContinuesPastUnsupportedFormat(t *testing.T) {
	docs := &stubDocAnalyzer{
		failFor: map[string]error{
			"notes.docx": &docintel.UnsupportedFormatError{Name: "notes.docx", Format: "docx"},
		},
	}
	p := newTestPipeline(t, docs, &stubTextAnalyzer{}, nil)

	results := p.Run(context.Background(), []models.RawDocument{rawDoc("notes.docx"), rawDoc("ok.pdf")})

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
}

func TestRunRecordsAnalysisFailure(t *testing.T) {
	text := &stubTextAnalyzer{err: context.DeadlineExceeded}
	p := newTestPipeline(t, &stubDocAnalyzer{}, text, nil)

	results := p.Run(context.Background(), []models.RawDocument{rawDoc("a.pdf")})

	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)

	// Extraction succeeded, so field-derived values survive
	assert.True(t, results[0].Insight.ContractValue.Known)
	assert.Equal(t, "unknown", results[0].Insight.Sentiment)
}

func TestLoadDocuments(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "one.pdf"), []byte("pdf bytes"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "two.PNG"), []byte("png bytes"), 0644))

	docs, err := pipeline.LoadDocuments(tmpDir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	byName := make(map[string]models.RawDocument)
	for _, d := range docs {
		assert.NotEmpty(t, d.ID)
		byName[d.Name] = d
	}

	assert.Equal(t, "pdf", byName["one.pdf"].Format)
	assert.Equal(t, []byte("pdf bytes"), byName["one.pdf"].Content)
	assert.Equal(t, "png", byName["two.PNG"].Format)
}

func TestLoadDocumentsSingleFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "contract.pdf")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0644))

	docs, err := pipeline.LoadDocuments(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "contract.pdf", docs[0].Name)
}

func TestLoadDocumentsMissingPath(t *testing.T) {
	_, err := pipeline.LoadDocuments("/nonexistent/path")
	assert.Error(t, err)
}
