package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/haugom/procsight/internal/models"
)

type Options struct {
	Currency   string
	TopPhrases int
	ChartWidth int
}

// Report renders a batch of document results as a terminal table, a value
// chart, and a summary, and exports the rows as CSV or JSON.
type Report struct {
	results []models.DocumentResult
	opts    Options
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	riskStyles  = map[models.RiskRating]lipgloss.Style{
		models.RiskLow:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		models.RiskMedium:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		models.RiskHigh:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		models.RiskUnknown: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

func New(results []models.DocumentResult, opts Options) *Report {
	if opts.Currency == "" {
		opts.Currency = "EUR"
	}
	if opts.TopPhrases == 0 {
		opts.TopPhrases = 10
	}
	if opts.ChartWidth == 0 {
		opts.ChartWidth = 40
	}
	return &Report{results: results, opts: opts}
}

// Table renders one row per document.
func (r *Report) Table() string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("Document", "Value", "Timeline", "Risk", "Sentiment", "Compliance")

	for _, res := range r.results {
		in := res.Insight
		t.Row(
			in.DocumentName,
			r.formatValue(in.ContractValue),
			formatTimeline(in.Timeline),
			riskStyles[in.RiskRating].Render(string(in.RiskRating)),
			in.Sentiment,
			strings.Join(in.ComplianceFlags, ", "),
		)
	}

	return t.Render()
}

// Chart renders contract values as horizontal bars scaled to the largest.
func (r *Report) Chart() string {
	var max float64
	for _, res := range r.results {
		if res.Insight.ContractValue.Known && res.Insight.ContractValue.Amount > max {
			max = res.Insight.ContractValue.Amount
		}
	}
	if max == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Contract Values") + "\n")
	for _, res := range r.results {
		in := res.Insight
		if !in.ContractValue.Known {
			continue
		}
		width := int(in.ContractValue.Amount / max * float64(r.opts.ChartWidth))
		if width < 1 {
			width = 1
		}
		b.WriteString(fmt.Sprintf("%-30s %s %s\n",
			truncate(in.DocumentName, 30),
			strings.Repeat("█", width),
			r.formatValue(in.ContractValue)))
	}
	return b.String()
}

// Summary reports batch totals, risk and sentiment distributions, and the
// most frequent key phrases.
func (r *Report) Summary() string {
	var total float64
	valued := 0
	failed := 0
	riskCounts := make(map[models.RiskRating]int)
	sentimentCounts := make(map[string]int)
	phraseCounts := make(map[string]int)
	var phraseOrder []string

	for _, res := range r.results {
		in := res.Insight
		if res.Err != nil {
			failed++
		}
		if in.ContractValue.Known {
			total += in.ContractValue.Amount
			valued++
		}
		riskCounts[in.RiskRating]++
		sentimentCounts[in.Sentiment]++
		for _, p := range in.KeyPhrases {
			if phraseCounts[p] == 0 {
				phraseOrder = append(phraseOrder, p)
			}
			phraseCounts[p]++
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Procurement Intelligence Summary") + "\n")
	b.WriteString(fmt.Sprintf("Documents processed: %d (%d failed)\n", len(r.results), failed))
	b.WriteString(fmt.Sprintf("Total contract value: %s\n", r.formatAmount(total)))
	if valued > 0 {
		b.WriteString(fmt.Sprintf("Average contract value: %s\n", r.formatAmount(total/float64(valued))))
	}

	b.WriteString("Risk ratings:\n")
	for _, rating := range []models.RiskRating{models.RiskHigh, models.RiskMedium, models.RiskLow, models.RiskUnknown} {
		if riskCounts[rating] > 0 {
			b.WriteString(fmt.Sprintf("  %s: %d\n", rating, riskCounts[rating]))
		}
	}

	b.WriteString("Sentiment:\n")
	var sentiments []string
	for s := range sentimentCounts {
		sentiments = append(sentiments, s)
	}
	sort.Strings(sentiments)
	for _, s := range sentiments {
		b.WriteString(fmt.Sprintf("  %s: %d\n", s, sentimentCounts[s]))
	}

	if len(phraseOrder) > 0 {
		sort.SliceStable(phraseOrder, func(i, j int) bool {
			return phraseCounts[phraseOrder[i]] > phraseCounts[phraseOrder[j]]
		})
		limit := r.opts.TopPhrases
		if limit > len(phraseOrder) {
			limit = len(phraseOrder)
		}
		b.WriteString(fmt.Sprintf("Top key phrases: %s\n", strings.Join(phraseOrder[:limit], ", ")))
	}

	return b.String()
}

// Failures lists per-document errors collected during the batch.
func (r *Report) Failures() []string {
	var out []string
	for _, res := range r.results {
		if res.Err != nil {
			out = append(out, res.Err.Error())
		}
	}
	return out
}

func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{
		"document", "contract_value", "timeline_start", "timeline_end",
		"duration_months", "risk_rating", "sentiment", "sentiment_score",
		"stakeholders", "compliance_flags", "key_phrases", "error",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, res := range r.results {
		in := res.Insight
		row := []string{
			in.DocumentName,
			csvValue(in.ContractValue),
			csvDate(in.Timeline.Start, in.Timeline.StartKnown),
			csvDate(in.Timeline.End, in.Timeline.EndKnown),
			csvMonths(in.Timeline),
			string(in.RiskRating),
			in.Sentiment,
			csvScore(in.SentimentScore, in.SentimentKnown),
			strings.Join(in.Stakeholders, "; "),
			strings.Join(in.ComplianceFlags, "; "),
			strings.Join(in.KeyPhrases, "; "),
			csvError(res.Err),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

type jsonRow struct {
	Document        string   `json:"document"`
	ContractValue   *float64 `json:"contract_value"`
	TimelineStart   string   `json:"timeline_start,omitempty"`
	TimelineEnd     string   `json:"timeline_end,omitempty"`
	DurationMonths  *int     `json:"duration_months,omitempty"`
	RiskRating      string   `json:"risk_rating"`
	Sentiment       string   `json:"sentiment"`
	SentimentScore  *float64 `json:"sentiment_score,omitempty"`
	Stakeholders    []string `json:"stakeholders"`
	ComplianceFlags []string `json:"compliance_flags"`
	KeyPhrases      []string `json:"key_phrases"`
	Error           string   `json:"error,omitempty"`
}

func (r *Report) WriteJSON(w io.Writer) error {
	rows := make([]jsonRow, 0, len(r.results))
	for _, res := range r.results {
		in := res.Insight
		row := jsonRow{
			Document:        in.DocumentName,
			RiskRating:      string(in.RiskRating),
			Sentiment:       in.Sentiment,
			Stakeholders:    in.Stakeholders,
			ComplianceFlags: in.ComplianceFlags,
			KeyPhrases:      in.KeyPhrases,
			Error:           csvError(res.Err),
		}
		if in.ContractValue.Known {
			v := in.ContractValue.Amount
			row.ContractValue = &v
		}
		if in.Timeline.StartKnown {
			row.TimelineStart = in.Timeline.Start.Format("2006-01-02")
		}
		if in.Timeline.EndKnown {
			row.TimelineEnd = in.Timeline.End.Format("2006-01-02")
		}
		if in.Timeline.MonthsKnown {
			m := in.Timeline.Months
			row.DurationMonths = &m
		}
		if in.SentimentKnown {
			s := in.SentimentScore
			row.SentimentScore = &s
		}
		rows = append(rows, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func (r *Report) formatValue(m models.Money) string {
	if !m.Known {
		return "unknown"
	}
	return r.formatAmount(m.Amount)
}

func (r *Report) formatAmount(v float64) string {
	return fmt.Sprintf("%s %s", r.opts.Currency, groupDigits(v))
}

func groupDigits(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}

func formatTimeline(t models.Timeline) string {
	switch {
	case t.StartKnown && t.EndKnown:
		return fmt.Sprintf("%s → %s", t.Start.Format("2006-01-02"), t.End.Format("2006-01-02"))
	case t.EndKnown:
		return fmt.Sprintf("until %s", t.End.Format("2006-01-02"))
	case t.MonthsKnown:
		return fmt.Sprintf("%d months", t.Months)
	default:
		return "unknown"
	}
}

// truncate shortens by runes, not bytes, so multi-byte names stay valid.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func csvValue(m models.Money) string {
	if !m.Known {
		return ""
	}
	return fmt.Sprintf("%.2f", m.Amount)
}

func csvDate(t time.Time, known bool) string {
	if !known {
		return ""
	}
	return t.Format("2006-01-02")
}

func csvMonths(t models.Timeline) string {
	if !t.MonthsKnown {
		return ""
	}
	return fmt.Sprintf("%d", t.Months)
}

func csvScore(score float64, known bool) string {
	if !known {
		return ""
	}
	return fmt.Sprintf("%.3f", score)
}

func csvError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
