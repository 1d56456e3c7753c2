package docintel

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/haugom/procsight/internal/models"
)

// Wire types for the analyze operation response. Only the parts the
// pipeline reads are modeled; the rest of the payload is ignored.
type analyzeResponse struct {
	Status        string         `json:"status"`
	Error         *serviceError  `json:"error"`
	AnalyzeResult *analyzeResult `json:"analyzeResult"`
}

type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type analyzeResult struct {
	Content       string         `json:"content"`
	Documents     []wireDocument `json:"documents"`
	KeyValuePairs []wireKeyValue `json:"keyValuePairs"`
	Tables        []wireTable    `json:"tables"`
}

type wireDocument struct {
	DocType string               `json:"docType"`
	Fields  map[string]wireField `json:"fields"`
}

type wireField struct {
	Content         string       `json:"content"`
	Confidence      float64      `json:"confidence"`
	BoundingRegions []wireRegion `json:"boundingRegions"`
}

type wireRegion struct {
	PageNumber int       `json:"pageNumber"`
	Polygon    []float64 `json:"polygon"`
}

type wireKeyValue struct {
	Key        wireSpan  `json:"key"`
	Value      *wireSpan `json:"value"`
	Confidence float64   `json:"confidence"`
}

type wireSpan struct {
	Content string `json:"content"`
}

type wireTable struct {
	RowCount    int        `json:"rowCount"`
	ColumnCount int        `json:"columnCount"`
	Cells       []wireCell `json:"cells"`
}

type wireCell struct {
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
}

// normalize flattens the service response into ExtractedFields. Every field
// keeps its raw name; key-value pairs fill in names the model did not claim.
func normalize(result *analyzeResult) models.ExtractedFields {
	fields := make(map[string]models.FieldValue)

	for _, doc := range result.Documents {
		for name, f := range doc.Fields {
			fields[name] = toFieldValue(f.Content, f.Confidence, f.BoundingRegions)
		}
	}

	for _, kv := range result.KeyValuePairs {
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(kv.Key.Content), ":"))
		if name == "" {
			continue
		}
		if _, exists := fields[name]; exists {
			continue
		}
		value := ""
		if kv.Value != nil {
			value = kv.Value.Content
		}
		fields[name] = toFieldValue(value, kv.Confidence, nil)
	}

	return models.ExtractedFields{
		Fields: fields,
		Text:   result.Content,
		Tables: toTables(result.Tables),
	}
}

func toFieldValue(content string, confidence float64, regions []wireRegion) models.FieldValue {
	v := models.FieldValue{
		Raw:        strings.TrimSpace(content),
		Confidence: confidence,
	}
	if len(regions) > 0 {
		v.Page = regions[0].PageNumber
		v.Region = regions[0].Polygon
	}
	if n, ok := ParseNumber(v.Raw); ok {
		v.Number = n
		v.NumberValid = true
	}
	return v
}

// maxTableCells bounds the grid allocated for a single table; the service
// response is not trusted to carry sane dimensions.
const maxTableCells = 4096

func toTables(tables []wireTable) [][][]string {
	var out [][][]string
	for _, t := range tables {
		if t.RowCount < 1 || t.ColumnCount < 1 || t.RowCount*t.ColumnCount > maxTableCells {
			continue
		}
		grid := make([][]string, t.RowCount)
		for i := range grid {
			grid[i] = make([]string, t.ColumnCount)
		}
		for _, cell := range t.Cells {
			if cell.RowIndex < 0 || cell.RowIndex >= t.RowCount ||
				cell.ColumnIndex < 0 || cell.ColumnIndex >= t.ColumnCount {
				continue
			}
			grid[cell.RowIndex][cell.ColumnIndex] = cell.Content
		}
		out = append(out, grid)
	}
	return out
}

// ParseNumber extracts the leading numeric run from a raw field value
// like "€2,450,000" or "24 months". It returns false when the value
// holds no number.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '.', r == '-':
			b.WriteRune(r)
		case r == ',', r == ' ', r == '€', r == '$', r == '£':
			// separators and currency symbols are dropped
		default:
			// any other character ends the numeric run
			if b.Len() > 0 {
				goto done
			}
		}
	}
done:
	cleaned := b.String()
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
