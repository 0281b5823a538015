package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	ColumnTitle    = "Title"
	ColumnLink     = "Link"
	ColumnSummary  = "summary"
	ColumnCategory = "category"
	ColumnKeywords = "keywords"
)

var ErrMissingColumn = errors.New("csv is missing a required column")

// Row is one article listed in the ingestion CSV.
type Row struct {
	Line     int
	Title    string
	Link     string
	Summary  string
	Category string
	Keywords []string
}

// ReadRows parses the ingestion CSV, locating columns by header name.
// Title, Link and category are required columns; summary and keywords may be absent.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, required := range []string{ColumnTitle, ColumnLink, ColumnCategory} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, Row{
			Line:     line,
			Title:    field(record, ColumnTitle),
			Link:     strings.TrimSpace(field(record, ColumnLink)),
			Summary:  field(record, ColumnSummary),
			Category: strings.TrimSpace(field(record, ColumnCategory)),
			Keywords: SplitKeywords(field(record, ColumnKeywords)),
		})
	}
	return rows, nil
}

// SplitKeywords splits a comma-separated list, trimming entries and dropping
// empties and repeats while keeping first-appearance order.
func SplitKeywords(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, k := range strings.Split(s, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
