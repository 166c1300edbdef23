// Package detector locates the header row inside noisy exports and cleans the
// detected column names. It scores candidate rows on raw cell values rather
// than a pre-parsed table, which sidesteps parser errors caused by an unknown
// header position.
package detector

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/table"
)

// Scoring weights for the four header signals. They sum to 1.0 so a perfect
// header scores 1.0 exactly.
const (
	weightDensity   = 0.30
	weightTextiness = 0.25
	weightUnique    = 0.20
	weightNumeric   = 0.25
)

// DefaultMaxRowsToScan bounds the search for the header row.
const DefaultMaxRowsToScan = 50

// followRows is how many rows below a candidate are probed for numeric content.
const followRows = 5

// Detector scores candidate rows for header-ness.
type Detector struct {
	maxRowsToScan int
}

// New creates a detector. maxRowsToScan <= 0 selects the default bound.
func New(maxRowsToScan int) *Detector {
	if maxRowsToScan <= 0 {
		maxRowsToScan = DefaultMaxRowsToScan
	}
	return &Detector{maxRowsToScan: maxRowsToScan}
}

// ProbeRows is how many raw rows a caller should read so that every candidate
// row within the scan bound still has its following rows available for the
// numeric-content signal.
func (d *Detector) ProbeRows() int {
	return d.maxRowsToScan + followRows
}

// DetectHeaderRow returns the index of the most header-like row.
// Empty input returns 0. Ties go to the earliest row.
func (d *Detector) DetectHeaderRow(rows [][]string) int {
	if len(rows) == 0 {
		return 0
	}

	limit := len(rows)
	if limit > d.maxRowsToScan {
		limit = d.maxRowsToScan
	}

	bestScore := -1.0
	bestRow := 0
	for idx := 0; idx < limit; idx++ {
		score := d.scoreRow(rows, idx)
		if score > bestScore {
			bestScore = score
			bestRow = idx
		}
	}
	return bestRow
}

// scoreRow combines four independent signals, each normalized to [0,1]:
// cell density, textiness, in-row uniqueness, and numeric content in the
// following rows.
func (d *Detector) scoreRow(rows [][]string, idx int) float64 {
	row := rows[idx]
	if len(row) == 0 {
		return 0
	}

	score := 0.0

	nonEmpty := 0
	texty := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) == "" {
			continue
		}
		nonEmpty++
		if !isNumericCell(cell) {
			texty++
		}
	}
	score += float64(nonEmpty) / float64(len(row)) * weightDensity
	score += float64(texty) / float64(len(row)) * weightTextiness

	if nonEmpty > 0 {
		seen := make(map[string]struct{}, nonEmpty)
		for _, cell := range row {
			if v := strings.TrimSpace(cell); v != "" {
				seen[v] = struct{}{}
			}
		}
		score += float64(len(seen)) / float64(nonEmpty) * weightUnique
	}

	if idx+1 < len(rows) {
		end := idx + 1 + followRows
		if end > len(rows) {
			end = len(rows)
		}
		score += numericContent(rows[idx+1:end]) * weightNumeric
	}

	return score
}

// numericContent returns the fraction of non-empty cells that parse as numbers.
func numericContent(rows [][]string) float64 {
	numeric := 0
	total := 0
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) == "" {
				continue
			}
			total++
			if isNumericCell(cell) {
				numeric++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(numeric) / float64(total)
}

// isNumericCell reports whether a cell holds a number once common formatting
// (thousands separators, currency symbols, spaces) is stripped.
func isNumericCell(cell string) bool {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '$', '€', '£', ' ', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(cell))
	if cleaned == "" {
		return false
	}
	_, err := strconv.ParseFloat(cleaned, 64)
	return err == nil
}

// CleanHeaderName normalizes one header: lower-case, whitespace and hyphens
// become underscores, everything else non-alphanumeric is stripped. Empty
// results become "unnamed". Cleaning an already-clean name is a no-op.
func CleanHeaderName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unnamed"
	}
	return b.String()
}

// MakeUnique disambiguates duplicate header names by appending _1, _2, ...
// to repeats, preserving order. Generated names are re-checked against the
// input, so an export that already carries "amount_1" cannot collide with the
// suffix given to a repeated "amount".
func MakeUnique(headers []string) []string {
	seen := make(map[string]int, len(headers))
	out := make([]string, len(headers))
	for i, h := range headers {
		n, dup := seen[h]
		if !dup {
			seen[h] = 0
			out[i] = h
			continue
		}
		name := h
		for dup {
			n++
			name = fmt.Sprintf("%s_%d", h, n)
			_, dup = seen[name]
		}
		seen[h] = n
		seen[name] = 0
		out[i] = name
	}
	return out
}

// BuildTable turns raw rows into a detected table using the given header row.
// Header names are cleaned and de-duplicated, data rows narrower than the
// header are padded, and fully empty data rows are dropped.
func BuildTable(rows [][]string, headerRow int) *table.Detected {
	if headerRow >= len(rows) {
		return &table.Detected{}
	}

	headers := make([]string, len(rows[headerRow]))
	for i, h := range rows[headerRow] {
		headers[i] = CleanHeaderName(h)
	}
	headers = MakeUnique(headers)

	t := &table.Detected{Columns: headers}
	for _, raw := range rows[headerRow+1:] {
		row := make(table.Row, len(headers))
		empty := true
		for i, col := range headers {
			var v string
			if i < len(raw) {
				v = strings.TrimSpace(raw[i])
			}
			row[col] = v
			if v != "" {
				empty = false
			}
		}
		if !empty {
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}
