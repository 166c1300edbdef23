package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/detector"
	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/table"
)

// candidateDelimiters is the fixed set probed during delimiter detection.
var candidateDelimiters = []rune{',', '\t', ';', '|'}

// probeSize is how many bytes are sampled for encoding and delimiter detection.
const probeSize = 8192

// CSVLoader reads .csv and .txt exports with auto-detected encoding and
// delimiter.
type CSVLoader struct {
	opts Options
}

// NewCSVLoader creates a CSV/TXT loader.
func NewCSVLoader(opts Options) *CSVLoader {
	return &CSVLoader{opts: opts}
}

// ReadRows reads up to maxRows raw rows.
func (l *CSVLoader) ReadRows(path string, maxRows int) ([][]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return l.parseRows(data, maxRows)
}

// Materialize reads the whole file and builds the detected table from the
// given header row.
func (l *CSVLoader) Materialize(path string, headerRow int) (*table.Detected, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	rows, err := l.parseRows(data, -1)
	if err != nil {
		return nil, err
	}
	return detector.BuildTable(rows, headerRow), nil
}

// parseRows decodes, detects the delimiter and reads rows. maxRows < 0 reads
// everything. Quote handling is strict so broken lines are detectable; with
// TolerateMalformedLines they are skipped instead of failing the whole file.
func (l *CSVLoader) parseRows(data []byte, maxRows int) ([][]string, error) {
	decoded, err := decodeToUTF8(data)
	if err != nil {
		return nil, fmt.Errorf("decoding file: %w", err)
	}
	decoded = bytes.TrimPrefix(decoded, []byte("\ufeff"))

	delim := detectDelimiter(decoded)

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = delim
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for maxRows < 0 || len(rows) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if l.opts.TolerateMalformedLines {
				continue
			}
			return nil, fmt.Errorf("parsing csv: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// decodeToUTF8 sniffs the charset on a bounded sample and transforms the whole
// input to UTF-8. Detection failure falls back to passing bytes through, which
// keeps plain ASCII and already-UTF-8 files working.
func decodeToUTF8(data []byte) ([]byte, error) {
	sample := data
	if len(sample) > probeSize {
		sample = sample[:probeSize]
	}
	enc, name, _ := charset.DetermineEncoding(sample, "")
	if enc == nil || name == "utf-8" {
		return data, nil
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		// Permissive fallback: a misdetected legacy encoding should not make
		// the file unreadable.
		return data, nil
	}
	return decoded, nil
}

// detectDelimiter probes a bounded sample and picks the candidate yielding the
// widest row anywhere in it. Preamble lines often contain no delimiter at all,
// so the first line alone is not a reliable witness. Comma wins ties as the
// most common export default.
func detectDelimiter(data []byte) rune {
	sample := data
	if len(sample) > probeSize {
		sample = sample[:probeSize]
		if idx := bytes.LastIndexByte(sample, '\n'); idx > 0 {
			sample = sample[:idx]
		}
	}

	best := ','
	bestCount := 1
	for _, d := range candidateDelimiters {
		r := csv.NewReader(bytes.NewReader(sample))
		r.Comma = d
		r.LazyQuotes = true
		r.FieldsPerRecord = -1
		widest := 0
		for {
			record, err := r.Read()
			if err != nil {
				break
			}
			if len(record) > widest {
				widest = len(record)
			}
		}
		if widest > bestCount {
			bestCount = widest
			best = d
		}
	}
	return best
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileUnreadable, path, err)
	}
	return data, nil
}
