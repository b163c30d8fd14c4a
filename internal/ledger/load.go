package ledger

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sanctions-risk-engine/internal/types"
)

// column aliases accepted in CSV headers
var columns = map[string]string{
	"id":               "id",
	"transaction_id":   "id",
	"timestamp":        "timestamp",
	"date":             "timestamp",
	"amount":           "amount",
	"sender_country":   "sender_country",
	"receiver_country": "receiver_country",
}

// Load reads a ledger file and ingests it. Supported formats are .csv and
// .jsonl, each optionally gzip compressed (.csv.gz, .jsonl.gz).
func Load(path string, highRisk types.CountrySet) ([]types.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	name := strings.ToLower(path)
	if filepath.Ext(name) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	var records []Record
	switch filepath.Ext(name) {
	case ".csv":
		records, err = ReadCSV(r)
	case ".jsonl", ".ndjson":
		records, err = ReadJSONL(r)
	default:
		return nil, fmt.Errorf("unsupported ledger format %q", filepath.Ext(name))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Ingest(records, highRisk)
}

// ReadCSV reads records from a CSV stream with a header row. Columns are matched
// by name; unknown columns are ignored.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range header {
		if col, ok := columns[strings.ToLower(strings.TrimSpace(h))]; ok {
			idx[col] = i
		}
	}
	for _, col := range []string{"id", "timestamp", "amount", "sender_country", "receiver_country"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: header is missing column %q", ErrInvalidRecord, col)
		}
	}

	field := func(row []string, col string) string {
		if i := idx[col]; i < len(row) {
			return row[i]
		}
		return ""
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, Record{
			ID:              field(row, "id"),
			Timestamp:       field(row, "timestamp"),
			Amount:          field(row, "amount"),
			SenderCountry:   field(row, "sender_country"),
			ReceiverCountry: field(row, "receiver_country"),
		})
	}
	return records, nil
}

type jsonRecord struct {
	ID              any    `json:"id"`
	Timestamp       string `json:"timestamp"`
	Amount          any    `json:"amount"`
	SenderCountry   string `json:"sender_country"`
	ReceiverCountry string `json:"receiver_country"`
}

// ReadJSONL reads one JSON object per line. Blank lines are skipped; ids and
// amounts may be strings or numbers.
func ReadJSONL(r io.Reader) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		var jr jsonRecord
		if err := dec.Decode(&jr); err != nil {
			return nil, fmt.Errorf("line %d: %w: %v", line, ErrInvalidRecord, err)
		}
		records = append(records, Record{
			ID:              scalar(jr.ID),
			Timestamp:       jr.Timestamp,
			Amount:          scalar(jr.Amount),
			SenderCountry:   jr.SenderCountry,
			ReceiverCountry: jr.ReceiverCountry,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func scalar(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
