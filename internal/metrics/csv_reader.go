package metrics

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReadRecordsCSV reads a record CSV written by Writer.
func ReadRecordsCSV(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[col] = i
	}
	for _, col := range []string{"index", "offset", "length", "outcome"} {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("CSV missing required column: %s", col)
		}
	}

	col := func(row []string, name string) string {
		if idx, ok := colIndex[name]; ok && idx < len(row) {
			return row[idx]
		}
		return ""
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", line, err)
		}

		var r Record
		if r.Index, err = strconv.Atoi(col(row, "index")); err != nil {
			return nil, fmt.Errorf("row %d: index: %w", line, err)
		}
		if r.Offset, err = strconv.ParseInt(col(row, "offset"), 10, 64); err != nil {
			return nil, fmt.Errorf("row %d: offset: %w", line, err)
		}
		if r.Length, err = strconv.Atoi(col(row, "length")); err != nil {
			return nil, fmt.Errorf("row %d: length: %w", line, err)
		}
		r.Outcome = Outcome(col(row, "outcome"))
		r.Valid = col(row, "valid") == "true"
		r.Error = col(row, "error")
		if s := col(row, "raw_hex"); s != "" {
			if r.Raw, err = hex.DecodeString(s); err != nil {
				return nil, fmt.Errorf("row %d: raw_hex: %w", line, err)
			}
		}
		records = append(records, r)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no data rows in CSV file")
	}
	return records, nil
}
