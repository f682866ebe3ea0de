package metrics

// Record output (CSV/JSON) and summary formatting

import (
	"bytes"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var csvHeader = []string{"index", "offset", "length", "outcome", "valid", "error", "raw_hex"}

// Writer handles writing records to files
type Writer struct {
	csvFile   *os.File
	csvWriter *csv.Writer
	jsonFile  *os.File
	jsonCount int
}

type jsonRecord struct {
	Index   int     `json:"index"`
	Offset  int64   `json:"offset"`
	Length  int     `json:"length"`
	Outcome Outcome `json:"outcome"`
	Valid   bool    `json:"valid"`
	Error   string  `json:"error,omitempty"`
	RawHex  string  `json:"raw_hex,omitempty"`
}

// NewWriter creates a new record writer. Either path may be empty.
func NewWriter(csvPath, jsonPath string) (*Writer, error) {
	w := &Writer{}

	if csvPath != "" {
		file, err := os.Create(csvPath)
		if err != nil {
			return nil, fmt.Errorf("create CSV file: %w", err)
		}
		w.csvFile = file
		w.csvWriter = csv.NewWriter(file)
		if err := w.csvWriter.Write(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("write CSV header: %w", err)
		}
		w.csvWriter.Flush()
	}

	if jsonPath != "" {
		file, err := os.Create(jsonPath)
		if err != nil {
			if w.csvFile != nil {
				w.csvFile.Close()
			}
			return nil, fmt.Errorf("create JSON file: %w", err)
		}
		w.jsonFile = file
		if _, err := file.WriteString("[\n"); err != nil {
			file.Close()
			if w.csvFile != nil {
				w.csvFile.Close()
			}
			return nil, fmt.Errorf("write JSON start: %w", err)
		}
	}

	return w, nil
}

// WriteRecord writes a single record
func (w *Writer) WriteRecord(r Record) error {
	if w.csvWriter != nil {
		row := []string{
			strconv.Itoa(r.Index),
			strconv.FormatInt(r.Offset, 10),
			strconv.Itoa(r.Length),
			string(r.Outcome),
			strconv.FormatBool(r.Valid),
			r.Error,
			hex.EncodeToString(r.Raw),
		}
		if err := w.csvWriter.Write(row); err != nil {
			return fmt.Errorf("write CSV record: %w", err)
		}
		w.csvWriter.Flush()
	}

	if w.jsonFile != nil {
		data, err := json.Marshal(jsonRecord{
			Index:   r.Index,
			Offset:  r.Offset,
			Length:  r.Length,
			Outcome: r.Outcome,
			Valid:   r.Valid,
			Error:   r.Error,
			RawHex:  hex.EncodeToString(r.Raw),
		})
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		if w.jsonCount > 0 {
			if _, err := w.jsonFile.WriteString(",\n"); err != nil {
				return fmt.Errorf("write JSON comma: %w", err)
			}
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return fmt.Errorf("indent JSON: %w", err)
		}
		if _, err := w.jsonFile.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		w.jsonCount++
	}

	return nil
}

// WriteAll writes every record of a sink.
func (w *Writer) WriteAll(s *Sink) error {
	for _, r := range s.Records() {
		if err := w.WriteRecord(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the writer and flushes all data
func (w *Writer) Close() error {
	var errs []error

	if w.csvWriter != nil {
		w.csvWriter.Flush()
		if err := w.csvWriter.Error(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.csvFile != nil {
		if err := w.csvFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if w.jsonFile != nil {
		if _, err := w.jsonFile.WriteString("\n]\n"); err != nil {
			errs = append(errs, err)
		}
		if err := w.jsonFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close writer: %v", errs)
	}
	return nil
}

// FormatSummary formats run counters, and a record summary when one is
// given, for human-readable output.
func FormatSummary(stats RunStats, summary *Summary) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Frames Emitted: %d\n", stats.FramesEmitted)
	if stats.FramesInvalid > 0 {
		fmt.Fprintf(&buf, "Frames With Field Errors: %d\n", stats.FramesInvalid)
	}
	fmt.Fprintf(&buf, "Resyncs: %d\n", stats.ResyncCount)
	fmt.Fprintf(&buf, "Bytes Discarded: %d\n", stats.BytesDiscarded)
	if stats.ChecksumMismatches > 0 {
		fmt.Fprintf(&buf, "Checksum Mismatches: %d\n", stats.ChecksumMismatches)
	}
	if stats.LengthInvalid > 0 {
		fmt.Fprintf(&buf, "Invalid Lengths: %d\n", stats.LengthInvalid)
	}
	if stats.Truncated > 0 {
		fmt.Fprintf(&buf, "Truncated: %d\n", stats.Truncated)
	}
	if stats.NoiseEvents > 0 {
		fmt.Fprintf(&buf, "Noise Events: %d\n", stats.NoiseEvents)
	}

	if stats.FramesEmitted > 0 {
		buf.WriteString("\nFrame Length:\n")
		fmt.Fprintf(&buf, "  Min: %d\n", stats.MinFrameLen)
		fmt.Fprintf(&buf, "  Max: %d\n", stats.MaxFrameLen)
		fmt.Fprintf(&buf, "  Avg: %.1f\n", stats.AvgFrameLen())
		if summary != nil && summary.P50Len > 0 {
			fmt.Fprintf(&buf, "  P50: %.0f\n", summary.P50Len)
			fmt.Fprintf(&buf, "  P90: %.0f\n", summary.P90Len)
			fmt.Fprintf(&buf, "  P99: %.0f\n", summary.P99Len)
		}
		if summary != nil && len(summary.LenBuckets) > 0 {
			fmt.Fprintf(&buf, "  Buckets: <16=%d 16-64=%d 64-256=%d 256-1024=%d >=1024=%d\n",
				summary.LenBuckets["lt_16"],
				summary.LenBuckets["16_64"],
				summary.LenBuckets["64_256"],
				summary.LenBuckets["256_1024"],
				summary.LenBuckets["ge_1024"],
			)
		}
	}

	if len(stats.FieldFailures) > 0 {
		buf.WriteString("\nField Failures:\n")
		for _, name := range stats.FieldFailureNames() {
			fmt.Fprintf(&buf, "  %s: %d\n", name, stats.FieldFailures[name])
		}
	}

	return buf.String()
}
