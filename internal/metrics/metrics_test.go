package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunStatsObserve(t *testing.T) {
	var s RunStats
	s.ObserveFrame(21, true)
	s.ObserveFrame(9, false)
	s.ObserveFrame(30, true)
	s.ObserveFieldFailure("temperature")
	s.ObserveFieldFailure("blob")
	s.ObserveFieldFailure("temperature")

	if s.FramesEmitted != 3 || s.FramesInvalid != 1 {
		t.Fatalf("emitted/invalid = %d/%d", s.FramesEmitted, s.FramesInvalid)
	}
	if s.MinFrameLen != 9 || s.MaxFrameLen != 30 || s.AvgFrameLen() != 20 {
		t.Fatalf("lengths min=%d max=%d avg=%.1f", s.MinFrameLen, s.MaxFrameLen, s.AvgFrameLen())
	}
	if got := strings.Join(s.FieldFailureNames(), ","); got != "blob,temperature" {
		t.Errorf("FieldFailureNames = %s", got)
	}

	c := s.Clone()
	c.FieldFailures["blob"] = 99
	c.ResyncCount = 5
	if s.FieldFailures["blob"] != 1 || s.ResyncCount != 0 {
		t.Error("Clone shares state with its source")
	}
}

func TestSinkSummary(t *testing.T) {
	sink := NewSink()
	raw := []byte{0xAA, 0x55}
	sink.Record(Record{Index: 0, Outcome: OutcomeFrame, Length: 10, Valid: true, Raw: raw})
	sink.Record(Record{Index: 1, Outcome: OutcomeFrame, Length: 20, Valid: true})
	sink.Record(Record{Index: 2, Outcome: OutcomeFrame, Length: 300, Valid: true})
	sink.Record(Record{Offset: 7, Outcome: OutcomeChecksumMismatch, Length: 21})
	raw[0] = 0

	summary := sink.Summary()
	if summary.Total != 4 {
		t.Fatalf("Total = %d, want 4", summary.Total)
	}
	if summary.ByOutcome[OutcomeFrame] != 3 || summary.ByOutcome[OutcomeChecksumMismatch] != 1 {
		t.Fatalf("ByOutcome = %v", summary.ByOutcome)
	}
	if summary.P50Len != 20 || summary.P99Len != 300 {
		t.Errorf("percentiles p50=%.0f p99=%.0f", summary.P50Len, summary.P99Len)
	}
	if summary.LenBuckets["lt_16"] != 1 || summary.LenBuckets["16_64"] != 1 || summary.LenBuckets["256_1024"] != 1 {
		t.Errorf("LenBuckets = %v", summary.LenBuckets)
	}
	if sink.Records()[0].Raw[0] != 0xAA {
		t.Error("Record did not copy Raw")
	}
}

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "records.csv")
	jsonPath := filepath.Join(dir, "records.json")

	sink := NewSink()
	sink.Record(Record{Index: 0, Offset: 3, Length: 4, Outcome: OutcomeFrame, Valid: true, Raw: []byte{0xAA, 0x55, 0x01, 0x02}})
	sink.Record(Record{Index: -1, Offset: 9, Length: 21, Outcome: OutcomeChecksumMismatch, Error: "checksum mismatch, with comma"})

	w, err := NewWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteAll(sink); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadRecordsCSV(csvPath)
	if err != nil {
		t.Fatalf("ReadRecordsCSV: %v", err)
	}
	want := sink.Records()
	if len(got) != len(want) {
		t.Fatalf("read %d records, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Index != w.Index || g.Offset != w.Offset || g.Length != w.Length ||
			g.Outcome != w.Outcome || g.Valid != w.Valid || g.Error != w.Error ||
			string(g.Raw) != string(w.Raw) {
			t.Errorf("record %d = %+v, want %+v", i, g, w)
		}
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("JSON output invalid: %v\n%s", err, data)
	}
	if len(decoded) != 2 || decoded[0]["raw_hex"] != "aa550102" || decoded[1]["outcome"] != "checksum_mismatch" {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestReadRecordsCSVErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadRecordsCSV(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
	noCols := filepath.Join(dir, "nocols.csv")
	os.WriteFile(noCols, []byte("index,offset\n1,2\n"), 0644)
	if _, err := ReadRecordsCSV(noCols); err == nil || !strings.Contains(err.Error(), "missing required column") {
		t.Errorf("err = %v", err)
	}
	empty := filepath.Join(dir, "empty.csv")
	os.WriteFile(empty, []byte(strings.Join(csvHeader, ",")+"\n"), 0644)
	if _, err := ReadRecordsCSV(empty); err == nil || !strings.Contains(err.Error(), "no data rows") {
		t.Errorf("err = %v", err)
	}
}

func TestFormatSummary(t *testing.T) {
	stats := RunStats{ResyncCount: 2, BytesDiscarded: 5, ChecksumMismatches: 1}
	stats.ObserveFrame(21, true)
	stats.ObserveFieldFailure("blob")

	out := FormatSummary(stats, nil)
	for _, want := range []string{"Frames Emitted: 1", "Resyncs: 2", "Bytes Discarded: 5", "Checksum Mismatches: 1", "Avg: 21.0", "blob: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Truncated") {
		t.Errorf("zero counter printed:\n%s", out)
	}
}
