package encoder

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/linkedin/goavro/v2"

	"github.com/jittakal/kafeventsdk/pkg/archive"
)

func TestNewAvroEncoder(t *testing.T) {
	tests := []struct {
		name        string
		compression string
	}{
		{"gzip compression", "gzip"},
		{"uncompressed", "uncompressed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewAvroEncoder(tt.compression)
			if err != nil {
				t.Fatalf("NewAvroEncoder() error = %v", err)
			}
			if enc.compression != tt.compression {
				t.Errorf("compression = %v, want %v", enc.compression, tt.compression)
			}
		})
	}
}

func TestAvroEncoder_FileExtension(t *testing.T) {
	tests := []struct {
		name        string
		compression string
		want        string
	}{
		{"no compression", "none", ".avro"},
		{"gzip compression", "gzip", ".avro.gz"},
		{"GZIP compression", "GZIP", ".avro.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewAvroEncoder(tt.compression)
			if err != nil {
				t.Fatalf("NewAvroEncoder() error = %v", err)
			}
			if ext := enc.FileExtension(); ext != tt.want {
				t.Errorf("FileExtension() = %v, want %v", ext, tt.want)
			}
		})
	}
}

func TestAvroEncoder_Format(t *testing.T) {
	enc, err := NewAvroEncoder("gzip")
	if err != nil {
		t.Fatalf("NewAvroEncoder() error = %v", err)
	}
	if enc.Format() != archive.FormatAvro {
		t.Errorf("Format() = %v, want %v", enc.Format(), archive.FormatAvro)
	}
}

func TestAvroEncoder_Encode(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "events.avro.gz")

	enc, err := NewAvroEncoder("gzip")
	if err != nil {
		t.Fatalf("NewAvroEncoder() error = %v", err)
	}

	records := testRecords(t)
	stats, err := enc.Encode(testFile, records)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if stats.RecordCount != len(records) {
		t.Errorf("RecordCount = %d, want %d", stats.RecordCount, len(records))
	}
	if stats.SizeBytes == 0 {
		t.Error("expected non-zero file size")
	}
	if _, err := os.Stat(testFile); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestAvroEncoder_EncodeEmpty(t *testing.T) {
	enc, err := NewAvroEncoder("gzip")
	if err != nil {
		t.Fatalf("NewAvroEncoder() error = %v", err)
	}
	if _, err := enc.Encode(filepath.Join(t.TempDir(), "empty.avro"), nil); err == nil {
		t.Error("Encode() should fail for empty record batch")
	}
}

func TestAvroEncoder_RoundTrip(t *testing.T) {
	enc, err := NewAvroEncoder("gzip")
	if err != nil {
		t.Fatalf("NewAvroEncoder() error = %v", err)
	}

	records := testRecords(t)
	encoded, err := enc.EncodeToBytes(records)
	if err != nil {
		t.Fatalf("EncodeToBytes() error = %v", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	raw, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("reading gzip stream: %v", err)
	}

	ocf, err := goavro.NewOCFReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("NewOCFReader() error = %v", err)
	}

	var rows []map[string]interface{}
	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		rows = append(rows, datum.(map[string]interface{}))
	}

	if len(rows) != len(records) {
		t.Fatalf("decoded %d rows, want %d", len(rows), len(records))
	}
	if got := rows[0]["id"]; got != "order-1" {
		t.Errorf("rows[0][id] = %v, want %q", got, "order-1")
	}
	if got := rows[0]["spec_version"]; got != "1.0" {
		t.Errorf("rows[0][spec_version] = %v, want %q", got, "1.0")
	}
	if got := rows[1]["data_encoding"]; got != dataEncodingBase64 {
		t.Errorf("rows[1][data_encoding] = %v, want %q", got, dataEncodingBase64)
	}

	// Nullable columns decode as avro unions.
	subject, ok := rows[0]["subject"].(map[string]interface{})
	if !ok || subject["string"] != "42" {
		t.Errorf("rows[0][subject] = %v, want union string %q", rows[0]["subject"], "42")
	}
	if rows[1]["subject"] != nil {
		t.Errorf("rows[1][subject] = %v, want nil", rows[1]["subject"])
	}
}
